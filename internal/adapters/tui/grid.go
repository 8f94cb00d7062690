// Package tui renders a sector map in the terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/bft-labs/rescue/internal/domain"
)

// Glyphs used in the map grid.
const (
	glyphRecovered = '#'
	glyphUntested  = '.'
	glyphDamaged   = 'X'
	glyphDeepLevel = '+'
)

// cellGlyph returns the glyph for a stage. Isolation levels 0-9 render as
// their digit.
func cellGlyph(s domain.Stage) rune {
	switch s.Kind() {
	case domain.KindRecovered:
		return glyphRecovered
	case domain.KindForIsolation:
		if s.Level() < 10 {
			return rune('0' + s.Level())
		}
		return glyphDeepLevel
	case domain.KindDamaged:
		return glyphDamaged
	default:
		return glyphUntested
	}
}

// severity orders stages for display: a cell shows the most severe stage
// of any sector it covers.
func severity(s domain.Stage) int {
	switch s.Kind() {
	case domain.KindDamaged:
		return 3
	case domain.KindForIsolation:
		return 2
	case domain.KindUntested:
		return 1
	default:
		return 0
	}
}

// RenderGrid lays the map out over at most cells grid cells, width per row.
// Every cell covers the same number of sectors except possibly the last.
func RenderGrid(m *domain.Map, cells, width int) []string {
	total := m.Domain.Len()
	if cells <= 0 || width <= 0 || total == 0 {
		return nil
	}
	per := (total + uint64(cells) - 1) / uint64(cells)
	n := int((total + per - 1) / per)

	glyphs := make([]rune, n)
	worst := make([]int, n)
	for i := range worst {
		worst[i] = -1
	}

	for _, c := range m.Clusters {
		first := (c.Domain.Start - m.Domain.Start) / per
		last := (c.Domain.End - 1 - m.Domain.Start) / per
		sev := severity(c.Stage)
		for i := first; i <= last; i++ {
			if sev > worst[i] {
				worst[i] = sev
				glyphs[i] = cellGlyph(c.Stage)
			} else if sev == worst[i] && c.Stage.IsIsolating() && glyphs[i] != glyphDeepLevel {
				// Prefer the lowest isolation level within a cell.
				if g := cellGlyph(c.Stage); g < glyphs[i] {
					glyphs[i] = g
				}
			}
		}
	}

	var rows []string
	for start := 0; start < n; start += width {
		end := start + width
		if end > n {
			end = n
		}
		rows = append(rows, string(glyphs[start:end]))
	}
	return rows
}

// Legend describes the grid glyphs.
func Legend() []string {
	return []string{
		fmt.Sprintf("%c recovered  %c untested  0-9 isolation level  %c deeper level  %c damaged",
			glyphRecovered, glyphUntested, glyphDeepLevel, glyphDamaged),
	}
}

// SummaryLines describes the map's progress in human units.
func SummaryLines(m *domain.Map) []string {
	s := m.Summarize()
	size := func(sectors uint64) string {
		return humanize.IBytes(sectors * uint64(m.SectorSize))
	}
	next := "finished"
	if s.Pending() > 0 {
		next = m.SummaryStage().String()
	}
	return []string{
		fmt.Sprintf("Sectors %s x %s  Total %s  Clusters %s",
			humanize.Comma(int64(s.Total)), humanize.IBytes(uint64(m.SectorSize)),
			size(s.Total), humanize.Comma(int64(len(m.Clusters)))),
		fmt.Sprintf("Recovered %s (%.2f%%)  Untested %s  Isolating %s  Damaged %s",
			size(s.Recovered), 100*s.RecoveredFraction(),
			size(s.Untested), size(s.Isolating), size(s.Damaged)),
		fmt.Sprintf("Next stage: %s", next),
	}
}

func truncate(line string, w int) string {
	runes := []rune(line)
	if len(runes) > w {
		runes = runes[:w]
	}
	return strings.TrimRight(string(runes), " ")
}
