package tui

import (
	"context"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/bft-labs/rescue/internal/domain"
)

// stopRequest is posted to the event loop to end Run.
type stopRequest struct{}

// Viewer draws a live sector map. Map updates may come from any goroutine;
// drawing happens on the goroutine running Run.
type Viewer struct {
	s     tcell.Screen
	title string

	mu     sync.Mutex
	m      *domain.Map
	status string
}

// NewViewer creates a viewer on a fresh terminal screen.
func NewViewer(title string) (*Viewer, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewViewerWithScreen(s, title)
}

// NewViewerWithScreen creates a viewer on s and initializes it.
func NewViewerWithScreen(s tcell.Screen, title string) (*Viewer, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	return &Viewer{s: s, title: title, status: "q/Esc: quit"}, nil
}

// Show replaces the displayed map and schedules a redraw. The viewer keeps
// a copy, so the caller may go on mutating m.
func (v *Viewer) Show(m *domain.Map) {
	v.mu.Lock()
	v.m = m.Clone()
	v.mu.Unlock()
	_ = v.s.PostEvent(tcell.NewEventInterrupt(nil))
}

// SetStatus replaces the status line and schedules a redraw.
func (v *Viewer) SetStatus(status string) {
	v.mu.Lock()
	v.status = status
	v.mu.Unlock()
	_ = v.s.PostEvent(tcell.NewEventInterrupt(nil))
}

// Run handles terminal events until the user quits or ctx is canceled, then
// restores the terminal.
func (v *Viewer) Run(ctx context.Context) error {
	defer v.s.Fini()

	stop := context.AfterFunc(ctx, func() {
		_ = v.s.PostEvent(tcell.NewEventInterrupt(stopRequest{}))
	})
	defer stop()

	v.draw()
	for {
		switch ev := v.s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyEscape:
				return nil
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				return nil
			}
		case *tcell.EventResize:
			v.s.Sync()
			v.draw()
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(stopRequest); ok {
				return nil
			}
			v.draw()
		case nil:
			return nil
		}
	}
}

func (v *Viewer) putStr(x, y int, str string) {
	w, _ := v.s.Size()
	for i, r := range []rune(str) {
		if x+i >= w {
			break
		}
		v.s.SetContent(x+i, y, r, nil, tcell.StyleDefault)
	}
}

// draw redraws the whole screen from the current map.
func (v *Viewer) draw() {
	v.mu.Lock()
	m, status := v.m, v.status
	v.mu.Unlock()

	v.s.Clear()
	w, h := v.s.Size()
	y := 0

	v.putStr(0, y, strings.Repeat("═", w))
	v.putStr((w-len(v.title))/2, y, v.title)
	y++

	if m == nil {
		v.putStr(0, y, "waiting for map...")
	} else {
		for _, line := range append(SummaryLines(m), Legend()...) {
			if y >= h-2 {
				break
			}
			v.putStr(0, y, truncate(line, w))
			y++
		}

		// Leave two rows for the status block.
		rows := h - y - 2
		if rows > 0 {
			for _, line := range RenderGrid(m, rows*w, w) {
				v.putStr(0, y, line)
				y++
			}
		}
	}

	if h >= 2 {
		v.putStr(0, h-2, strings.Repeat("─", w))
		v.putStr(2, h-2, " Status ")
		v.putStr(0, h-1, truncate(status, w))
	}
	v.s.Show()
}
