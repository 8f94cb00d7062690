package domain

import "fmt"

// Map tracks the recovery stage of every sector of a device.
//
// Clusters exactly tile Domain: they are sorted by start, contiguous and
// non-overlapping. Map is not safe for concurrent use; the recovery engine
// owns it for the lifetime of a run.
type Map struct {
	SectorSize uint32
	Domain     Interval
	Clusters   []Cluster
}

// NewMap returns a map with a single Untested cluster spanning [0, sectors).
func NewMap(sectorSize uint32, sectors uint64) (*Map, error) {
	dom, err := NewInterval(0, sectors)
	if err != nil {
		return nil, err
	}
	return &Map{
		SectorSize: sectorSize,
		Domain:     dom,
		Clusters:   []Cluster{{Domain: dom, Stage: Untested()}},
	}, nil
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	out := &Map{SectorSize: m.SectorSize, Domain: m.Domain}
	out.Clusters = append(make([]Cluster, 0, len(m.Clusters)), m.Clusters...)
	return out
}

// Validate checks the ordering and tiling invariants.
func (m *Map) Validate() error {
	if !m.Domain.Valid() {
		return fmt.Errorf("map domain %s: %w", m.Domain, ErrInvalidInterval)
	}
	if len(m.Clusters) == 0 {
		return ErrEmptyMap
	}

	cursor := m.Domain.Start
	for i, c := range m.Clusters {
		if !c.Domain.Valid() {
			return fmt.Errorf("cluster %d %s: %w", i, c.Domain, ErrInvalidInterval)
		}
		if !m.Domain.Contains(c.Domain) {
			return fmt.Errorf("cluster %d %s: %w", i, c.Domain, ErrOutOfBounds)
		}
		switch {
		case c.Domain.Start > cursor:
			return fmt.Errorf("sectors [%d, %d): %w", cursor, c.Domain.Start, ErrTilingGap)
		case c.Domain.Start < cursor:
			return fmt.Errorf("cluster %d %s: %w", i, c.Domain, ErrTilingOverlap)
		}
		cursor = c.Domain.End
	}
	if cursor != m.Domain.End {
		return fmt.Errorf("sectors [%d, %d): %w", cursor, m.Domain.End, ErrTilingGap)
	}
	return nil
}

// Apply overlays c onto the map. Existing clusters that straddle c's bounds
// are cropped (keeping their stage), clusters inside c are discarded, and c
// is inserted once in sort order.
func (m *Map) Apply(c Cluster) error {
	if !c.Domain.Valid() {
		return fmt.Errorf("apply %s: %w", c.Domain, ErrInvalidInterval)
	}
	if !m.Domain.Contains(c.Domain) {
		return fmt.Errorf("apply %s to %s: %w", c.Domain, m.Domain, ErrOutOfBounds)
	}

	next := make([]Cluster, 0, len(m.Clusters)+2)
	inserted := false
	for _, old := range m.Clusters {
		if !old.Domain.Overlaps(c.Domain) {
			if !inserted && old.Domain.Start >= c.Domain.End {
				next = append(next, c)
				inserted = true
			}
			next = append(next, old)
			continue
		}

		if old.Domain.Start < c.Domain.Start {
			next = append(next, NewCluster(old.Domain.Start, c.Domain.Start, old.Stage))
		}
		if !inserted {
			next = append(next, c)
			inserted = true
		}
		if old.Domain.End > c.Domain.End {
			next = append(next, NewCluster(c.Domain.End, old.Domain.End, old.Stage))
		}
	}
	if !inserted {
		next = append(next, c)
	}

	m.Clusters = next
	return nil
}

// Defrag merges every run of adjacent clusters that share a stage.
func (m *Map) Defrag() {
	if len(m.Clusters) < 2 {
		return
	}

	merged := make([]Cluster, 0, len(m.Clusters))
	run := m.Clusters[0]
	for _, c := range m.Clusters[1:] {
		if c.Stage == run.Stage && c.Domain.Start == run.Domain.End {
			run.Domain.End = c.Domain.End
			continue
		}
		merged = append(merged, run)
		run = c
	}
	merged = append(merged, run)
	m.Clusters = merged
}

// SummaryStage returns the stage the engine should work on next: Untested
// while any sector is untested, else the lowest pending isolation level,
// else Damaged.
func (m *Map) SummaryStage() Stage {
	found := false
	var lowest uint8
	for _, c := range m.Clusters {
		switch c.Stage.Kind() {
		case KindUntested:
			return Untested()
		case KindForIsolation:
			if !found || c.Stage.Level() < lowest {
				lowest = c.Stage.Level()
				found = true
			}
		}
	}
	if found {
		return ForIsolation(lowest)
	}
	return Damaged()
}

// ClustersWith returns the clusters whose stage equals stage, in tiling order.
func (m *Map) ClustersWith(stage Stage) []Cluster {
	var out []Cluster
	for _, c := range m.Clusters {
		if c.Stage == stage {
			out = append(out, c)
		}
	}
	return out
}

// Summarize counts sectors per stage.
func (m *Map) Summarize() Summary {
	s := Summary{Total: m.Domain.Len(), Levels: map[uint8]uint64{}}
	for _, c := range m.Clusters {
		n := c.Len()
		switch c.Stage.Kind() {
		case KindUntested:
			s.Untested += n
		case KindForIsolation:
			s.Isolating += n
			s.Levels[c.Stage.Level()] += n
		case KindDamaged:
			s.Damaged += n
		case KindRecovered:
			s.Recovered += n
		}
	}
	return s
}

// CheckSource reports whether m was recorded for a source of the given
// geometry.
func (m *Map) CheckSource(sectorSize uint32, sectors uint64) error {
	if m.SectorSize != sectorSize {
		return fmt.Errorf("map uses %d byte sectors, source %d: %w", m.SectorSize, sectorSize, ErrSectorSizeMismatch)
	}
	if m.Domain.Start != 0 || m.Domain.End != sectors {
		return fmt.Errorf("map covers %s, source has %d sectors: %w", m.Domain, sectors, ErrDomainMismatch)
	}
	return nil
}
