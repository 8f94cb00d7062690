package domain

// Summary counts the sectors of a map in each stage.
type Summary struct {
	Total     uint64
	Untested  uint64
	Isolating uint64
	Damaged   uint64
	Recovered uint64

	// Levels splits Isolating by isolation level.
	Levels map[uint8]uint64
}

// Pending returns the number of sectors the engine may still attempt.
func (s Summary) Pending() uint64 { return s.Untested + s.Isolating }

// RecoveredFraction returns Recovered/Total, or 0 for an empty summary.
func (s Summary) RecoveredFraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Recovered) / float64(s.Total)
}
