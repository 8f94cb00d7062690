package domain

import "fmt"

// Interval is a half-open range of sectors [Start, End).
// Byte offsets are derived elsewhere by multiplying with the sector size.
type Interval struct {
	Start uint64
	End   uint64
}

// NewInterval returns [start, end) or ErrInvalidInterval when it is empty.
func NewInterval(start, end uint64) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if !iv.Valid() {
		return Interval{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidInterval, start, end)
	}
	return iv, nil
}

// Len returns the number of sectors in the interval.
func (iv Interval) Len() uint64 {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Valid reports whether the interval holds at least one sector.
func (iv Interval) Valid() bool { return iv.Start < iv.End }

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return other.Start >= iv.Start && other.End <= iv.End
}

// Overlaps reports whether iv and other share at least one sector.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// String returns the interval as "[start, end)".
func (iv Interval) String() string {
	return fmt.Sprintf("[%d, %d)", iv.Start, iv.End)
}
