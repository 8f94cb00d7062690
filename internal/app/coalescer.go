package app

import "github.com/bft-labs/rescue/internal/domain"

// Coalescer merges consecutive read outcomes that share a resulting stage
// into a single overlay, so a long run of good groups costs one Apply.
type Coalescer struct {
	m       *domain.Map
	pending domain.Cluster
	has     bool
	applied int
}

// NewCoalescer creates a coalescer that overlays onto m.
func NewCoalescer(m *domain.Map) *Coalescer {
	return &Coalescer{m: m}
}

// Add records that iv ended up in stage. It flushes the pending range first
// when iv does not extend it.
func (c *Coalescer) Add(iv domain.Interval, stage domain.Stage) error {
	if c.has && c.pending.Stage == stage && c.pending.Domain.End == iv.Start {
		c.pending.Domain.End = iv.End
		return nil
	}
	if err := c.Flush(); err != nil {
		return err
	}
	c.pending = domain.Cluster{Domain: iv, Stage: stage}
	c.has = true
	return nil
}

// Flush overlays the pending range onto the map.
func (c *Coalescer) Flush() error {
	if !c.has {
		return nil
	}
	if err := c.m.Apply(c.pending); err != nil {
		return err
	}
	c.has = false
	c.applied++
	return nil
}

// HasPending returns true if an outcome is waiting to be applied.
func (c *Coalescer) HasPending() bool {
	return c.has
}

// Applied returns how many overlays have been applied so far.
func (c *Coalescer) Applied() int {
	return c.applied
}
