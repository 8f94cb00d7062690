package domain

// Cluster is a contiguous sector range tagged with a single stage.
type Cluster struct {
	Domain Interval
	Stage  Stage
}

// NewCluster returns a cluster over [start, end) with the given stage.
func NewCluster(start, end uint64, stage Stage) Cluster {
	return Cluster{Domain: Interval{Start: start, End: end}, Stage: stage}
}

// Len returns the cluster length in sectors.
func (c Cluster) Len() uint64 { return c.Domain.Len() }

// Subdivide splits c into consecutive groups of groupLength sectors. The last
// group holds the remainder. Every group inherits c's stage. A groupLength of
// zero is treated as one.
func (c Cluster) Subdivide(groupLength uint64) []Cluster {
	if !c.Domain.Valid() {
		return nil
	}
	if groupLength == 0 {
		groupLength = 1
	}

	n := (c.Len() + groupLength - 1) / groupLength
	groups := make([]Cluster, 0, n)
	start := c.Domain.Start
	for {
		end := start + groupLength
		if end > c.Domain.End || end < start {
			end = c.Domain.End
		}
		groups = append(groups, Cluster{Domain: Interval{Start: start, End: end}, Stage: c.Stage})
		if end == c.Domain.End {
			return groups
		}
		start = end
	}
}
