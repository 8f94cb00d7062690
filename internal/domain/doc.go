// Package domain contains the sector accounting model for rescue.
//
// This package is the innermost layer. It has no dependencies on devices,
// files or logging and holds only the interval algebra that decides what the
// recovery engine works on next.
//
// # Entities
//
//   - [Interval]: a half-open sector range [Start, End)
//   - [Stage]: the recovery status of a range (Untested, ForIsolation(n), Damaged, Recovered)
//   - [Cluster]: an Interval tagged with a Stage
//   - [Map]: an ordered set of Clusters that exactly tiles the device
//
// # Invariants
//
// After every mutating call on a Map its clusters are sorted by start, cover
// the map's Domain without gaps or overlaps, and never leave it.
package domain
