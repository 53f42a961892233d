// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package rangeset implements the small range algebra the Authenticode
// hash-range planner is built on: inverting a sorted set of excluded
// byte ranges against a universe, and coalescing touching ranges.
//
// It generalizes the ad hoc RelRange/Range bookkeeping that
// saferwall/pe's security.go used to build Authentihash's range list.
package rangeset

import "sort"

// StreamRange is an on-stream half-open interval [Position, Position+Size).
type StreamRange struct {
	Position uint64
	Size     uint64
}

// End returns the exclusive end of the range.
func (r StreamRange) End() uint64 {
	return r.Position + r.Size
}

// Empty reports whether the range covers zero bytes.
func (r StreamRange) Empty() bool {
	return r.Size == 0
}

// byPosition sorts StreamRanges ascending by Position.
type byPosition []StreamRange

func (s byPosition) Len() int           { return len(s) }
func (s byPosition) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s byPosition) Less(i, j int) bool { return s[i].Position < s[j].Position }

// SortByPosition sorts ranges ascending by Position, in place.
func SortByPosition(ranges []StreamRange) {
	sort.Sort(byPosition(ranges))
}

// Invert partitions [0, universeSize) \ union(excluded) into an ordered,
// non-empty sequence of StreamRanges. excluded must already be sorted
// ascending by Position, non-overlapping, and contained in
// [0, universeSize); callers (the hash-range planner) are responsible
// for establishing that precondition.
func Invert(universeSize uint64, excluded []StreamRange) []StreamRange {
	included := make([]StreamRange, 0, len(excluded)+1)
	cursor := uint64(0)
	for _, ex := range excluded {
		if ex.Position > cursor {
			included = append(included, StreamRange{Position: cursor, Size: ex.Position - cursor})
		}
		if next := ex.End(); next > cursor {
			cursor = next
		}
	}
	if universeSize > cursor {
		included = append(included, StreamRange{Position: cursor, Size: universeSize - cursor})
	}
	return included
}

// MergeNeighbors coalesces entries where ranges[i] and ranges[i+1] touch
// (ranges[i].Position+ranges[i].Size == ranges[i+1].Position). It does
// not sort; the caller must already have ranges in stream order.
func MergeNeighbors(ranges []StreamRange) []StreamRange {
	if len(ranges) == 0 {
		return ranges
	}
	merged := make([]StreamRange, 0, len(ranges))
	cur := ranges[0]
	for _, r := range ranges[1:] {
		if cur.End() == r.Position {
			cur.Size += r.Size
			continue
		}
		merged = append(merged, cur)
		cur = r
	}
	merged = append(merged, cur)
	return merged
}
