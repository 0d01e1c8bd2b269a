package bfs

import (
	"slices"
	"strings"
)

func sortIDs(ids []string) { slices.Sort(ids) }

// sortComponents orders by size descending, then by first (smallest) ID.
func sortComponents(comps [][]string) {
	slices.SortStableFunc(comps, func(a, b []string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a[0], b[0])
	})
}
