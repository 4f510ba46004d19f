// Package ranking computes per-authority population deltas between two
// snapshot count tables and extracts bounded top-N growth and reduction
// lists per sector.
package ranking

import (
	"sort"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/snapshot"
)

// DefaultLimit is the standard bound on each ranking list.
const DefaultLimit = 10

// Row is one authority's movement within a sector.
type Row struct {
	// Authority is the local-authority name.
	Authority string `json:"la"`
	// Delta is current count minus previous count; never zero in a
	// ranking list.
	Delta int `json:"delta"`
	// Current is the authority's count in the current snapshot,
	// informational only.
	Current int `json:"current"`
}

// Result holds one sector's bounded ranking lists. Growth and
// Reductions are disjoint by construction (partitioned on delta sign;
// zero deltas appear in neither).
type Result struct {
	// Growth is sorted descending by delta, at most the configured
	// limit of rows.
	Growth []Row `json:"growth"`
	// Reductions is sorted ascending by delta (most severe decrease
	// first), at most the configured limit of rows.
	Reductions []Row `json:"reductions"`
}

// Rank compares the previous and current count tables for one sector.
//
// Every authority present in either table is considered; an authority
// that vanished from the current snapshot ranks with current count 0
// and a fully negative delta. Equal deltas are broken by authority name
// ascending, so output is byte-identical across runs and platforms.
func Rank(previous, current snapshot.CountTable, sector registry.Sector, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	authorities := unionAuthorities(previous, current, sector)

	var growth, reductions []Row

	for _, authority := range authorities {
		curr := current.Get(sector, authority)
		delta := curr - previous.Get(sector, authority)

		switch {
		case delta > 0:
			growth = append(growth, Row{Authority: authority, Delta: delta, Current: curr})
		case delta < 0:
			reductions = append(reductions, Row{Authority: authority, Delta: delta, Current: curr})
		}
	}

	sort.SliceStable(growth, func(i, j int) bool {
		if growth[i].Delta != growth[j].Delta {
			return growth[i].Delta > growth[j].Delta
		}

		return growth[i].Authority < growth[j].Authority
	})

	sort.SliceStable(reductions, func(i, j int) bool {
		if reductions[i].Delta != reductions[j].Delta {
			return reductions[i].Delta < reductions[j].Delta
		}

		return reductions[i].Authority < reductions[j].Authority
	})

	return Result{
		Growth:     truncate(growth, limit),
		Reductions: truncate(reductions, limit),
	}
}

// unionAuthorities returns the sorted union of authority names present
// for the sector in either table.
func unionAuthorities(previous, current snapshot.CountTable, sector registry.Sector) []string {
	seen := make(map[string]struct{})

	for _, name := range previous.Authorities(sector) {
		seen[name] = struct{}{}
	}

	for _, name := range current.Authorities(sector) {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func truncate(rows []Row, limit int) []Row {
	if len(rows) > limit {
		return rows[:limit]
	}

	return rows
}
