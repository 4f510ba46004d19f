// Package snapshot aggregates one run's business records into
// per-sector, per-authority population counts.
package snapshot

import (
	"sort"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

// CountTable maps sector → authority → record count for one snapshot.
// The zero-count pairs are absent: a (sector, authority) key exists only
// if at least one record hit it. The nested-map shape is also the
// persisted JSON form of the "previous" table.
type CountTable map[registry.Sector]map[string]int

// NewCountTable creates an empty count table.
func NewCountTable() CountTable {
	return make(CountTable)
}

// Add increments the count for the given sector and authority.
func (t CountTable) Add(sector registry.Sector, authority string, n int) {
	byAuthority, ok := t[sector]
	if !ok {
		byAuthority = make(map[string]int)
		t[sector] = byAuthority
	}

	byAuthority[authority] += n
}

// Get returns the count for (sector, authority), zero when absent.
func (t CountTable) Get(sector registry.Sector, authority string) int {
	return t[sector][authority]
}

// Authorities returns the authority names present for a sector, sorted
// ascending for deterministic iteration.
func (t CountTable) Authorities(sector registry.Sector) []string {
	byAuthority := t[sector]

	names := make([]string, 0, len(byAuthority))
	for name := range byAuthority {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// SectorTotal returns the total record count for a sector.
func (t CountTable) SectorTotal(sector registry.Sector) int {
	total := 0
	for _, n := range t[sector] {
		total += n
	}

	return total
}

// Total returns the total record count across all sectors.
func (t CountTable) Total() int {
	total := 0
	for sector := range t {
		total += t.SectorTotal(sector)
	}

	return total
}

// Aggregate reduces an unordered record sequence into a count table.
// Each record increments exactly one (sector, authority) cell; duplicate
// ids count once per occurrence, since a registry snapshot carries one
// record per business. Records with an empty authority land in the
// "Unknown" bucket rather than being dropped. The reduction is
// commutative, so input order never changes the result.
func Aggregate(records []registry.Record) CountTable {
	table := NewCountTable()

	for _, rec := range records {
		table.Add(rec.Sector, registry.NormalizeAuthority(rec.Authority), 1)
	}

	return table
}
