// Package ledger maintains the durable record of every business
// identifier ever observed, partitioned by sector. It classifies each
// run's identifiers as previously seen or new, and only ever grows: an
// id temporarily absent from one export must not be re-reported as new
// when it reappears.
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

// IDSet is a hash set of business identifiers. Membership tests are
// O(1); cardinalities in the hundreds of thousands are routine. The
// JSON form is a sorted string array, which is deterministic and
// compresses well.
type IDSet map[string]struct{}

// NewIDSet creates a set holding the given ids. Empty ids are ignored;
// identity-less records have no place in a ledger.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}

		set[id] = struct{}{}
	}

	return set
}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id string) bool {
	_, ok := s[id]

	return ok
}

// Add inserts id into the set. Empty ids are ignored.
func (s IDSet) Add(id string) {
	if id == "" {
		return
	}

	s[id] = struct{}{}
}

// Len returns the set cardinality.
func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// MarshalJSON encodes the set as a sorted array.
func (s IDSet) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(s.Sorted())
	if err != nil {
		return nil, fmt.Errorf("marshal id set: %w", err)
	}

	return data, nil
}

// UnmarshalJSON decodes the set from an array.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string

	err := json.Unmarshal(data, &ids)
	if err != nil {
		return fmt.Errorf("unmarshal id set: %w", err)
	}

	*s = NewIDSet(ids...)

	return nil
}

// Classify splits current against existing: newIDs are current ids not
// in existing, seen are current ids already recorded. With a nil or
// empty existing set (first run for the sector), every current id is
// new. Neither input is modified.
func Classify(existing, current IDSet) (newIDs, seen IDSet) {
	newIDs = make(IDSet)
	seen = make(IDSet)

	for id := range current {
		if existing.Contains(id) {
			seen[id] = struct{}{}
		} else {
			newIDs[id] = struct{}{}
		}
	}

	return newIDs, seen
}

// Union returns existing ∪ current as a fresh set. The result is always
// a superset of existing: the ledger records "ever seen", so ids are
// never removed, even for businesses gone from the current snapshot.
func Union(existing, current IDSet) IDSet {
	out := make(IDSet, len(existing)+len(current))

	for id := range existing {
		out[id] = struct{}{}
	}

	for id := range current {
		out[id] = struct{}{}
	}

	return out
}

// Ledger maps each sector to the set of ids ever observed for it.
//
// If a business's sector label changes between runs, it is flagged new
// again under the new sector and its old entry is left in place. That
// mirrors the upstream registry's behavior and is a known limitation,
// not something this engine tries to repair.
type Ledger map[registry.Sector]IDSet

// New creates an empty ledger.
func New() Ledger {
	return make(Ledger)
}

// Sector returns the id set recorded for the sector; a sector with no
// history yields an empty set, which is exactly the first-run case.
func (l Ledger) Sector(sector registry.Sector) IDSet {
	if set, ok := l[sector]; ok {
		return set
	}

	return IDSet{}
}

// TotalIDs returns the number of recorded ids across all sectors.
func (l Ledger) TotalIDs() int {
	total := 0
	for _, set := range l {
		total += set.Len()
	}

	return total
}
