package registry

import "strings"

// Sector is a canonical tracked business-type category. Sectors are the
// unit of partitioning for ledgers, rankings, and export logs.
type Sector string

// Canonical sectors. SectorOther is the catch-all for business types
// outside the tracked set; it never enters the engine.
const (
	SectorMobile     Sector = "MOBILE"
	SectorRestaurant Sector = "RESTAURANT_CAFE"
	SectorTakeaway   Sector = "TAKEAWAY"
	SectorPubBar     Sector = "PUB_BAR"
	SectorHotel      Sector = "HOTEL"
	SectorOther      Sector = "OTHER"
)

// DefaultTrackedSectors is the standard tracked sector set, in stable
// reporting order.
func DefaultTrackedSectors() []Sector {
	return []Sector{SectorMobile, SectorRestaurant, SectorPubBar, SectorTakeaway, SectorHotel}
}

// SectorSet is the closed set of sectors the engine processes. It is
// configuration, not data: changing it changes which sectors the
// ledger, ranker, and exporter see, with no migration of previously
// tracked state.
type SectorSet struct {
	order   []Sector
	members map[Sector]struct{}
}

// NewSectorSet builds a sector set preserving the given order and
// dropping duplicates. SectorOther is never tracked.
func NewSectorSet(sectors []Sector) SectorSet {
	set := SectorSet{members: make(map[Sector]struct{}, len(sectors))}

	for _, s := range sectors {
		if s == SectorOther {
			continue
		}

		if _, ok := set.members[s]; ok {
			continue
		}

		set.members[s] = struct{}{}
		set.order = append(set.order, s)
	}

	return set
}

// Contains reports whether the sector is tracked.
func (ss SectorSet) Contains(s Sector) bool {
	_, ok := ss.members[s]

	return ok
}

// Sectors returns the tracked sectors in their configured order.
func (ss SectorSet) Sectors() []Sector {
	out := make([]Sector, len(ss.order))
	copy(out, ss.order)

	return out
}

// Len returns the number of tracked sectors.
func (ss SectorSet) Len() int {
	return len(ss.order)
}

// ClassifySector maps a raw business-type label (and the trading name,
// which is the only reliable signal for mobile units) to a canonical
// sector. Labels outside the taxonomy map to SectorOther.
//
// The match order matters: "Mobile caterer" must win over the generic
// restaurant keywords that some authorities append to it.
func ClassifySector(businessType, businessName string) Sector {
	bt := strings.ToLower(businessType)
	name := strings.ToLower(businessName)

	switch {
	case strings.Contains(bt, "mobile") || strings.Contains(name, "mobile"):
		return SectorMobile
	case strings.Contains(bt, "restaurant") || strings.Contains(bt, "cafe") ||
		strings.Contains(bt, "café") || strings.Contains(bt, "coffee"):
		return SectorRestaurant
	case strings.Contains(bt, "take"):
		return SectorTakeaway
	case strings.Contains(bt, "pub") || strings.Contains(bt, "bar"):
		return SectorPubBar
	case strings.Contains(bt, "hotel"):
		return SectorHotel
	default:
		return SectorOther
	}
}
