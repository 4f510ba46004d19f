// Package registry defines the food-business registry data model: the
// per-run business record, the sector taxonomy, and the classification
// of raw business-type labels into tracked sectors.
package registry

import "strings"

// UnknownAuthority is the sentinel bucket for records whose local
// authority field is empty or missing. Such records are counted, never
// dropped.
const UnknownAuthority = "Unknown"

// Record is one registry entry as observed in a single snapshot run.
// Records are constructed once per run from a record source and are
// immutable afterwards; only aggregated or derived forms persist.
type Record struct {
	// ID is the stable registry identifier (FHRSID in the UK scheme).
	// Empty for malformed entries; such records still count in
	// aggregation but are excluded wherever identity is required.
	ID string

	// Name is the trading name of the business, if known.
	Name string

	// BusinessType is the raw classification label from the source.
	BusinessType string

	// Authority is the local-authority name, normalized so it is never
	// empty (see NormalizeAuthority).
	Authority string

	// Postcode is carried through to export rows when present.
	Postcode string

	// Sector is the canonical tracked sector this record was classified
	// into at ingestion.
	Sector Sector
}

// NormalizeAuthority maps an authority label to its canonical form:
// surrounding whitespace trimmed, with empty values bucketed under
// [UnknownAuthority].
func NormalizeAuthority(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownAuthority
	}

	return name
}
