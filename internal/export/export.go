// Package export turns newly-observed business records into rows of
// the monthly, sector-scoped export logs. The logs are append-only CSV
// files: a run only ever adds rows, it never rewrites what an earlier
// run committed.
package export

import (
	"sort"
	"time"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/ledger"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

// dateLayout is the observation-date format used in export rows and
// file names.
const dateLayout = "2006-01-02"

// monthLayout is the calendar-month format used in export file names.
const monthLayout = "2006-01"

// Row is one exported new-business observation. DateAdded, ID,
// Authority, and Sector are always populated; the rest are
// best-effort descriptive fields from the source record.
type Row struct {
	DateAdded    string
	ID           string
	Name         string
	BusinessType string
	Authority    string
	Postcode     string
	Sector       registry.Sector
}

// GroupNew filters the run's records down to those classified new for
// their sector, stamps them with the observation date, and groups them
// by sector. Records without an id never export; identity is what makes
// a row meaningful downstream. Rows within a sector are ordered by id
// so output is deterministic.
func GroupNew(newBySector map[registry.Sector]ledger.IDSet, records []registry.Record, observed time.Time) map[registry.Sector][]Row {
	date := observed.Format(dateLayout)
	out := make(map[registry.Sector][]Row)

	for _, rec := range records {
		if rec.ID == "" {
			continue
		}

		if !newBySector[rec.Sector].Contains(rec.ID) {
			continue
		}

		out[rec.Sector] = append(out[rec.Sector], Row{
			DateAdded:    date,
			ID:           rec.ID,
			Name:         rec.Name,
			BusinessType: rec.BusinessType,
			Authority:    registry.NormalizeAuthority(rec.Authority),
			Postcode:     rec.Postcode,
			Sector:       rec.Sector,
		})
	}

	for sector := range out {
		rows := out[sector]
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	}

	return out
}
