package ranking

import (
	"time"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

// dateLayout is the run-date format used in ranking snapshots.
const dateLayout = "2006-01-02"

// Snapshot is the point-in-time ranking output for one run: the run
// date plus a growth/reductions pair per tracked sector. It fully
// replaces the previous snapshot file each run.
type Snapshot struct {
	Date     string                     `json:"date"`
	BySector map[registry.Sector]Result `json:"by_sector"`
}

// NewSnapshot builds a snapshot scaffold for the given run date with an
// empty result per tracked sector, so every tracked sector is always
// present in the output even when nothing moved.
func NewSnapshot(runDate time.Time, sectors []registry.Sector) *Snapshot {
	bySector := make(map[registry.Sector]Result, len(sectors))
	for _, sector := range sectors {
		bySector[sector] = Result{Growth: []Row{}, Reductions: []Row{}}
	}

	return &Snapshot{
		Date:     runDate.Format(dateLayout),
		BySector: bySector,
	}
}
