package runner

import (
	"errors"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/snapshot"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/persist"
)

// Summary is the lean per-run counts output consumed by the reporting
// surface: sector populations plus how many businesses were first seen
// this run.
type Summary struct {
	Date          string         `json:"date"`
	Counts        map[string]int `json:"counts"`
	NewBusinesses int            `json:"new_businesses_this_run"`
}

// HistoryEntry is one run's counts in the longitudinal history file.
type HistoryEntry struct {
	Date   string         `json:"date"`
	Counts map[string]int `json:"counts"`
}

// buildCounts flattens a count table into the summary counts map, with
// a "total" key across the tracked sectors.
func buildCounts(table snapshot.CountTable, sectors []registry.Sector) map[string]int {
	counts := make(map[string]int, len(sectors)+1)

	total := 0
	for _, sector := range sectors {
		n := table.SectorTotal(sector)
		counts[string(sector)] = n
		total += n
	}

	counts["total"] = total

	return counts
}

// upsertHistory appends the entry to the history, replacing the last
// entry when it carries the same date. Re-running on the same day
// refreshes that day's counts instead of duplicating them.
func upsertHistory(history []HistoryEntry, entry HistoryEntry) []HistoryEntry {
	if n := len(history); n > 0 && history[n-1].Date == entry.Date {
		history[n-1] = entry

		return history
	}

	return append(history, entry)
}

// loadHistory reads the counts history, tolerating a missing file.
func loadHistory(dir string, p *persist.Persister[[]HistoryEntry]) ([]HistoryEntry, error) {
	history, err := p.Load(dir)
	if err != nil {
		if errors.Is(err, persist.ErrNoState) {
			return nil, nil
		}

		return nil, err
	}

	return *history, nil
}
