package runner

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/export"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/ledger"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/ranking"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/snapshot"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/source"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/persist"
)

var runDate = time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)

type dirs struct {
	data    string
	exports string
}

func newRunner(t *testing.T) (*Runner, dirs) {
	t.Helper()

	d := dirs{data: t.TempDir(), exports: t.TempDir()}

	r := New(Options{
		DataDir:      d.data,
		ExportDir:    d.exports,
		RankingLimit: ranking.DefaultLimit,
		Sectors:      registry.NewSectorSet(registry.DefaultTrackedSectors()),
	})

	return r, d
}

func mobileRecord(id, authority string) registry.Record {
	return registry.Record{ID: id, Authority: authority, Sector: registry.SectorMobile}
}

func loadRankings(t *testing.T, dir string) ranking.Snapshot {
	t.Helper()

	snap, err := persist.NewPersister[ranking.Snapshot]("rankings_latest", persist.NewJSONCodec()).Load(dir)
	require.NoError(t, err)

	return *snap
}

func loadLedger(t *testing.T, dir string) ledger.Ledger {
	t.Helper()

	led, err := persist.NewPersister[ledger.Ledger]("ledger", persist.NewLZ4JSONCodec()).Load(dir)
	require.NoError(t, err)

	return *led
}

func countCSVRows(t *testing.T, path string) int {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)

	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	return len(rows)
}

func TestRun_ColdStart(t *testing.T) {
	t.Parallel()

	r, d := newRunner(t)

	outcome, err := r.Run(context.Background(), source.Static{mobileRecord("1", "X")}, runDate)

	require.NoError(t, err)
	assert.True(t, outcome.ColdStart)
	assert.Equal(t, 1, outcome.Records)
	assert.Equal(t, 1, outcome.NewBusinesses)

	// Rankings: growth [{X,+1,1}], no reductions anywhere.
	snap := loadRankings(t, d.data)

	assert.Equal(t, "2026-08-23", snap.Date)
	assert.Equal(t, []ranking.Row{{Authority: "X", Delta: 1, Current: 1}}, snap.BySector[registry.SectorMobile].Growth)
	assert.Empty(t, snap.BySector[registry.SectorMobile].Reductions)

	// Ledger recorded the id under MOBILE.
	led := loadLedger(t, d.data)

	assert.True(t, led.Sector(registry.SectorMobile).Contains("1"))

	// Export log holds exactly one row plus header.
	path := filepath.Join(d.exports, export.FileName(registry.SectorMobile, runDate))

	assert.Equal(t, 2, countCSVRows(t, path))

	// Dated copy and summaries written.
	assert.FileExists(t, filepath.Join(d.data, "rankings_2026-08-23.json"))
	assert.FileExists(t, filepath.Join(d.data, "latest_snapshot.json"))
	assert.FileExists(t, filepath.Join(d.data, "counts_history.json"))
}

func TestRun_SecondRunNothingNew(t *testing.T) {
	t.Parallel()

	r, d := newRunner(t)
	src := source.Static{mobileRecord("1", "X")}

	_, err := r.Run(context.Background(), src, runDate)
	require.NoError(t, err)

	outcome, err := r.Run(context.Background(), src, runDate.AddDate(0, 0, 7))

	require.NoError(t, err)
	assert.False(t, outcome.ColdStart)
	assert.Zero(t, outcome.NewBusinesses)

	// Zero delta: excluded from both lists.
	snap := loadRankings(t, d.data)

	assert.Empty(t, snap.BySector[registry.SectorMobile].Growth)
	assert.Empty(t, snap.BySector[registry.SectorMobile].Reductions)

	// Same month, already-seen id: no row re-appended.
	path := filepath.Join(d.exports, export.FileName(registry.SectorMobile, runDate))

	assert.Equal(t, 2, countCSVRows(t, path))
}

func TestRun_Disappearance(t *testing.T) {
	t.Parallel()

	r, d := newRunner(t)

	first := source.Static{
		{ID: "1", Authority: "Y", Sector: registry.SectorPubBar},
		{ID: "2", Authority: "Y", Sector: registry.SectorPubBar},
		{ID: "3", Authority: "Y", Sector: registry.SectorPubBar},
		{ID: "4", Authority: "Y", Sector: registry.SectorPubBar},
	}

	_, err := r.Run(context.Background(), first, runDate)
	require.NoError(t, err)

	// Empty snapshot: everything previously present shows as reduction.
	outcome, err := r.Run(context.Background(), source.Static{}, runDate.AddDate(0, 0, 7))

	require.NoError(t, err)
	assert.Zero(t, outcome.Records)

	snap := loadRankings(t, d.data)

	assert.Equal(t, []ranking.Row{{Authority: "Y", Delta: -4, Current: 0}},
		snap.BySector[registry.SectorPubBar].Reductions)

	// Disappearance never removes ledger entries.
	led := loadLedger(t, d.data)

	assert.Equal(t, 4, led.Sector(registry.SectorPubBar).Len())
}

func TestRun_AppendsAcrossRunsWithinMonth(t *testing.T) {
	t.Parallel()

	r, d := newRunner(t)

	_, err := r.Run(context.Background(), source.Static{mobileRecord("1", "X")}, runDate)
	require.NoError(t, err)

	later := runDate.AddDate(0, 0, 3)

	_, err = r.Run(context.Background(), source.Static{
		mobileRecord("1", "X"),
		mobileRecord("2", "X"),
	}, later)
	require.NoError(t, err)

	// Header + one row per run; id 1 was not re-appended.
	path := filepath.Join(d.exports, export.FileName(registry.SectorMobile, runDate))

	assert.Equal(t, 3, countCSVRows(t, path))
}

func TestRun_CountsHistoryUpsertsSameDate(t *testing.T) {
	t.Parallel()

	r, d := newRunner(t)

	_, err := r.Run(context.Background(), source.Static{mobileRecord("1", "X")}, runDate)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), source.Static{
		mobileRecord("1", "X"),
		mobileRecord("2", "X"),
	}, runDate)
	require.NoError(t, err)

	history, err := persist.NewPersister[[]HistoryEntry]("counts_history", persist.NewJSONCodec()).Load(d.data)

	require.NoError(t, err)
	require.Len(t, *history, 1, "same-date rerun must replace, not append")
	assert.Equal(t, 2, (*history)[0].Counts[string(registry.SectorMobile)])
}

func TestRun_PreviousTableReplacedWholesale(t *testing.T) {
	t.Parallel()

	r, d := newRunner(t)

	_, err := r.Run(context.Background(), source.Static{mobileRecord("1", "X")}, runDate)
	require.NoError(t, err)

	table, err := persist.NewPersister[snapshot.CountTable]("previous_counts", persist.NewJSONCodec()).Load(d.data)

	require.NoError(t, err)
	assert.Equal(t, 1, table.Get(registry.SectorMobile, "X"))
}

func TestRun_SectorFailureIsolatedAndUncommitted(t *testing.T) {
	t.Parallel()

	r, d := newRunner(t)

	_, err := r.Run(context.Background(), source.Static{mobileRecord("1", "X")}, runDate)
	require.NoError(t, err)

	ledgerBefore, err := os.ReadFile(filepath.Join(d.data, "ledger.json.lz4"))
	require.NoError(t, err)

	// Make the MOBILE export log unwritable by squatting a directory on
	// its path; HOTEL is unaffected.
	mobilePath := filepath.Join(d.exports, export.FileName(registry.SectorMobile, runDate))
	require.NoError(t, os.Remove(mobilePath))
	require.NoError(t, os.Mkdir(mobilePath, 0o755))

	_, err = r.Run(context.Background(), source.Static{
		mobileRecord("2", "X"),
		{ID: "9", Authority: "Z", Sector: registry.SectorHotel},
	}, runDate)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sector MOBILE")

	// The healthy sector's rows were still appended.
	hotelPath := filepath.Join(d.exports, export.FileName(registry.SectorHotel, runDate))

	assert.Equal(t, 2, countCSVRows(t, hotelPath))

	// But the run did not commit: ledger bytes are untouched, so the
	// failed sector's ids will classify as new again next run.
	ledgerAfter, err := os.ReadFile(filepath.Join(d.data, "ledger.json.lz4"))

	require.NoError(t, err)
	assert.Equal(t, ledgerBefore, ledgerAfter)
}

func TestRun_PersistFailureLeavesPriorState(t *testing.T) {
	t.Parallel()

	r, d := newRunner(t)

	_, err := r.Run(context.Background(), source.Static{mobileRecord("1", "X")}, runDate)
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(d.data, "previous_counts.json"))
	require.NoError(t, err)

	// A directory squatting the rankings path makes the atomic rename fail.
	rankingsPath := filepath.Join(d.data, "rankings_latest.json")
	require.NoError(t, os.Remove(rankingsPath))
	require.NoError(t, os.Mkdir(rankingsPath, 0o755))

	_, err = r.Run(context.Background(), source.Static{mobileRecord("2", "Y")}, runDate.AddDate(0, 0, 1))

	require.Error(t, err)

	after, err := os.ReadFile(filepath.Join(d.data, "previous_counts.json"))

	require.NoError(t, err)
	assert.Equal(t, before, after, "failed run must not touch prior state")
}

func TestRun_UntrackedSectorConfigKeepsLedgerHistory(t *testing.T) {
	t.Parallel()

	d := dirs{data: t.TempDir(), exports: t.TempDir()}

	full := New(Options{
		DataDir: d.data, ExportDir: d.exports,
		RankingLimit: ranking.DefaultLimit,
		Sectors:      registry.NewSectorSet(registry.DefaultTrackedSectors()),
	})

	_, err := full.Run(context.Background(), source.Static{mobileRecord("1", "X")}, runDate)
	require.NoError(t, err)

	hotelsOnly := New(Options{
		DataDir: d.data, ExportDir: d.exports,
		RankingLimit: ranking.DefaultLimit,
		Sectors:      registry.NewSectorSet([]registry.Sector{registry.SectorHotel}),
	})

	_, err = hotelsOnly.Run(context.Background(), source.Static{
		{ID: "9", Authority: "Z", Sector: registry.SectorHotel},
	}, runDate.AddDate(0, 0, 7))
	require.NoError(t, err)

	led := loadLedger(t, d.data)

	assert.True(t, led.Sector(registry.SectorMobile).Contains("1"),
		"dropping a sector from config must not erase its ledger history")
	assert.True(t, led.Sector(registry.SectorHotel).Contains("9"))
}

func TestRun_MetricsTextfile(t *testing.T) {
	t.Parallel()

	d := dirs{data: t.TempDir(), exports: t.TempDir()}
	metricsPath := filepath.Join(t.TempDir(), "fbpulse.prom")

	r := New(Options{
		DataDir: d.data, ExportDir: d.exports,
		RankingLimit: ranking.DefaultLimit,
		Sectors:      registry.NewSectorSet(registry.DefaultTrackedSectors()),
		MetricsFile:  metricsPath,
	})

	_, err := r.Run(context.Background(), source.Static{mobileRecord("1", "X")}, runDate)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)

	require.NoError(t, err)
	assert.Contains(t, string(data), "fbpulse_run_records 1")
	assert.Contains(t, string(data), `fbpulse_run_new_businesses{sector="MOBILE"} 1`)
}

func TestUpsertHistory(t *testing.T) {
	t.Parallel()

	history := upsertHistory(nil, HistoryEntry{Date: "2026-08-01", Counts: map[string]int{"total": 1}})
	history = upsertHistory(history, HistoryEntry{Date: "2026-08-08", Counts: map[string]int{"total": 2}})
	history = upsertHistory(history, HistoryEntry{Date: "2026-08-08", Counts: map[string]int{"total": 3}})

	require.Len(t, history, 2)
	assert.Equal(t, 3, history[1].Counts["total"])
}
