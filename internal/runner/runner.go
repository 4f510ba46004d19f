// Package runner sequences one pipeline run: ingest records, aggregate,
// rank deltas against the previous snapshot, classify and export newly
// observed businesses, and persist the updated state. It is the only
// component that touches the filesystem between runs; the engine
// packages it drives are pure given explicit prior state.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/export"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/ledger"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/ranking"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/snapshot"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/source"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/persist"
)

// State file basenames under the data directory.
const (
	previousCountsBase = "previous_counts"
	ledgerBase         = "ledger"
	rankingsLatestBase = "rankings_latest"
	rankingsDatedBase  = "rankings_" // + YYYY-MM-DD
	summaryBase        = "latest_snapshot"
	historyBase        = "counts_history"
)

const dateLayout = "2006-01-02"

// Options configures a Runner.
type Options struct {
	// DataDir holds all cross-run state and derived outputs.
	DataDir string

	// ExportDir receives the monthly new-business CSV logs.
	ExportDir string

	// RankingLimit bounds each growth/reduction list.
	RankingLimit int

	// Sectors is the tracked sector set.
	Sectors registry.SectorSet

	// MetricsFile, when non-empty, receives Prometheus textfile output
	// after each run. Failures there are logged, not fatal: metrics are
	// not run state.
	MetricsFile string

	Logger *slog.Logger
	Tracer trace.Tracer
}

// Outcome summarizes one completed run.
type Outcome struct {
	RunDate       time.Time
	Records       int
	NewBusinesses int
	NewBySector   map[registry.Sector]int
	Rankings      *ranking.Snapshot

	// ColdStart is true when no prior ledger existed.
	ColdStart bool
}

// Runner executes pipeline runs against one data directory. A single
// run at a time is a hard precondition; concurrent runs against the
// same directory are unsupported.
type Runner struct {
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics

	tables  *persist.Persister[snapshot.CountTable]
	ledgers *persist.Persister[ledger.Ledger]
	summary *persist.Persister[Summary]
	history *persist.Persister[[]HistoryEntry]
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("runner")
	}

	return &Runner{
		opts:    opts,
		logger:  opts.Logger,
		tracer:  opts.Tracer,
		metrics: NewMetrics(),
		tables:  persist.NewPersister[snapshot.CountTable](previousCountsBase, persist.NewJSONCodec()),
		ledgers: persist.NewPersister[ledger.Ledger](ledgerBase, persist.NewLZ4JSONCodec()),
		summary: persist.NewPersister[Summary](summaryBase, persist.NewJSONCodec()),
		history: persist.NewPersister[[]HistoryEntry](historyBase, persist.NewJSONCodec()),
	}
}

// sectorOutcome carries one sector's fan-out results.
type sectorOutcome struct {
	sector   registry.Sector
	result   ranking.Result
	newCount int
	err      error
}

// Run executes one full pipeline run with records from src, observed at
// runDate. On any per-sector or persistence failure the previously
// persisted state is left untouched and the run does not commit.
func (r *Runner) Run(ctx context.Context, src source.Source, runDate time.Time) (*Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "run")
	defer span.End()

	started := time.Now()

	err := os.MkdirAll(r.opts.DataDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", r.opts.DataDir, err)
	}

	records, err := r.ingest(ctx, src)
	if err != nil {
		return nil, err
	}

	current := snapshot.Aggregate(records)

	previous, led, coldStart, err := r.loadState(ctx)
	if err != nil {
		return nil, err
	}

	currentIDs := idsBySector(records)

	newBySector := make(map[registry.Sector]ledger.IDSet, r.opts.Sectors.Len())
	for _, sector := range r.opts.Sectors.Sectors() {
		newIDs, _ := ledger.Classify(led.Sector(sector), currentIDs[sector])
		newBySector[sector] = newIDs
	}

	rows := export.GroupNew(newBySector, records, runDate)

	outcomes, err := r.fanOut(ctx, previous, current, runDate, rows)
	if err != nil {
		return nil, err
	}

	result := ranking.NewSnapshot(runDate, r.opts.Sectors.Sectors())

	outcome := &Outcome{
		RunDate:     runDate,
		Records:     len(records),
		NewBySector: make(map[registry.Sector]int, len(outcomes)),
		Rankings:    result,
		ColdStart:   coldStart,
	}

	for _, so := range outcomes {
		result.BySector[so.sector] = so.result
		outcome.NewBySector[so.sector] = so.newCount
		outcome.NewBusinesses += so.newCount
	}

	updated := ledger.New()
	for _, sector := range r.opts.Sectors.Sectors() {
		updated[sector] = ledger.Union(led.Sector(sector), currentIDs[sector])
	}

	// Carry forward sectors no longer tracked; the ledger records "ever
	// seen" and dropping a sector from config must not erase history.
	for sector, ids := range led {
		if _, ok := updated[sector]; !ok {
			updated[sector] = ids
		}
	}

	err = r.persistState(ctx, current, updated, result, outcome)
	if err != nil {
		return nil, err
	}

	r.recordMetrics(outcome, updated, time.Since(started))

	r.logger.InfoContext(ctx, "run complete",
		"date", outcome.RunDate.Format(dateLayout),
		"records", humanize.Comma(int64(outcome.Records)),
		"new_businesses", outcome.NewBusinesses,
		"duration", time.Since(started).Round(time.Millisecond),
	)

	return outcome, nil
}

// ingest pulls the run's records from the source.
func (r *Runner) ingest(ctx context.Context, src source.Source) ([]registry.Record, error) {
	ctx, span := r.tracer.Start(ctx, "ingest")
	defer span.End()

	records, err := src.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("record source: %w", err)
	}

	if len(records) == 0 {
		// Not an error: the engine computes exactly what the data
		// implies. Whether to proceed on an empty snapshot is the
		// scheduler's call, made upstream of this run.
		r.logger.WarnContext(ctx, "record source yielded zero records")
	} else {
		r.logger.InfoContext(ctx, "parsed establishments",
			"records", humanize.Comma(int64(len(records))))
	}

	return records, nil
}

// loadState reads the previous count table and the ledger. Missing
// files are cold starts, not failures.
func (r *Runner) loadState(ctx context.Context) (snapshot.CountTable, ledger.Ledger, bool, error) {
	_, span := r.tracer.Start(ctx, "load-state")
	defer span.End()

	previous, err := r.tables.Load(r.opts.DataDir)
	if err != nil {
		if !errors.Is(err, persist.ErrNoState) {
			return nil, nil, false, fmt.Errorf("load previous counts: %w", err)
		}

		r.logger.InfoContext(ctx, "no previous count table, cold start for rankings")

		empty := snapshot.NewCountTable()
		previous = &empty
	}

	coldStart := false

	led, err := r.ledgers.Load(r.opts.DataDir)
	if err != nil {
		if !errors.Is(err, persist.ErrNoState) {
			return nil, nil, false, fmt.Errorf("load ledger: %w", err)
		}

		r.logger.InfoContext(ctx, "no ledger, cold start: every record will classify as new")

		coldStart = true

		fresh := ledger.New()
		led = &fresh
	}

	return *previous, *led, coldStart, nil
}

// fanOut ranks and exports each tracked sector concurrently. Sectors
// are independent partitions; failures are collected per sector so one
// sector's failure never suppresses another's output.
func (r *Runner) fanOut(
	ctx context.Context,
	previous, current snapshot.CountTable,
	runDate time.Time,
	rows map[registry.Sector][]export.Row,
) ([]sectorOutcome, error) {
	ctx, span := r.tracer.Start(ctx, "rank-and-export")
	defer span.End()

	sectors := r.opts.Sectors.Sectors()
	if len(sectors) == 0 {
		return nil, nil
	}

	log := export.NewLog(r.opts.ExportDir)

	outcomes := make([]sectorOutcome, len(sectors))

	var g errgroup.Group
	g.SetLimit(len(sectors))

	for i, sector := range sectors {
		i, sector := i, sector
		g.Go(func() error {
			outcomes[i] = r.runSector(ctx, sector, previous, current, runDate, log, rows[sector])

			// Errors are joined below; returning them here would stop
			// the other sectors.
			return nil
		})
	}

	_ = g.Wait()

	var errs []error

	for _, so := range outcomes {
		if so.err != nil {
			errs = append(errs, fmt.Errorf("sector %s: %w", so.sector, so.err))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return outcomes, nil
}

func (r *Runner) runSector(
	ctx context.Context,
	sector registry.Sector,
	previous, current snapshot.CountTable,
	runDate time.Time,
	log *export.Log,
	rows []export.Row,
) sectorOutcome {
	so := sectorOutcome{sector: sector}

	so.result = ranking.Rank(previous, current, sector, r.opts.RankingLimit)
	so.newCount = len(rows)

	err := log.Append(sector, runDate, rows)
	if err != nil {
		so.err = err

		return so
	}

	if so.newCount > 0 {
		r.logger.DebugContext(ctx, "exported new businesses",
			"sector", sector, "count", so.newCount)
	}

	return so
}

// persistState commits the run: derived outputs first, then the two
// files the next run's correctness depends on. Every write is atomic;
// any failure aborts the commit with prior state intact.
func (r *Runner) persistState(
	ctx context.Context,
	current snapshot.CountTable,
	updated ledger.Ledger,
	result *ranking.Snapshot,
	outcome *Outcome,
) error {
	ctx, span := r.tracer.Start(ctx, "persist-state")
	defer span.End()

	dir := r.opts.DataDir
	jsonCodec := persist.NewJSONCodec()

	err := persist.SaveState(dir, rankingsLatestBase, jsonCodec, result)
	if err != nil {
		return fmt.Errorf("persist rankings: %w", err)
	}

	err = persist.SaveState(dir, rankingsDatedBase+result.Date, jsonCodec, result)
	if err != nil {
		return fmt.Errorf("persist dated rankings: %w", err)
	}

	counts := buildCounts(current, r.opts.Sectors.Sectors())

	err = r.summary.Save(dir, &Summary{
		Date:          result.Date,
		Counts:        counts,
		NewBusinesses: outcome.NewBusinesses,
	})
	if err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}

	history, err := loadHistory(dir, r.history)
	if err != nil {
		return fmt.Errorf("load counts history: %w", err)
	}

	history = upsertHistory(history, HistoryEntry{Date: result.Date, Counts: counts})

	err = r.history.Save(dir, &history)
	if err != nil {
		return fmt.Errorf("persist counts history: %w", err)
	}

	err = r.tables.Save(dir, &current)
	if err != nil {
		return fmt.Errorf("persist count table: %w", err)
	}

	err = r.ledgers.Save(dir, &updated)
	if err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}

	r.logger.DebugContext(ctx, "state persisted", "dir", dir)

	return nil
}

func (r *Runner) recordMetrics(outcome *Outcome, led ledger.Ledger, elapsed time.Duration) {
	r.metrics.records.Set(float64(outcome.Records))
	r.metrics.ledgerSize.Set(float64(led.TotalIDs()))
	r.metrics.duration.Set(elapsed.Seconds())
	r.metrics.lastRun.SetToCurrentTime()

	for sector, n := range outcome.NewBySector {
		r.metrics.newBusinesses.WithLabelValues(string(sector)).Set(float64(n))
	}

	if r.opts.MetricsFile == "" {
		return
	}

	err := r.metrics.WriteTextfile(r.opts.MetricsFile)
	if err != nil {
		r.logger.Warn("metrics textfile not written", "error", err)
	}
}

// idsBySector collects each sector's identifier set from the run's
// records. Records without an id are skipped; identity is required for
// ledger classification.
func idsBySector(records []registry.Record) map[registry.Sector]ledger.IDSet {
	out := make(map[registry.Sector]ledger.IDSet)

	for _, rec := range records {
		if rec.ID == "" {
			continue
		}

		set, ok := out[rec.Sector]
		if !ok {
			set = ledger.NewIDSet()
			out[rec.Sector] = set
		}

		set.Add(rec.ID)
	}

	return out
}
