package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/bertybuttface/sponsorblock-mirror/internal/metrics"
)

// ReloadOutcome is the result of one reload tick.
type ReloadOutcome string

const (
	OutcomeMissing   ReloadOutcome = "missing"
	OutcomeThrottled ReloadOutcome = "throttled"
	OutcomeUnchanged ReloadOutcome = "unchanged"
	OutcomeFailed    ReloadOutcome = "failed"
	OutcomeImported  ReloadOutcome = "imported"
)

// SnapshotImporter swaps a snapshot file into the live table.
type SnapshotImporter interface {
	// Import loads path into a shadow table and renames it over the live
	// table in one transaction. Any error leaves the live table untouched.
	Import(ctx context.Context, path string) (int64, error)
	// Vacuum runs storage maintenance on the live table after a commit.
	Vacuum(ctx context.Context) error
}

// OriginCachePurger drops relayed origin responses once local data changes.
type OriginCachePurger interface {
	PurgeOrigin(ctx context.Context) (int, error)
}

// ReloadWorker is the periodic background job that keeps the live table in
// sync with the snapshot file an external producer refreshes.
type ReloadWorker struct {
	importer   SnapshotImporter
	state      *RefreshState
	cache      OriginCachePurger
	metrics    *metrics.Collector
	logger     zerolog.Logger
	path       string
	interval   time.Duration
	minRecheck time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once

	// lastImported mirrors the refresh state's mtime (unix nanos) for
	// readers that must not take its lock.
	lastImported atomic.Int64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// ReloadWorkerConfig carries the worker's tunables.
type ReloadWorkerConfig struct {
	Path string
	// Interval between ticks.
	Interval time.Duration
	// MinRecheck throttles re-inspection after a success and is also the
	// cooldown held after each committed import.
	MinRecheck time.Duration
}

// NewReloadWorker creates a worker. state is owned by the caller so that a
// one-shot reload and the loop can never run an import at the same time.
func NewReloadWorker(importer SnapshotImporter, state *RefreshState, cache OriginCachePurger,
	m *metrics.Collector, logger zerolog.Logger, cfg ReloadWorkerConfig) *ReloadWorker {
	w := &ReloadWorker{
		importer:   importer,
		state:      state,
		cache:      cache,
		metrics:    m,
		logger:     logger.With().Str("component", "reload-worker").Logger(),
		path:       cfg.Path,
		interval:   cfg.Interval,
		minRecheck: cfg.MinRecheck,
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
	w.sleep = w.sleepCtx
	return w
}

// Start runs one tick immediately, then one every interval, until ctx is
// cancelled or Stop is called. After a committed import the worker sits out
// a cooldown of MinRecheck before the next tick.
func (w *ReloadWorker) Start(ctx context.Context) {
	w.logger.Info().
		Str("path", w.path).
		Dur("interval", w.interval).
		Dur("min_recheck", w.minRecheck).
		Msg("starting")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if outcome, _ := w.RunOnce(ctx); outcome == OutcomeImported {
			w.sleep(ctx, w.minRecheck)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			w.logger.Info().Msg("stopping (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Info().Msg("stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop, cutting a running cooldown short. It is
// safe to call more than once.
func (w *ReloadWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// RunOnce performs a single reload cycle under the refresh state lock. A
// failed cycle leaves the refresh state unchanged so the next tick retries.
func (w *ReloadWorker) RunOnce(ctx context.Context) (ReloadOutcome, error) {
	w.state.Lock()
	defer w.state.Unlock()

	outcome, err := w.cycle(ctx)
	w.metrics.RecordReload(string(outcome))
	if err != nil {
		w.logger.Error().Err(err).Str("outcome", string(outcome)).Msg("reload failed")
	}
	return outcome, err
}

func (w *ReloadWorker) cycle(ctx context.Context) (ReloadOutcome, error) {
	info, err := os.Stat(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return OutcomeMissing, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("stat snapshot: %w", err)
	}

	if !w.state.Never() && w.now().Sub(w.state.LastApplied()) < w.minRecheck {
		return OutcomeThrottled, nil
	}

	modified := info.ModTime()
	if !w.state.Never() && !modified.After(w.state.LastApplied()) {
		return OutcomeUnchanged, nil
	}

	start := w.now()
	w.logger.Info().Time("snapshot_mtime", modified).Msg("importing snapshot")

	rows, err := w.importer.Import(ctx, w.path)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("import snapshot: %w", err)
	}

	elapsed := w.now().Sub(start)
	w.logger.Info().
		Int64("rows", rows).
		Dur("duration_ms", elapsed).
		Msg("imported snapshot")

	if err := w.importer.Vacuum(ctx); err != nil {
		w.logger.Error().Err(err).Msg("vacuum failed")
	}

	if w.cache != nil {
		if n, err := w.cache.PurgeOrigin(ctx); err != nil {
			w.logger.Warn().Err(err).Msg("origin cache purge failed")
		} else if n > 0 {
			w.logger.Debug().Int("keys", n).Msg("purged origin cache")
		}
	}

	w.state.SetLastApplied(modified)
	w.lastImported.Store(modified.UnixNano())
	w.metrics.RecordImport(elapsed, rows, modified)
	return OutcomeImported, nil
}

// LastImported returns the mtime of the last snapshot this worker committed,
// or the zero time. It never blocks on a running import.
func (w *ReloadWorker) LastImported() time.Time {
	ns := w.lastImported.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// sleepCtx waits for d, ctx cancellation or Stop, whichever comes first.
func (w *ReloadWorker) sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-w.stopCh:
	}
}
