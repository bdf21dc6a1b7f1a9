package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImporter struct {
	mu         sync.Mutex
	imports    int
	vacuums    int
	importErr  error
	vacuumErr  error
	lastPath   string
	onImported func()
}

func (f *fakeImporter) Import(_ context.Context, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports++
	f.lastPath = path
	if f.importErr != nil {
		return 0, f.importErr
	}
	if f.onImported != nil {
		f.onImported()
	}
	return 3, nil
}

func (f *fakeImporter) Vacuum(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vacuums++
	return f.vacuumErr
}

type fakePurger struct{ purges int }

func (p *fakePurger) PurgeOrigin(context.Context) (int, error) {
	p.purges++
	return 1, nil
}

func writeSnapshot(t *testing.T, dir string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, "sponsorTimes.csv")
	require.NoError(t, os.WriteFile(path, []byte("videoID,startTime\n"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func newTestWorker(path string, imp SnapshotImporter, state *RefreshState, now time.Time) *ReloadWorker {
	w := NewReloadWorker(imp, state, nil, nil, zerolog.Nop(), ReloadWorkerConfig{
		Path:       path,
		Interval:   30 * time.Second,
		MinRecheck: 60 * time.Second,
	})
	w.now = func() time.Time { return now }
	return w
}

func TestReloadWorker_MissingFile(t *testing.T) {
	imp := &fakeImporter{}
	w := newTestWorker(filepath.Join(t.TempDir(), "absent.csv"), imp, NewRefreshState(), time.Now())

	outcome, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissing, outcome)
	assert.Zero(t, imp.imports)
}

func TestReloadWorker_FirstRunImportsAndRecordsFileMtime(t *testing.T) {
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeSnapshot(t, t.TempDir(), mtime)
	imp := &fakeImporter{}
	purger := &fakePurger{}
	state := NewRefreshState()

	w := newTestWorker(path, imp, state, mtime.Add(time.Hour))
	w.cache = purger

	outcome, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeImported, outcome)
	assert.Equal(t, 1, imp.imports)
	assert.Equal(t, 1, imp.vacuums)
	assert.Equal(t, path, imp.lastPath)
	assert.Equal(t, 1, purger.purges)

	assert.True(t, w.LastImported().Equal(mtime))

	state.Lock()
	defer state.Unlock()
	assert.True(t, state.LastApplied().Equal(mtime), "state must hold the file mtime, not wall-clock time")
}

func TestReloadWorker_UnchangedFileIsNoOp(t *testing.T) {
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeSnapshot(t, t.TempDir(), mtime)
	imp := &fakeImporter{}
	state := NewRefreshState()
	state.SetLastApplied(mtime)

	w := newTestWorker(path, imp, state, mtime.Add(time.Hour))

	outcome, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Zero(t, imp.imports, "no import transaction may be attempted")
}

func TestReloadWorker_ThrottlesWithinMinRecheck(t *testing.T) {
	applied := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeSnapshot(t, t.TempDir(), applied.Add(10*time.Second))
	imp := &fakeImporter{}
	state := NewRefreshState()
	state.SetLastApplied(applied)

	w := newTestWorker(path, imp, state, applied.Add(30*time.Second))

	outcome, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeThrottled, outcome)
	assert.Zero(t, imp.imports)
}

func TestReloadWorker_NewerFileAfterRecheckImports(t *testing.T) {
	applied := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	newer := applied.Add(2 * time.Hour)
	path := writeSnapshot(t, t.TempDir(), newer)
	imp := &fakeImporter{}
	state := NewRefreshState()
	state.SetLastApplied(applied)

	w := newTestWorker(path, imp, state, newer.Add(time.Minute))

	outcome, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeImported, outcome)
	assert.True(t, state.LastApplied().Equal(newer))
}

func TestReloadWorker_FailedImportLeavesStateUnchanged(t *testing.T) {
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeSnapshot(t, t.TempDir(), mtime)
	imp := &fakeImporter{importErr: errors.New("copy failed")}
	state := NewRefreshState()

	w := newTestWorker(path, imp, state, mtime.Add(time.Hour))

	outcome, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Zero(t, imp.vacuums)
	assert.True(t, state.Never())
	assert.True(t, w.LastImported().IsZero())

	// The next tick retries.
	imp.importErr = nil
	outcome, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeImported, outcome)
	assert.Equal(t, 2, imp.imports)
}

func TestReloadWorker_VacuumFailureDoesNotFailCycle(t *testing.T) {
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeSnapshot(t, t.TempDir(), mtime)
	imp := &fakeImporter{vacuumErr: errors.New("vacuum busy")}
	state := NewRefreshState()

	w := newTestWorker(path, imp, state, mtime.Add(time.Hour))

	outcome, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeImported, outcome)
	assert.True(t, state.LastApplied().Equal(mtime))
}

func TestReloadWorker_HoldsLockDuringImport(t *testing.T) {
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeSnapshot(t, t.TempDir(), mtime)
	state := NewRefreshState()

	lockedDuringImport := false
	imp := &fakeImporter{}
	imp.onImported = func() {
		lockedDuringImport = !state.mu.TryLock()
		if !lockedDuringImport {
			state.mu.Unlock()
		}
	}

	w := newTestWorker(path, imp, state, mtime.Add(time.Hour))
	_, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, lockedDuringImport)
	assert.True(t, state.mu.TryLock(), "lock must be released after the cycle")
	state.mu.Unlock()
}

func TestReloadWorker_CooldownAfterImportThenStops(t *testing.T) {
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeSnapshot(t, t.TempDir(), mtime)
	imp := &fakeImporter{}

	w := newTestWorker(path, imp, NewRefreshState(), mtime.Add(time.Hour))
	w.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	slept := make(chan time.Duration, 1)
	w.sleep = func(_ context.Context, d time.Duration) {
		slept <- d
		cancel()
	}

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case d := <-slept:
		assert.Equal(t, 60*time.Second, d)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not cool down after import")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, imp.imports)
}

func TestReloadWorker_StopCutsCooldownShort(t *testing.T) {
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeSnapshot(t, t.TempDir(), mtime)
	imported := make(chan struct{})
	imp := &fakeImporter{onImported: func() { close(imported) }}

	w := newTestWorker(path, imp, NewRefreshState(), mtime.Add(time.Hour))
	w.interval = time.Hour
	w.minRecheck = time.Hour

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-imported:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not import")
	}
	w.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not interrupt the cooldown")
	}
}

func TestReloadWorker_StopTwice(t *testing.T) {
	w := newTestWorker("unused.csv", &fakeImporter{}, NewRefreshState(), time.Now())
	assert.NotPanics(t, func() {
		w.Stop()
		w.Stop()
	})
}
