package reconciler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dockside/internal/config"
	"dockside/internal/containerizer"
	"dockside/internal/descriptor"
	"dockside/internal/state"
	"dockside/internal/unit"
	"dockside/pkg/logging"
)

func init() {
	logging.InitForCLI(logging.LevelError, &bytes.Buffer{})
}

const fleetURL = "https://git.example/fleet.git"

// fakeResolver maps source URLs to prepared directories.
type fakeResolver struct {
	dirs map[string]string
	fail map[string]error
	// cancel, when set, is called on Resolve to simulate a signal arriving
	// during generation.
	cancel context.CancelFunc
}

func (r *fakeResolver) Resolve(ctx context.Context, src config.Source) (string, error) {
	if r.cancel != nil {
		r.cancel()
		return "", ctx.Err()
	}
	if err := r.fail[src.URL]; err != nil {
		return "", err
	}
	return r.dirs[src.URL], nil
}

type runtimeCall struct {
	op         string
	id         unit.ID
	descriptor string
}

// fakeRuntime records calls in order and can fail or block selected units.
type fakeRuntime struct {
	mu           sync.Mutex
	calls        []runtimeCall
	failApply    map[unit.ID]bool
	failTeardown map[unit.ID]bool
	blockApply   bool
}

func (f *fakeRuntime) record(op string, target containerizer.Target) {
	data, _ := os.ReadFile(filepath.Join(target.Dir, unit.DescriptorFile))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runtimeCall{op: op, id: target.ID, descriptor: string(data)})
}

func (f *fakeRuntime) Apply(ctx context.Context, target containerizer.Target) error {
	f.record("apply", target)
	if f.blockApply {
		<-ctx.Done()
		return &containerizer.ApplyError{Unit: target.ID, Err: ctx.Err()}
	}
	if f.failApply[target.ID] {
		return &containerizer.ApplyError{Unit: target.ID, Err: errors.New("exit status 1")}
	}
	return nil
}

func (f *fakeRuntime) Teardown(_ context.Context, target containerizer.Target) error {
	f.record("teardown", target)
	if f.failTeardown[target.ID] {
		return &containerizer.TeardownError{Unit: target.ID, Err: errors.New("exit status 1")}
	}
	return nil
}

func (f *fakeRuntime) ids(op string) []unit.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []unit.ID
	for _, c := range f.calls {
		if c.op == op {
			ids = append(ids, c.id)
		}
	}
	unit.SortIDs(ids)
	return ids
}

func (f *fakeRuntime) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type harness struct {
	t        *testing.T
	root     string
	state    *state.Manager
	resolver *fakeResolver
	runtime  *fakeRuntime
	sources  []config.Source
	opts     Options
}

func newHarness(t *testing.T, urls ...string) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		root:     t.TempDir(),
		resolver: &fakeResolver{dirs: map[string]string{}, fail: map[string]error{}},
		runtime:  &fakeRuntime{failApply: map[unit.ID]bool{}, failTeardown: map[unit.ID]bool{}},
	}
	h.state = state.NewManager(filepath.Join(h.root, "var"))
	for _, url := range urls {
		dir := filepath.Join(h.root, "src-"+unit.SourceID(url))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "services"), 0o755))
		h.resolver.dirs[url] = dir
		h.sources = append(h.sources, config.Source{URL: url})
	}
	h.opts = Options{Sources: h.sources, UnitTimeout: time.Minute}
	return h
}

func (h *harness) engine(observers ...Observer) *Engine {
	return NewEngine(h.opts, h.state, h.resolver, descriptor.NewFileLoader(), h.runtime, observers...)
}

func (h *harness) define(url, file, image string) {
	h.t.Helper()
	content := fmt.Sprintf("services:\n  app:\n    image: %s\n", image)
	require.NoError(h.t, os.WriteFile(filepath.Join(h.resolver.dirs[url], "services", file), []byte(content), 0o644))
}

func (h *harness) remove(url, file string) {
	h.t.Helper()
	require.NoError(h.t, os.Remove(filepath.Join(h.resolver.dirs[url], "services", file)))
}

func (h *harness) id(name, url string) unit.ID {
	return unit.ID(name + "-" + unit.SourceID(url))
}

func (h *harness) units(dir string) []unit.ID {
	h.t.Helper()
	ids, err := state.Units(dir)
	require.NoError(h.t, err)
	return ids
}

func changes(outcomes []UnitOutcome) map[unit.ID]Change {
	m := make(map[unit.ID]Change, len(outcomes))
	for _, o := range outcomes {
		m[o.ID] = o.Change
	}
	return m
}

func TestRun_ReplaceAddRemove(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.26")
	h.define(fleetURL, "worker.yaml", "worker:1")

	web, worker, api := h.id("web", fleetURL), h.id("worker", fleetURL), h.id("api", fleetURL)

	_, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []unit.ID{web, worker}, h.units(h.state.Layout().Current()))

	h.runtime.reset()
	h.define(fleetURL, "web.yaml", "nginx:1.27")
	h.define(fleetURL, "api.yaml", "api:1")
	h.remove(fleetURL, "worker.yaml")

	report, err := h.engine().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []unit.ID{api, web}, h.runtime.ids("apply"))
	assert.Equal(t, []unit.ID{worker}, h.runtime.ids("teardown"))
	assert.Equal(t, map[unit.ID]Change{api: ChangeAdded, web: ChangeModified}, changes(report.Applied))
	assert.Equal(t, map[unit.ID]Change{worker: ChangeRemoved}, changes(report.TornDown))

	// Apply always completes before any teardown starts.
	calls := h.runtime.calls
	require.Len(t, calls, 3)
	assert.Equal(t, "teardown", calls[2].op)

	// The runtime was handed the persisted, new descriptor of web.
	for _, c := range calls {
		if c.id == web {
			assert.Contains(t, c.descriptor, "nginx:1.27")
		}
		if c.id == worker {
			assert.Contains(t, c.descriptor, "worker:1")
		}
	}

	assert.Equal(t, []unit.ID{api, web}, h.units(h.state.Layout().Current()))
	assert.NoDirExists(t, h.state.Layout().Previous())
	assert.NoDirExists(t, h.state.Layout().Staging())
	assert.True(t, report.Promoted)
	assert.NotEmpty(t, report.RunID)
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.27")
	h.define(fleetURL, "worker.yaml", "worker:1")

	_, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	first := h.units(h.state.Layout().Current())

	h.runtime.reset()
	report, err := h.engine().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, h.units(h.state.Layout().Current()))
	assert.Empty(t, h.runtime.ids("teardown"))
	assert.Equal(t, first, h.runtime.ids("apply"), "every declared unit is re-applied")
	for _, o := range report.Applied {
		assert.Equal(t, ChangeUnchanged, o.Change)
	}
}

func TestRun_PartialSourceFailure(t *testing.T) {
	const brokenURL = "https://git.example/broken.git"
	h := newHarness(t, brokenURL, fleetURL)
	h.resolver.fail[brokenURL] = errors.New("repository not found")
	h.define(fleetURL, "web.yaml", "nginx:1.27")

	report, err := h.engine().Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailed)

	require.Len(t, report.FailedSources(), 1)
	assert.Equal(t, brokenURL, report.FailedSources()[0].URL)
	assert.True(t, report.Failed())
	assert.True(t, report.Promoted)

	assert.Equal(t, []unit.ID{h.id("web", fleetURL)}, h.runtime.ids("apply"))
	assert.Equal(t, []unit.ID{h.id("web", fleetURL)}, h.units(h.state.Layout().Current()))
}

func TestRun_MissingDefinitionsDirectory(t *testing.T) {
	h := newHarness(t, fleetURL)
	require.NoError(t, os.RemoveAll(filepath.Join(h.resolver.dirs[fleetURL], "services")))

	report, err := h.engine().Run(context.Background())
	assert.ErrorIs(t, err, ErrRunFailed)
	require.Len(t, report.FailedSources(), 1)
	assert.Contains(t, report.FailedSources()[0].Err.Error(), "no services directory")

	assert.Empty(t, h.runtime.calls)
	assert.True(t, report.Promoted)
	assert.DirExists(t, h.state.Layout().Current())
	assert.Empty(t, h.units(h.state.Layout().Current()))
}

func TestRun_UnitLoadFailureFailsOnlyItsSource(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.27")
	require.NoError(t, os.WriteFile(filepath.Join(h.resolver.dirs[fleetURL], "services", "bad.yaml"), []byte("- not\n- an object\n"), 0o644))

	report, err := h.engine().Run(context.Background())
	assert.ErrorIs(t, err, ErrRunFailed)

	var loadErr *descriptor.LoadError
	require.ErrorAs(t, report.Sources[0].Err, &loadErr)
	assert.Equal(t, []unit.ID{h.id("web", fleetURL)}, report.Sources[0].Units)
	assert.Equal(t, []unit.ID{h.id("web", fleetURL)}, h.units(h.state.Layout().Current()))
}

func TestRun_DuplicateUnitFailsLoudly(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.26")
	h.define(fleetURL, "web.yml", "nginx:1.27")

	report, err := h.engine().Run(context.Background())
	assert.ErrorIs(t, err, ErrRunFailed)

	var dup *state.DuplicateUnitError
	require.ErrorAs(t, report.Sources[0].Err, &dup)
	assert.Contains(t, report.Sources[0].Err.Error(), "web.yml declares the same unit as web.yaml")
	assert.Equal(t, []unit.ID{h.id("web", fleetURL)}, h.units(h.state.Layout().Current()))
}

func TestRun_DuplicateUnitKeepsFirstDefinitionInNameOrder(t *testing.T) {
	for i := 0; i < 10; i++ {
		h := newHarness(t, fleetURL)
		h.define(fleetURL, "web.yml", "nginx:1.27")
		h.define(fleetURL, "web.yaml", "nginx:1.26")

		report, err := h.engine().Run(context.Background())
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Equal(t, []unit.ID{h.id("web", fleetURL)}, report.Sources[0].Units)

		data, err := state.ReadUnit(h.state.Layout().Current(), h.id("web", fleetURL))
		require.NoError(t, err)
		assert.Contains(t, string(data), "nginx:1.26", "web.yaml sorts before web.yml")
		assert.Len(t, h.runtime.ids("apply"), 1)
	}
}

func TestRun_ApplyFailureIsIsolated(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.27")
	h.define(fleetURL, "api.yaml", "api:1")
	h.runtime.failApply[h.id("api", fleetURL)] = true

	report, err := h.engine().Run(context.Background())
	require.NoError(t, err, "apply failures do not fail the run")

	assert.Equal(t, 1, CountFailed(report.Applied))
	assert.Equal(t, []unit.ID{h.id("api", fleetURL), h.id("web", fleetURL)}, h.runtime.ids("apply"))
	// The failed unit stays recorded and is applied again next run.
	assert.Equal(t, []unit.ID{h.id("api", fleetURL), h.id("web", fleetURL)}, h.units(h.state.Layout().Current()))
}

func TestRun_TeardownFailureIsRetried(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.27")
	h.define(fleetURL, "worker.yaml", "worker:1")
	worker := h.id("worker", fleetURL)

	_, err := h.engine().Run(context.Background())
	require.NoError(t, err)

	h.remove(fleetURL, "worker.yaml")
	h.runtime.failTeardown[worker] = true
	report, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, CountFailed(report.TornDown))
	assert.Equal(t, []unit.ID{worker}, report.Retired)
	assert.Equal(t, []unit.ID{worker}, h.units(h.state.Layout().Retired()))
	assert.Equal(t, []unit.ID{h.id("web", fleetURL)}, h.units(h.state.Layout().Current()))

	h.runtime.reset()
	delete(h.runtime.failTeardown, worker)
	report, err = h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[unit.ID]Change{worker: ChangeRetried}, changes(report.TornDown))
	assert.Empty(t, h.units(h.state.Layout().Retired()))
	assert.Empty(t, report.Retired)
}

func TestRun_RedeclaredUnitIsUnpinned(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "worker.yaml", "worker:1")
	worker := h.id("worker", fleetURL)

	_, err := h.engine().Run(context.Background())
	require.NoError(t, err)

	h.remove(fleetURL, "worker.yaml")
	h.runtime.failTeardown[worker] = true
	_, err = h.engine().Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []unit.ID{worker}, h.units(h.state.Layout().Retired()))

	h.runtime.reset()
	h.define(fleetURL, "worker.yaml", "worker:2")
	_, err = h.engine().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []unit.ID{worker}, h.runtime.ids("apply"))
	assert.Empty(t, h.runtime.ids("teardown"))
	assert.Empty(t, h.units(h.state.Layout().Retired()))
}

func TestRun_RecoversFromInterruptedRun(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.27")
	h.define(fleetURL, "worker.yaml", "worker:1")

	_, err := h.engine().Run(context.Background())
	require.NoError(t, err)

	// Simulate a run killed after generation and before promotion.
	layout := h.state.Layout()
	require.NoError(t, os.Rename(layout.Current(), layout.Previous()))
	require.NoError(t, os.MkdirAll(layout.Staging(), 0o755))
	require.NoError(t, state.WriteUnit(layout.Staging(), h.id("web", fleetURL), []byte("{}\n")))

	h.runtime.reset()
	h.remove(fleetURL, "worker.yaml")
	_, err = h.engine().Run(context.Background())
	require.NoError(t, err)

	// worker was still known and is torn down instead of leaking.
	assert.Equal(t, []unit.ID{h.id("worker", fleetURL)}, h.runtime.ids("teardown"))
	assert.Equal(t, []unit.ID{h.id("web", fleetURL)}, h.units(layout.Current()))
}

func TestRun_UnitTimeout(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.27")
	h.runtime.blockApply = true
	h.opts.UnitTimeout = 50 * time.Millisecond

	report, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Applied, 1)
	assert.ErrorIs(t, report.Applied[0].Err, context.DeadlineExceeded)
	assert.True(t, report.Promoted)
}

func TestRun_Locked(t *testing.T) {
	h := newHarness(t, fleetURL)

	unlock, err := h.state.Lock()
	require.NoError(t, err)
	defer unlock()

	report, err := h.engine().Run(context.Background())
	assert.ErrorIs(t, err, state.ErrLocked)
	assert.Nil(t, report)
	assert.Empty(t, h.runtime.calls)
}

type observerFunc func(*Report)

type observerCtxFunc func(context.Context, *Report)

func (f observerCtxFunc) RunFinished(ctx context.Context, r *Report) error {
	f(ctx, r)
	return nil
}

func (f observerFunc) RunFinished(_ context.Context, r *Report) error {
	f(r)
	return errors.New("observer errors are only logged")
}

func TestRun_NotifiesObservers(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.27")

	var seen *Report
	report, err := h.engine(observerFunc(func(r *Report) { seen = r })).Run(context.Background())
	require.NoError(t, err)
	assert.Same(t, report, seen)
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	h := newHarness(t, fleetURL)
	for i := 0; i < 5; i++ {
		h.define(fleetURL, fmt.Sprintf("svc%d.yaml", i), "busybox")
	}
	h.opts.Concurrency = 1

	report, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Applied, 5)
	assert.Len(t, h.units(h.state.Layout().Current()), 5)
}

func TestRun_CancelledDuringGenerationDoesNotPromote(t *testing.T) {
	h := newHarness(t, fleetURL)
	h.define(fleetURL, "web.yaml", "nginx:1.27")
	h.define(fleetURL, "worker.yaml", "worker:1")
	_, err := h.engine().Run(context.Background())
	require.NoError(t, err)
	h.runtime.reset()

	var seen *Report
	var observedCtxErr error
	observer := observerCtxFunc(func(ctx context.Context, r *Report) {
		seen = r
		observedCtxErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.resolver.cancel = cancel

	report, err := h.engine(observer).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRunFailed)
	assert.False(t, report.Promoted)

	assert.Empty(t, h.runtime.ids("apply"))
	assert.Empty(t, h.runtime.ids("teardown"))
	assert.Empty(t, h.units(h.state.Layout().Retired()))

	require.NotNil(t, seen)
	assert.NoError(t, observedCtxErr, "observers must outlive the cancelled run")

	// The next run restores the last known-good snapshot and changes nothing.
	h.resolver.cancel = nil
	report, err = h.engine().Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.runtime.ids("teardown"))
	assert.Equal(t, ChangeUnchanged, changes(report.Applied)[h.id("web", fleetURL)])
	assert.Equal(t, []unit.ID{h.id("web", fleetURL), h.id("worker", fleetURL)}, h.units(h.state.Layout().Current()))
}
