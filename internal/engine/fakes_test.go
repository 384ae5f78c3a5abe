package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"VaultSentinel/internal/detector"
	"VaultSentinel/internal/ledger"
	"VaultSentinel/internal/model"
	"VaultSentinel/internal/policy"
	"VaultSentinel/internal/ratelimit"
	"VaultSentinel/internal/scheduler"
	"VaultSentinel/internal/store"
	"VaultSentinel/internal/vault"

	"github.com/stretchr/testify/require"
)

type fakeTimers struct {
	mu   sync.Mutex
	next scheduler.JobID
	jobs map[scheduler.JobID]time.Duration
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{jobs: make(map[scheduler.JobID]time.Duration)}
}

func (f *fakeTimers) Every(interval time.Duration, _ func()) (scheduler.JobID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.jobs[f.next] = interval
	return f.next, nil
}

func (f *fakeTimers) Cancel(id scheduler.JobID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
}

func (f *fakeTimers) intervals() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Duration
	for _, d := range f.jobs {
		out = append(out, d)
	}
	return out
}

type fakeOracle struct {
	mu       sync.Mutex
	balances map[string]float64
	sheet    model.BalanceSheet
	reads    int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{balances: make(map[string]float64)}
}

func (f *fakeOracle) set(currency string, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[currency] = v
}

func (f *fakeOracle) Read(_ context.Context, currency string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.balances[currency]
}

func (f *fakeOracle) UpdateOutOfBand(sheet model.BalanceSheet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheet = sheet
}

func (f *fakeOracle) OutOfBand(currency string) (model.Balances, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sheet.Get(currency)
}

func (f *fakeOracle) ResetSession() {}

type depositCall struct {
	currency string
	amount   float64
}

type fakeVault struct {
	mu      sync.Mutex
	calls   []depositCall
	block   chan struct{} // when set, Deposit waits for it to close
	ctxWait bool          // when set with block, Deposit also returns on ctx expiry
	err     error
	sheet   model.BalanceSheet

	// onDeposit runs before a successful confirmation is returned
	onDeposit func(currency string, amount float64)
}

func (f *fakeVault) FetchBalances(context.Context) (model.BalanceSheet, error) {
	return f.sheet, nil
}

func (f *fakeVault) Deposit(ctx context.Context, currency string, amount float64) (*vault.Confirmation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, depositCall{currency: currency, amount: amount})
	block, ctxWait, err, hook := f.block, f.ctxWait, f.err, f.onDeposit
	f.mu.Unlock()

	if block != nil {
		if ctxWait {
			select {
			case <-block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else {
			<-block
		}
	}
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(currency, amount)
	}
	return &vault.Confirmation{ID: "dep-1", Amount: amount, Currency: currency}, nil
}

func (f *fakeVault) depositCalls() []depositCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]depositCall(nil), f.calls...)
}

type fakeResolver struct {
	mu   sync.Mutex
	code string
}

func (f *fakeResolver) set(code string) {
	f.mu.Lock()
	f.code = code
	f.mu.Unlock()
}

func (f *fakeResolver) Resolve() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

func (f *fakeResolver) Invalidate() {}

type fakeRecorder struct {
	mu    sync.Mutex
	ticks []model.TickResult
	skims []model.SkimEvent
}

func (f *fakeRecorder) RecordTick(t *model.TickResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, *t)
	return nil
}

func (f *fakeRecorder) RecordSkim(evt *model.SkimEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skims = append(f.skims, *evt)
	return nil
}

func (f *fakeRecorder) RecentSkims(int) ([]model.SkimEvent, error) { return nil, nil }
func (f *fakeRecorder) Close() error                               { return nil }

func (f *fakeRecorder) lastTick() model.TickResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks[len(f.ticks)-1]
}

func (f *fakeRecorder) outcomes() []model.SkimOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SkimOutcome
	for _, s := range f.skims {
		out = append(out, s.Outcome)
	}
	return out
}

type fakeSource struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSource) set(texts ...string) {
	f.mu.Lock()
	f.texts = texts
	f.mu.Unlock()
}

func (f *fakeSource) Recent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts
}

type harness struct {
	engine   *Engine
	timers   *fakeTimers
	oracle   *fakeOracle
	vault    *fakeVault
	resolver *fakeResolver
	recorder *fakeRecorder
	source   *fakeSource
	ledger   *ledger.Ledger
	limiter  *ratelimit.Window
	store    *store.Memory
}

type harnessOption func(*Options, *model.Policy, *int)

func withPolicy(p model.Policy) harnessOption {
	return func(_ *Options, pol *model.Policy, _ *int) { *pol = p }
}

func withRateLimit(max int) harnessOption {
	return func(_ *Options, _ *model.Policy, m *int) { *m = max }
}

func withOptions(fn func(*Options)) harnessOption {
	return func(o *Options, _ *model.Policy, _ *int) { fn(o) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	o := Options{InitInterval: time.Second, InitMaxTries: 5, DepositTimeout: 5 * time.Second}
	pol := model.DefaultPolicy()
	max := ratelimit.DefaultMax
	for _, fn := range opts {
		fn(&o, &pol, &max)
	}

	st := store.NewMemory()
	h := &harness{
		timers:   newFakeTimers(),
		oracle:   newFakeOracle(),
		vault:    &fakeVault{},
		resolver: &fakeResolver{code: "btc"},
		recorder: &fakeRecorder{},
		source:   &fakeSource{},
		ledger:   ledger.New(st, "test-session", nil),
		limiter:  ratelimit.NewWindow(st, time.Hour, max, nil),
		store:    st,
	}
	h.engine = New(Deps{
		Oracle:     h.oracle,
		Vault:      h.vault,
		Resolver:   h.resolver,
		Limiter:    h.limiter,
		Ledger:     h.ledger,
		Policies:   policy.NewManager(st, pol, nil),
		Classifier: detector.NewKeywordClassifier(),
		Source:     h.source,
		Recorder:   h.recorder,
		Timers:     h.timers,
	}, o, nil)
	t.Cleanup(func() {
		h.engine.Stop()
		h.engine.wg.Wait()
	})
	return h
}

// startMonitoring starts the engine and feeds two positive reads of balance.
func (h *harness) startMonitoring(t *testing.T, balance float64) {
	t.Helper()
	h.oracle.set(h.resolver.Resolve(), balance)
	require.NoError(t, h.engine.Start())
	h.engine.initTick()
	h.engine.initTick()
	require.Equal(t, model.StateMonitoring, h.engine.State())
	require.Equal(t, balance, h.engine.Status().Baseline)
}

// settle waits for outstanding skims and notifications.
func (h *harness) settle() {
	h.engine.wg.Wait()
}
