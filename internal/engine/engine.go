package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VaultSentinel/internal/model"
	"VaultSentinel/internal/recorder"
	"VaultSentinel/internal/scheduler"
	"VaultSentinel/internal/vault"

	"go.uber.org/zap"
)

// Oracle reads the current balance.
type Oracle interface {
	Read(ctx context.Context, currency string) float64
	UpdateOutOfBand(sheet model.BalanceSheet)
	OutOfBand(currency string) (model.Balances, bool)
	ResetSession()
}

// Vault performs the remote balance and deposit calls.
type Vault interface {
	FetchBalances(ctx context.Context) (model.BalanceSheet, error)
	Deposit(ctx context.Context, currency string, amount float64) (*vault.Confirmation, error)
}

// Resolver names the active currency.
type Resolver interface {
	Resolve() string
	Invalidate()
}

// Limiter admits vault actions within the rolling window.
type Limiter interface {
	Admit() bool
	Record()
	Headroom() int
}

// Ledger tracks the amount vaulted this session.
type Ledger interface {
	SetCurrency(code string)
	AddTo(currency string, amount float64)
	Get() float64
	Reset()
}

// Policies owns the persisted skim policy.
type Policies interface {
	Get() model.Policy
	Update(u model.PolicyUpdate) (model.Policy, error)
}

// Classifier finds a credited deposit amount in recent notification texts.
type Classifier interface {
	Classify(texts []string) (float64, bool)
}

// Source supplies recent notification texts.
type Source interface {
	Recent() []string
}

// Notifier delivers operator messages.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Timers schedules interval jobs.
type Timers interface {
	Every(interval time.Duration, job func()) (scheduler.JobID, error)
	Cancel(id scheduler.JobID)
}

// Options tune the engine's timers.
type Options struct {
	InitInterval    time.Duration
	InitMaxTries    int
	StartDelay      time.Duration
	RefreshInterval time.Duration
	RefreshOnStart  bool
	DepositTimeout  time.Duration
	AutoStart       bool
}

// DefaultOptions mirror the platform's page behaviour: one read a second while
// initializing, five tries, a minute between out-of-band refreshes.
func DefaultOptions() Options {
	return Options{
		InitInterval:    time.Second,
		InitMaxTries:    5,
		RefreshInterval: time.Minute,
		RefreshOnStart:  true,
		DepositTimeout:  30 * time.Second,
		AutoStart:       true,
	}
}

// Deps are the collaborators the engine drives.
type Deps struct {
	Oracle     Oracle
	Vault      Vault
	Resolver   Resolver
	Limiter    Limiter
	Ledger     Ledger
	Policies   Policies
	Classifier Classifier
	Source     Source
	Recorder   recorder.Recorder
	Notifier   Notifier
	Timers     Timers
}

// Engine is the deposit decision engine. Timer callbacks and skim completions
// all take mu, so at most one logical tick touches the state at a time.
type Engine struct {
	deps Deps
	opts Options
	log  *zap.Logger

	mu            sync.Mutex
	running       bool
	state         model.EngineState
	currency      string
	baseline      float64
	previous      float64
	lastRead      float64
	positiveReads int
	initTries     int
	consumed      map[string]bool
	inFlight      string
	remoteVault   float64

	pollJob    scheduler.JobID
	initJob    scheduler.JobID
	refreshJob scheduler.JobID
	startTimer *time.Timer

	wg sync.WaitGroup
}

// New wires an engine. Recorder and Notifier may be nil.
func New(deps Deps, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	def := DefaultOptions()
	if opts.InitInterval <= 0 {
		opts.InitInterval = def.InitInterval
	}
	if opts.InitMaxTries <= 0 {
		opts.InitMaxTries = def.InitMaxTries
	}
	if opts.DepositTimeout <= 0 {
		opts.DepositTimeout = def.DepositTimeout
	}
	return &Engine{
		deps:     deps,
		opts:     opts,
		log:      log,
		state:    model.StateStopped,
		consumed: make(map[string]bool),
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) {}

// Run starts the engine when AutoStart is set and stops it when ctx ends,
// waiting up to the deposit timeout for an outstanding skim.
func (e *Engine) Run(ctx context.Context) error {
	if e.opts.AutoStart {
		if err := e.Start(); err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
	}
	<-ctx.Done()
	e.Stop()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(e.opts.DepositTimeout):
		e.log.Warn("gave up waiting for outstanding skim")
	}
	return nil
}

// Start begins initialization. Starting a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	p := e.deps.Policies.Get()
	poll, err := e.deps.Timers.Every(p.PollInterval(), e.pollTick)
	if err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}
	e.pollJob = poll
	if e.opts.RefreshInterval > 0 {
		refresh, err := e.deps.Timers.Every(e.opts.RefreshInterval, e.refreshTick)
		if err != nil {
			e.deps.Timers.Cancel(poll)
			return fmt.Errorf("schedule refresh: %w", err)
		}
		e.refreshJob = refresh
	}

	e.running = true
	e.deps.Resolver.Invalidate()
	e.deps.Oracle.ResetSession()
	e.currency = e.deps.Resolver.Resolve()
	e.deps.Ledger.SetCurrency(e.currency)
	e.state = model.StateInitializing
	e.resetInitLocked()

	if e.opts.StartDelay > 0 {
		e.startTimer = time.AfterFunc(e.opts.StartDelay, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.running && e.state == model.StateInitializing {
				e.scheduleInitLocked()
			}
		})
	} else {
		e.scheduleInitLocked()
	}
	if e.opts.RefreshOnStart {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.refreshTick()
		}()
	}

	e.log.Info("engine started",
		zap.String("currency", e.currency),
		zap.Float64("save_rate", p.SaveRate),
		zap.Duration("poll_interval", p.PollInterval()))
	return nil
}

// Stop clears every timer, resets the ledger display and releases the in-flight
// flag. An outstanding deposit call is not cancelled; its result is still
// applied when it resolves.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	if e.startTimer != nil {
		e.startTimer.Stop()
		e.startTimer = nil
	}
	e.cancelJobLocked(&e.pollJob)
	e.cancelJobLocked(&e.initJob)
	e.cancelJobLocked(&e.refreshJob)

	e.running = false
	e.state = model.StateStopped
	e.inFlight = ""
	e.deps.Ledger.Reset()
	e.log.Info("engine stopped")
}

func (e *Engine) cancelJobLocked(id *scheduler.JobID) {
	if *id != 0 {
		e.deps.Timers.Cancel(*id)
		*id = 0
	}
}

// Params returns the current policy.
func (e *Engine) Params() model.Policy {
	return e.deps.Policies.Get()
}

// SetParams merges a partial update into the policy, persists it and, when the
// poll interval changed on a running engine, reschedules the main tick.
func (e *Engine) SetParams(u model.PolicyUpdate) (model.Policy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.deps.Policies.Get()
	p, err := e.deps.Policies.Update(u)
	if err != nil {
		return before, err
	}
	if e.running && p.PollIntervalMs != before.PollIntervalMs {
		id, err := e.deps.Timers.Every(p.PollInterval(), e.pollTick)
		if err != nil {
			e.log.Error("reschedule poll, keeping old cadence", zap.Error(err))
			return p, nil
		}
		e.cancelJobLocked(&e.pollJob)
		e.pollJob = id
	}
	return p, nil
}

// Running reports whether the engine is started.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// State returns the lifecycle state.
func (e *Engine) State() model.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// VaultTotal is the amount vaulted this session in the active currency.
func (e *Engine) VaultTotal() float64 {
	return e.deps.Ledger.Get()
}

// Headroom is how many vault actions the rate limiter still admits.
func (e *Engine) Headroom() int {
	return e.deps.Limiter.Headroom()
}

// Status is a snapshot for the control surface.
func (e *Engine) Status() model.Status {
	e.mu.Lock()
	s := model.Status{
		State:       e.state,
		Running:     e.running,
		Currency:    e.currency,
		Baseline:    e.baseline,
		RemoteVault: e.remoteVault,
		InFlight:    e.inFlight != "",
	}
	e.mu.Unlock()
	s.VaultTotal = e.deps.Ledger.Get()
	s.Headroom = e.deps.Limiter.Headroom()
	s.Policy = e.deps.Policies.Get()
	return s
}

// refreshTick pulls the out-of-band balance sheet for the oracle and the
// currency resolver.
func (e *Engine) refreshTick() {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.DepositTimeout)
	defer cancel()

	sheet, err := e.deps.Vault.FetchBalances(ctx)
	if err != nil {
		e.log.Warn("out-of-band balance refresh failed",
			zap.String("reason", string(vault.KindOf(err))), zap.Error(err))
		return
	}
	e.deps.Oracle.UpdateOutOfBand(sheet)

	e.mu.Lock()
	if b, ok := sheet.Get(e.currency); ok {
		e.remoteVault = b.Vault
	}
	e.mu.Unlock()
	e.log.Debug("out-of-band balances refreshed", zap.Int("currencies", len(sheet)))
}

// notify sends text without blocking the caller.
func (e *Engine) notify(text string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		e.deps.Notifier.Notify(ctx, text)
	}()
}
