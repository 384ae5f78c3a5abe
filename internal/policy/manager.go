package policy

import (
	"errors"
	"fmt"
	"sync"

	"VaultSentinel/internal/model"
	"VaultSentinel/internal/store"

	"go.uber.org/zap"
)

// StoreKey is where the policy record lives in the state store.
const StoreKey = "policy"

// Manager owns the skim policy and persists it as a whole on every change.
type Manager struct {
	mu      sync.Mutex
	current model.Policy
	store   store.Store
	log     *zap.Logger
}

// NewManager loads the persisted policy, falling back to defaults when the record
// is absent, unreadable or out of range.
func NewManager(st store.Store, defaults model.Policy, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{current: defaults, store: st, log: log}

	var saved model.Policy
	switch err := st.Get(StoreKey, &saved); {
	case errors.Is(err, store.ErrNotFound):
		log.Info("no saved policy, using defaults")
	case err != nil:
		log.Warn("saved policy unreadable, using defaults", zap.Error(err))
	default:
		if verr := saved.Validate(); verr != nil {
			log.Warn("saved policy out of range, using defaults", zap.Error(verr))
		} else {
			m.current = saved
		}
	}
	return m
}

// Get returns the current policy.
func (m *Manager) Get() model.Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Update merges u over the current policy, validates the result and persists it.
// Nothing changes when validation or persistence fails.
func (m *Manager) Update(u model.PolicyUpdate) (model.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := u.Apply(m.current)
	if err := next.Validate(); err != nil {
		return m.current, fmt.Errorf("invalid policy: %w", err)
	}
	if err := m.store.Put(StoreKey, next); err != nil {
		return m.current, fmt.Errorf("persist policy: %w", err)
	}
	m.current = next
	m.log.Info("policy updated",
		zap.Float64("save_rate", next.SaveRate),
		zap.Float64("big_win_threshold", next.BigWinThreshold),
		zap.Float64("big_win_multiplier", next.BigWinMultiplier),
		zap.Int64("poll_interval_ms", next.PollIntervalMs))
	return next, nil
}
