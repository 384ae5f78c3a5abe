package model

import (
	"fmt"
	"math"
	"time"
)

// MinPollIntervalMs is the shortest main tick cadence a policy may request.
const MinPollIntervalMs = 10000

// Policy is the user-editable skim policy. It is persisted as a whole on every change.
type Policy struct {
	SaveRate         float64 `json:"saveRate" yaml:"save_rate"`
	BigWinThreshold  float64 `json:"bigWinThreshold" yaml:"big_win_threshold"`
	BigWinMultiplier float64 `json:"bigWinMultiplier" yaml:"big_win_multiplier"`
	PollIntervalMs   int64   `json:"pollIntervalMs" yaml:"poll_interval_ms"`
}

// DefaultPolicy saves 4% of profit, and ten times that on a 5x balance jump.
func DefaultPolicy() Policy {
	return Policy{
		SaveRate:         0.04,
		BigWinThreshold:  5,
		BigWinMultiplier: 10,
		PollIntervalMs:   90000,
	}
}

// PollInterval returns the main tick cadence as a duration.
func (p Policy) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

// Validate checks every field against its allowed range.
func (p Policy) Validate() error {
	if math.IsNaN(p.SaveRate) || p.SaveRate < 0 || p.SaveRate > 1 {
		return fmt.Errorf("save_rate must be within [0,1], got %v", p.SaveRate)
	}
	if math.IsNaN(p.BigWinThreshold) || p.BigWinThreshold < 1 {
		return fmt.Errorf("big_win_threshold must be >= 1, got %v", p.BigWinThreshold)
	}
	if math.IsNaN(p.BigWinMultiplier) || p.BigWinMultiplier < 1 {
		return fmt.Errorf("big_win_multiplier must be >= 1, got %v", p.BigWinMultiplier)
	}
	if p.PollIntervalMs < MinPollIntervalMs {
		return fmt.Errorf("poll_interval_ms must be >= %d, got %d", MinPollIntervalMs, p.PollIntervalMs)
	}
	return nil
}

// PolicyUpdate is a partial policy change; nil fields keep their current value.
type PolicyUpdate struct {
	SaveRate         *float64 `json:"saveRate,omitempty"`
	BigWinThreshold  *float64 `json:"bigWinThreshold,omitempty"`
	BigWinMultiplier *float64 `json:"bigWinMultiplier,omitempty"`
	PollIntervalMs   *int64   `json:"pollIntervalMs,omitempty"`
}

// Apply merges the update over p.
func (u PolicyUpdate) Apply(p Policy) Policy {
	if u.SaveRate != nil {
		p.SaveRate = *u.SaveRate
	}
	if u.BigWinThreshold != nil {
		p.BigWinThreshold = *u.BigWinThreshold
	}
	if u.BigWinMultiplier != nil {
		p.BigWinMultiplier = *u.BigWinMultiplier
	}
	if u.PollIntervalMs != nil {
		p.PollIntervalMs = *u.PollIntervalMs
	}
	return p
}

// Empty reports whether the update changes nothing.
func (u PolicyUpdate) Empty() bool {
	return u.SaveRate == nil && u.BigWinThreshold == nil && u.BigWinMultiplier == nil && u.PollIntervalMs == nil
}
