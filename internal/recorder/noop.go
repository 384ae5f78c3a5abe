package recorder

import "VaultSentinel/internal/model"

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTick(_ *model.TickResult) error         { return nil }
func (n *NoopRecorder) RecordSkim(_ *model.SkimEvent) error          { return nil }
func (n *NoopRecorder) RecentSkims(_ int) ([]model.SkimEvent, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                 { return nil }
