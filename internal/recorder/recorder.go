package recorder

import "VaultSentinel/internal/model"

// Recorder persists tick and skim history for later analysis.
type Recorder interface {
	RecordTick(t *model.TickResult) error
	RecordSkim(evt *model.SkimEvent) error
	RecentSkims(limit int) ([]model.SkimEvent, error)
	Close() error
}
