package control

import (
	"fmt"
	"strconv"
	"strings"

	"VaultSentinel/internal/model"
	"VaultSentinel/internal/notifier"
)

// Operator is the engine surface the control layer drives.
type Operator interface {
	Start() error
	Stop()
	Params() model.Policy
	SetParams(u model.PolicyUpdate) (model.Policy, error)
	Status() model.Status
}

const helpText = "Commands:\n" +
	"• /status\n" +
	"• /start\n" +
	"• /stop\n" +
	"• /params\n" +
	"• /set <save_rate|big_win_threshold|big_win_multiplier|poll_interval_ms> <value>"

// Commands answers operator chat commands.
type Commands struct {
	op Operator
}

// NewCommands binds a command handler to op.
func NewCommands(op Operator) *Commands {
	return &Commands{op: op}
}

// Handle executes one command line and returns the reply.
func (c *Commands) Handle(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/status@VaultSentinelBot" in group chats
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch name {
	case "/status":
		return notifier.FormatStatus(c.op.Status())
	case "/start":
		if err := c.op.Start(); err != nil {
			return fmt.Sprintf("❌ start failed: %v", err)
		}
		return "▶️ Started\n\n" + notifier.FormatStatus(c.op.Status())
	case "/stop":
		c.op.Stop()
		return "⏹ Stopped"
	case "/params":
		return notifier.FormatParams(c.op.Params())
	case "/set":
		if len(fields) != 3 {
			return "usage: /set <field> <value>"
		}
		u, err := ParseUpdate(fields[1], fields[2])
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		p, err := c.op.SetParams(u)
		if err != nil {
			return fmt.Sprintf("❌ rejected: %v", err)
		}
		return notifier.FormatParams(p)
	default:
		return helpText
	}
}

// ParseUpdate builds a single-field policy update from a field name and its
// textual value.
func ParseUpdate(field, value string) (model.PolicyUpdate, error) {
	var u model.PolicyUpdate
	switch strings.ToLower(field) {
	case "save_rate", "saverate":
		v, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return u, fmt.Errorf("save_rate: %w", err)
		}
		if strings.HasSuffix(value, "%") {
			v /= 100
		}
		u.SaveRate = &v
	case "big_win_threshold", "bigwinthreshold":
		v, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
		if err != nil {
			return u, fmt.Errorf("big_win_threshold: %w", err)
		}
		u.BigWinThreshold = &v
	case "big_win_multiplier", "bigwinmultiplier":
		v, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
		if err != nil {
			return u, fmt.Errorf("big_win_multiplier: %w", err)
		}
		u.BigWinMultiplier = &v
	case "poll_interval_ms", "pollintervalms":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return u, fmt.Errorf("poll_interval_ms: %w", err)
		}
		u.PollIntervalMs = &v
	default:
		return u, fmt.Errorf("unknown field %q", field)
	}
	return u, nil
}
