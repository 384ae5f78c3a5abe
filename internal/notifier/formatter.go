package notifier

import (
	"fmt"
	"strings"
	"time"

	"VaultSentinel/internal/calculator"
	"VaultSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// Amount renders an amount the way the platform shows balances.
func Amount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(8)
}

// FormatSkimIntent announces a skim about to be attempted.
func FormatSkimIntent(kind model.TickKind, amount float64, currency string, p model.Policy) string {
	switch kind {
	case model.TickBigWin:
		return fmt.Sprintf("😸 <b>BIG WIN!</b> Saving %.0f%%: %s %s",
			calculator.EffectiveRate(p, true), Amount(amount), strings.ToUpper(currency))
	case model.TickDeposit:
		return fmt.Sprintf("💸 Deposit landed. Saving %.0f%%: %s %s",
			calculator.EffectiveRate(p, false), Amount(amount), strings.ToUpper(currency))
	default:
		return fmt.Sprintf("😺 Win! Saving %.0f%%: %s %s",
			calculator.EffectiveRate(p, false), Amount(amount), strings.ToUpper(currency))
	}
}

// FormatSkim reports how a skim attempt ended.
func FormatSkim(evt *model.SkimEvent) string {
	cur := strings.ToUpper(evt.Currency)
	switch evt.Outcome {
	case model.SkimSuccess:
		return fmt.Sprintf("✅ Saved %s %s to vault", Amount(evt.Amount), cur)
	case model.SkimRateLimited:
		return fmt.Sprintf("⏳ Skipped %s %s: local rate limit reached", Amount(evt.Amount), cur)
	case model.SkimTimeout:
		return fmt.Sprintf("⌛ Vault deposit of %s %s timed out", Amount(evt.Amount), cur)
	default:
		return fmt.Sprintf("❌ Vault deposit of %s %s failed: %s", Amount(evt.Amount), cur, evt.Reason)
	}
}

// FormatStatus renders the engine status for the /status command.
func FormatStatus(s model.Status) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🐾 <b>VaultSentinel</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("State: %s\n", s.State))
	b.WriteString(fmt.Sprintf("Currency: %s\n", strings.ToUpper(s.Currency)))
	b.WriteString(fmt.Sprintf("Baseline: %s\n", Amount(s.Baseline)))
	b.WriteString(fmt.Sprintf("Saved this session: %s\n", Amount(s.VaultTotal)))
	b.WriteString(fmt.Sprintf("Vault balance: %s\n", Amount(s.RemoteVault)))
	b.WriteString(fmt.Sprintf("Rate limit headroom: %d\n", s.Headroom))
	if s.InFlight {
		b.WriteString("Deposit in flight\n")
	}
	return b.String()
}

// FormatParams renders the current policy.
func FormatParams(p model.Policy) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Policy</b>\n\n")
	b.WriteString(fmt.Sprintf("save_rate: %g (%.0f%%)\n", p.SaveRate, p.SaveRate*100))
	b.WriteString(fmt.Sprintf("big_win_threshold: %gx\n", p.BigWinThreshold))
	b.WriteString(fmt.Sprintf("big_win_multiplier: %gx\n", p.BigWinMultiplier))
	b.WriteString(fmt.Sprintf("poll_interval_ms: %d\n", p.PollIntervalMs))
	return b.String()
}
