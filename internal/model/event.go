package model

// TickKind classifies one main tick.
type TickKind string

const (
	TickNone           TickKind = "NONE"
	TickProfit         TickKind = "PROFIT"
	TickBigWin         TickKind = "BIG_WIN"
	TickLoss           TickKind = "LOSS"
	TickDeposit        TickKind = "DEPOSIT"
	TickCurrencyChange TickKind = "CURRENCY_CHANGE"
	TickUninitialized  TickKind = "UNINITIALIZED"
)

// EngineState is the coarse lifecycle state of the decision engine.
type EngineState string

const (
	StateStopped      EngineState = "STOPPED"
	StateInitializing EngineState = "INITIALIZING"
	StateMonitoring   EngineState = "MONITORING"
)

// SkimOutcome records how a skim attempt ended.
type SkimOutcome string

const (
	SkimSuccess     SkimOutcome = "SUCCESS"
	SkimFailed      SkimOutcome = "FAILED"
	SkimTimeout     SkimOutcome = "TIMEOUT"
	SkimRateLimited SkimOutcome = "RATE_LIMITED"
	SkimDropped     SkimOutcome = "DROPPED"
)

// TickResult is what one main tick observed and decided.
type TickResult struct {
	Kind     TickKind `json:"kind"`
	Currency string   `json:"currency"`
	Before   float64  `json:"before"` // baseline before the tick
	Current  float64  `json:"current"`
	Skim     float64  `json:"skim"` // requested skim amount, 0 when none
}

// SkimEvent describes one pass through the skim procedure.
type SkimEvent struct {
	OperationID  string      `json:"operationId"`
	Currency     string      `json:"currency"`
	Kind         TickKind    `json:"kind"`
	Amount       float64     `json:"amount"`
	Outcome      SkimOutcome `json:"outcome"`
	Reason       string      `json:"reason,omitempty"`
	BalanceAfter float64     `json:"balanceAfter"`
}

// Status is the read-only view offered to the control surface.
type Status struct {
	State       EngineState `json:"state"`
	Running     bool        `json:"running"`
	Currency    string      `json:"currency"`
	Baseline    float64     `json:"baseline"`
	VaultTotal  float64     `json:"vaultTotal"`
	RemoteVault float64     `json:"remoteVault"`
	Headroom    int         `json:"headroom"`
	InFlight    bool        `json:"inFlight"`
	Policy      Policy      `json:"policy"`
}
