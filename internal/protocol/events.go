package protocol

// Severity classifies an event for the notification sink. The core picks
// the severity itself; sinks only render it.
type Severity string

const (
	SevInfo    Severity = "info"
	SevSuccess Severity = "success"
	SevWarning Severity = "warning"
	SevError   Severity = "error"
)

// Domain event types emitted by the session.
const (
	EvSynthesisStarted  = "SYNTHESIS_STARTED"
	EvSynthesisResolved = "SYNTHESIS_RESOLVED"
	EvOutputCollected   = "OUTPUT_COLLECTED"
	EvLevelUp           = "LEVEL_UP"
	EvRecipeUnlocked    = "RECIPE_UNLOCKED"
	EvWorkerUnlocked    = "WORKER_UNLOCKED"
	EvWorkerAcquired    = "WORKER_ACQUIRED"
	EvWorkerExhausted   = "WORKER_EXHAUSTED"
	EvWorkerRested      = "WORKER_RESTED"
	EvWorkerStopped     = "WORKER_STOPPED"
	EvWorkerFired       = "WORKER_FIRED"
	EvWorkerToggled     = "WORKER_TOGGLED"
	EvUpgradePurchased  = "UPGRADE_PURCHASED"
	EvSale              = "SALE"
	EvMarketUpdated     = "MARKET_UPDATED"
	EvMaintenanceBilled = "MAINTENANCE_BILLED"
	EvCouponRedeemed    = "COUPON_REDEEMED"
	EvPurchaseFulfilled = "PURCHASE_FULFILLED"
	EvItemReturned      = "ITEM_RETURNED"
	EvRejected          = "REJECTED"
)

// Event is one notification from the core. Data holds event-specific
// fields (ids, quantities, prices) for machine consumers; Message is the
// human-readable line.
type Event struct {
	Tick     uint64         `json:"t"`
	Type     string         `json:"type"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Result is the synchronous outcome of a user operation.
type Result struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func OKResult() Result { return Result{OK: true} }

func Fail(code, message string) Result {
	if !IsKnownCode(code) {
		code = ErrInternal
	}
	return Result{OK: false, Code: code, Message: message}
}
