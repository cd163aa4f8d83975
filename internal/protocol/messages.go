package protocol

import (
	"encoding/json"
	"fmt"
)

const Version = "1.0"

const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeAct     = "ACT"
	TypeAck     = "ACK"
	TypeEvent   = "EVENT"
	TypeState   = "STATE"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionParams   SessionParams  `json:"session_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type SessionParams struct {
	TickRateHz      int    `json:"tick_rate_hz"`
	TicksPerGameDay int    `json:"ticks_per_game_day"`
	DaysPerMonth    int    `json:"days_per_month"`
	Seed            string `json:"seed"`
}

type CatalogDigests struct {
	ResourcesDigest string `json:"resources_digest"`
	RecipesDigest   string `json:"recipes_digest"`
	WorkersDigest   string `json:"workers_digest"`
	UpgradesDigest  string `json:"upgrades_digest"`
	CouponsDigest   string `json:"coupons_digest"`
}

// ACT (client -> server): one user operation against the session.
// Args are op-specific; unknown ops are acked with E_BAD_REQUEST.
type ActMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ID              string  `json:"id,omitempty"`
	Op              string  `json:"op"`
	Slot            string  `json:"slot,omitempty"`
	TargetSlot      string  `json:"target_slot,omitempty"`
	ResourceID      string  `json:"resource_id,omitempty"`
	RecipeKey       string  `json:"recipe_key,omitempty"`
	WorkerTypeID    string  `json:"worker_type_id,omitempty"`
	WorkerID        string  `json:"worker_id,omitempty"`
	UpgradeID       string  `json:"upgrade_id,omitempty"`
	Code            string  `json:"code,omitempty"`
	Quantity        float64 `json:"quantity,omitempty"`
	Delta           int     `json:"delta,omitempty"`
	Frequency       float64 `json:"frequency,omitempty"`
	Pressure        float64 `json:"pressure,omitempty"`
}

// Op names accepted in ActMsg.
const (
	OpPlaceResource  = "PLACE_RESOURCE"
	OpRemoveFromSlot = "REMOVE_FROM_SLOT"
	OpMoveSlots      = "MOVE_SLOTS"
	OpAdjustQuantity = "ADJUST_QUANTITY"
	OpSynthesize     = "SYNTHESIZE"
	OpCollectOutput  = "COLLECT_OUTPUT"
	OpResearchRecipe = "RESEARCH_RECIPE"
	OpResearchWorker = "RESEARCH_WORKER"
	OpBuyUpgrade     = "BUY_UPGRADE"
	OpAcquireWorker  = "ACQUIRE_WORKER"
	OpToggleWorker   = "TOGGLE_WORKER"
	OpFireWorker     = "FIRE_WORKER"
	OpSell           = "SELL"
	OpSellAll        = "SELL_ALL"
	OpRedeemCoupon   = "REDEEM_COUPON"
	OpAdReward       = "AD_REWARD"
)

// ACK (server -> client): result of one ACT.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}

// EVENT (server -> client): one domain event.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Event           Event  `json:"event"`
}

type BaseMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

func DecodeBase(b []byte) (BaseMsg, error) {
	var m BaseMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode base: %w", err)
	}
	if m.Type == "" {
		return m, fmt.Errorf("missing type")
	}
	return m, nil
}
