package forge

import (
	"fmt"

	"aethernexus.forge/internal/protocol"
	"aethernexus.forge/internal/sim/catalogs"
	"aethernexus.forge/internal/sim/rng"
	"aethernexus.forge/internal/sim/tuning"
)

// Slot is one of the two forge input slots.
type Slot struct {
	ResourceID string
	Quantity   int64
}

func (s Slot) Empty() bool { return s.ResourceID == "" }

// SynthesisRun is an in-flight craft. The outcome is rolled when the
// run starts; resolution only applies it.
type SynthesisRun struct {
	RecipeKey      string
	OutputID       string
	Quantity       int64
	RemainingTicks int
	Success        bool
	FinalChance    float64
	FailureCause   string // "HEAT" or "CHANCE" when Success is false
}

// PendingOutput is a resolved run waiting for the player to collect.
type PendingOutput struct {
	ResourceID string
	Quantity   int64
	Success    bool
}

// Worker is one hired instance of a blueprint. Acquisition order is the
// slice order and drives deterministic maintenance billing.
type Worker struct {
	ID      string
	TypeID  string
	Working bool // false while resting; recovery flips it back at zero fatigue
	Fatigue float64
	Accum   float64 // fractional production carried between cycles
}

// Session is the whole economy state for one player. All methods must
// be called from a single goroutine; Run owns it at runtime.
type Session struct {
	cfg  *tuning.Tuning
	cats *catalogs.Catalogs
	seed string

	DCoin Coin
	RP    int64
	Level int
	Exp   int64

	Mana           float64
	MaxMana        float64
	ManaRegenRate  float64
	ManaEfficiency float64
	FurnaceSpeed   float64
	Heat           float64

	Tick  uint64
	Day   int
	Month int
	Year  int

	SlotA            Slot
	SlotB            Slot
	Run              *SynthesisRun
	Pending          *PendingOutput
	LastFailureCause string

	Inventory map[string]int64

	UnlockedRecipes     map[string]bool
	UnlockedWorkerTypes map[string]bool
	PurchasedUpgrades   map[string]bool
	RedeemedCoupons     map[string]bool

	MaxWorkerSlots int
	Workers        []*Worker
	workerSeq      int

	// Market holds the current price multiplier per product id.
	Market map[string]float64

	AdReadyTick uint64

	// outcome stream for synthesis rolls; draws counts total consumption
	// so a restored session can fast-forward to the same position.
	roll  *rng.Stream
	draws uint64

	// OnEvent, when set, receives every domain event as it is emitted.
	OnEvent func(protocol.Event)
}

// NewSession builds the fresh starting state for seed.
func NewSession(cfg *tuning.Tuning, cats *catalogs.Catalogs, seed string) *Session {
	s := &Session{
		cfg:  cfg,
		cats: cats,
		seed: seed,

		DCoin: CoinFromFloat(100),
		RP:    50,
		Level: 1,

		Mana:           100,
		MaxMana:        100,
		ManaRegenRate:  1,
		ManaEfficiency: 1.0,
		FurnaceSpeed:   1.0,

		Day:   1,
		Month: 1,
		Year:  1,

		Inventory: map[string]int64{
			"R_IRON":   25,
			"R_WATER":  25,
			"R_STONE":  25,
			"E_ELIXIR": 0,
			"R_AQUA":   0,
		},

		UnlockedRecipes: map[string]bool{},
		UnlockedWorkerTypes: map[string]bool{
			"W_IRON_MINER_BASIC":      true,
			"W_WATER_COLLECTOR_BASIC": true,
			"W_STONE_MINER_BASIC":     true,
		},
		PurchasedUpgrades: map[string]bool{},
		RedeemedCoupons:   map[string]bool{},

		MaxWorkerSlots: cfg.InitialWorkerSlots,
		Market:         map[string]float64{},

		roll: rng.New(seed),
	}
	s.RefreshMarket()
	return s
}

func (s *Session) Seed() string                 { return s.seed }
func (s *Session) Tuning() *tuning.Tuning       { return s.cfg }
func (s *Session) Catalogs() *catalogs.Catalogs { return s.cats }

func (s *Session) emit(typ string, sev protocol.Severity, msg string, data map[string]any) {
	if s.OnEvent == nil {
		return
	}
	s.OnEvent(protocol.Event{Tick: s.Tick, Type: typ, Severity: sev, Message: msg, Data: data})
}

// rollFloat draws from the outcome stream and records the draw.
func (s *Session) rollFloat() float64 {
	s.draws++
	return s.roll.Float64()
}

func (s *Session) addInventory(id string, n int64) {
	if n == 0 {
		return
	}
	s.Inventory[id] += n
	if s.Inventory[id] < 0 {
		// callers check availability first; clamp guards against drift
		s.Inventory[id] = 0
	}
}

func (s *Session) have(id string) int64 { return s.Inventory[id] }

// LivePrice is the current sell price for a resource. Products track the
// monthly market multiplier; raw materials always trade at base price.
func (s *Session) LivePrice(id string) (Coin, bool) {
	def, ok := s.cats.Resources.ByID[id]
	if !ok {
		return 0, false
	}
	price := def.BasePrice
	if def.IsProduct() {
		if m, ok := s.Market[id]; ok {
			price = round4(def.BasePrice * m)
		}
	}
	return CoinFromFloat(price), true
}

func (s *Session) nextWorkerID() string {
	s.workerSeq++
	return fmt.Sprintf("W%06d", s.workerSeq)
}

// workerByID returns the worker and its index, or -1.
func (s *Session) workerByID(id string) (*Worker, int) {
	for i, w := range s.Workers {
		if w.ID == id {
			return w, i
		}
	}
	return nil, -1
}
