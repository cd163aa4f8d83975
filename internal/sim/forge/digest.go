package forge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// StateDigest hashes the full observable state. Two sessions that
// applied the same ops at the same ticks must digest identically; the
// determinism tests lean on this. Map fields are safe because
// encoding/json emits map keys sorted.
func (s *Session) StateDigest() string {
	type workerView struct {
		ID      string  `json:"id"`
		TypeID  string  `json:"type_id"`
		Working bool    `json:"working"`
		Fatigue float64 `json:"fatigue"`
		Accum   float64 `json:"accum"`
	}
	workers := make([]workerView, 0, len(s.Workers))
	for _, w := range s.Workers {
		workers = append(workers, workerView{w.ID, w.TypeID, w.Working, w.Fatigue, w.Accum})
	}

	view := struct {
		Tick  uint64 `json:"tick"`
		Day   int    `json:"day"`
		Month int    `json:"month"`
		Year  int    `json:"year"`

		DCoin Coin  `json:"dcoin"`
		RP    int64 `json:"rp"`
		Level int   `json:"level"`
		Exp   int64 `json:"exp"`

		Mana           float64 `json:"mana"`
		MaxMana        float64 `json:"max_mana"`
		ManaRegenRate  float64 `json:"mana_regen_rate"`
		ManaEfficiency float64 `json:"mana_efficiency"`
		FurnaceSpeed   float64 `json:"furnace_speed"`
		Heat           float64 `json:"heat"`

		SlotA            Slot           `json:"slot_a"`
		SlotB            Slot           `json:"slot_b"`
		Run              *SynthesisRun  `json:"run"`
		Pending          *PendingOutput `json:"pending"`
		LastFailureCause string         `json:"last_failure_cause"`

		Inventory map[string]int64 `json:"inventory"`

		UnlockedRecipes     map[string]bool `json:"unlocked_recipes"`
		UnlockedWorkerTypes map[string]bool `json:"unlocked_worker_types"`
		PurchasedUpgrades   map[string]bool `json:"purchased_upgrades"`
		RedeemedCoupons     map[string]bool `json:"redeemed_coupons"`

		MaxWorkerSlots int          `json:"max_worker_slots"`
		Workers        []workerView `json:"workers"`

		Market map[string]float64 `json:"market"`

		AdReadyTick uint64 `json:"ad_ready_tick"`
		Draws       uint64 `json:"draws"`
	}{
		Tick: s.Tick, Day: s.Day, Month: s.Month, Year: s.Year,
		DCoin: s.DCoin, RP: s.RP, Level: s.Level, Exp: s.Exp,
		Mana: s.Mana, MaxMana: s.MaxMana, ManaRegenRate: s.ManaRegenRate,
		ManaEfficiency: s.ManaEfficiency, FurnaceSpeed: s.FurnaceSpeed, Heat: s.Heat,
		SlotA: s.SlotA, SlotB: s.SlotB, Run: s.Run, Pending: s.Pending,
		LastFailureCause: s.LastFailureCause,
		Inventory:        s.Inventory,
		UnlockedRecipes:  s.UnlockedRecipes, UnlockedWorkerTypes: s.UnlockedWorkerTypes,
		PurchasedUpgrades: s.PurchasedUpgrades, RedeemedCoupons: s.RedeemedCoupons,
		MaxWorkerSlots: s.MaxWorkerSlots, Workers: workers,
		Market:      s.Market,
		AdReadyTick: s.AdReadyTick, Draws: s.draws,
	}

	b, err := json.Marshal(view)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
