package forge

import (
	"fmt"
	"math"

	"aethernexus.forge/internal/persistence/snapshot"
	"aethernexus.forge/internal/sim/catalogs"
	"aethernexus.forge/internal/sim/rng"
	"aethernexus.forge/internal/sim/tuning"
)

// Export copies the session into its serialized form.
func (s *Session) Export() *snapshot.SessionV1 {
	snap := &snapshot.SessionV1{
		Seed: s.seed,

		Tick: s.Tick, Day: s.Day, Month: s.Month, Year: s.Year,
		DCoin: int64(s.DCoin), RP: s.RP, Level: s.Level, Exp: s.Exp,

		Mana: s.Mana, MaxMana: s.MaxMana, ManaRegenRate: s.ManaRegenRate,
		ManaEfficiency: s.ManaEfficiency, FurnaceSpeed: s.FurnaceSpeed, Heat: s.Heat,

		SlotA:            snapshot.SlotV1{ResourceID: s.SlotA.ResourceID, Quantity: s.SlotA.Quantity},
		SlotB:            snapshot.SlotV1{ResourceID: s.SlotB.ResourceID, Quantity: s.SlotB.Quantity},
		LastFailureCause: s.LastFailureCause,

		Inventory: copyMap(s.Inventory),

		UnlockedRecipes:     copyMap(s.UnlockedRecipes),
		UnlockedWorkerTypes: copyMap(s.UnlockedWorkerTypes),
		PurchasedUpgrades:   copyMap(s.PurchasedUpgrades),
		RedeemedCoupons:     copyMap(s.RedeemedCoupons),

		MaxWorkerSlots: s.MaxWorkerSlots,
		WorkerSeq:      s.workerSeq,

		AdReadyTick: s.AdReadyTick,
		Draws:       s.draws,
	}
	if s.Run != nil {
		r := *s.Run
		snap.Run = &snapshot.RunV1{
			RecipeKey: r.RecipeKey, OutputID: r.OutputID, Quantity: r.Quantity,
			RemainingTicks: r.RemainingTicks, Success: r.Success,
			FinalChance: r.FinalChance, FailureCause: r.FailureCause,
		}
	}
	if s.Pending != nil {
		p := *s.Pending
		snap.Pending = &snapshot.PendingV1{ResourceID: p.ResourceID, Quantity: p.Quantity, Success: p.Success}
	}
	for _, w := range s.Workers {
		snap.Workers = append(snap.Workers, snapshot.WorkerV1{
			ID: w.ID, TypeID: w.TypeID, Working: w.Working, Fatigue: w.Fatigue, Accum: w.Accum,
		})
	}
	return snap
}

// Restore rebuilds a session from a save. Saves are treated with mild
// suspicion: gauges are clamped back into range, stale failure causes
// are dropped, unknown catalog references are rejected, the slot cap is
// re-derived from owned upgrades, and live prices are recomputed rather
// than trusted.
func Restore(cfg *tuning.Tuning, cats *catalogs.Catalogs, snap *snapshot.SessionV1) (*Session, error) {
	if snap.Seed == "" {
		return nil, fmt.Errorf("restore: empty seed")
	}
	s := NewSession(cfg, cats, snap.Seed)

	s.Tick = snap.Tick
	s.Day, s.Month, s.Year = snap.Day, snap.Month, snap.Year
	if s.Day < 1 {
		s.Day = 1
	}
	if s.Month < 1 {
		s.Month = 1
	}
	if s.Year < 1 {
		s.Year = 1
	}

	s.DCoin = Coin(snap.DCoin)
	if s.DCoin < 0 {
		s.DCoin = 0
	}
	s.RP = max64(0, snap.RP)
	s.Level = snap.Level
	if s.Level < 1 {
		s.Level = 1
	}
	s.Exp = max64(0, snap.Exp)

	if snap.MaxMana > 0 {
		s.MaxMana = snap.MaxMana
	}
	s.Mana = math.Min(s.MaxMana, math.Max(0, snap.Mana))
	if snap.ManaRegenRate > 0 {
		s.ManaRegenRate = snap.ManaRegenRate
	}
	if snap.ManaEfficiency > 0 {
		s.ManaEfficiency = math.Max(cfg.MinManaEfficiency, snap.ManaEfficiency)
	}
	if snap.FurnaceSpeed > 0 {
		s.FurnaceSpeed = snap.FurnaceSpeed
	}
	s.Heat = math.Min(100, math.Max(0, snap.Heat))

	s.Inventory = map[string]int64{}
	for id, n := range snap.Inventory {
		if _, ok := cats.Resources.ByID[id]; !ok {
			return nil, fmt.Errorf("restore: unknown resource %q in inventory", id)
		}
		if n > 0 {
			s.Inventory[id] = n
		} else {
			s.Inventory[id] = 0
		}
	}

	restoreSlot := func(v snapshot.SlotV1, dst *Slot) error {
		if v.ResourceID == "" {
			*dst = Slot{}
			return nil
		}
		if _, ok := cats.Resources.ByID[v.ResourceID]; !ok {
			return fmt.Errorf("restore: unknown resource %q in slot", v.ResourceID)
		}
		if v.Quantity < 1 {
			v.Quantity = 1
		}
		*dst = Slot{ResourceID: v.ResourceID, Quantity: v.Quantity}
		return nil
	}
	if err := restoreSlot(snap.SlotA, &s.SlotA); err != nil {
		return nil, err
	}
	if err := restoreSlot(snap.SlotB, &s.SlotB); err != nil {
		return nil, err
	}

	if snap.Run != nil {
		r := *snap.Run
		if r.RemainingTicks < 1 {
			r.RemainingTicks = 1
		}
		s.Run = &SynthesisRun{
			RecipeKey: r.RecipeKey, OutputID: r.OutputID, Quantity: r.Quantity,
			RemainingTicks: r.RemainingTicks, Success: r.Success,
			FinalChance: r.FinalChance, FailureCause: r.FailureCause,
		}
	}
	if snap.Pending != nil {
		p := *snap.Pending
		s.Pending = &PendingOutput{ResourceID: p.ResourceID, Quantity: p.Quantity, Success: p.Success}
	}
	// stale causes confuse the next failure readout
	s.LastFailureCause = ""

	s.UnlockedRecipes = copyMap(snap.UnlockedRecipes)
	if s.UnlockedRecipes == nil {
		s.UnlockedRecipes = map[string]bool{}
	}
	s.UnlockedWorkerTypes = copyMap(snap.UnlockedWorkerTypes)
	if s.UnlockedWorkerTypes == nil {
		s.UnlockedWorkerTypes = map[string]bool{}
	}
	s.PurchasedUpgrades = copyMap(snap.PurchasedUpgrades)
	if s.PurchasedUpgrades == nil {
		s.PurchasedUpgrades = map[string]bool{}
	}
	s.RedeemedCoupons = copyMap(snap.RedeemedCoupons)
	if s.RedeemedCoupons == nil {
		s.RedeemedCoupons = map[string]bool{}
	}

	// The slot cap comes from owned upgrades, never from the save body.
	s.MaxWorkerSlots = cfg.InitialWorkerSlots
	for id := range s.PurchasedUpgrades {
		up, ok := cats.Upgrades.ByID[id]
		if !ok || up.Kind != catalogs.UpgradeKindWorkerSlot {
			continue
		}
		s.MaxWorkerSlots += int(up.Effect.Value)
	}
	if s.MaxWorkerSlots > cfg.MaxWorkerSlotsCap {
		s.MaxWorkerSlots = cfg.MaxWorkerSlotsCap
	}

	s.Workers = nil
	for _, wv := range snap.Workers {
		if _, ok := cats.Workers.ByID[wv.TypeID]; !ok {
			return nil, fmt.Errorf("restore: unknown worker type %q", wv.TypeID)
		}
		s.Workers = append(s.Workers, &Worker{
			ID: wv.ID, TypeID: wv.TypeID, Working: wv.Working,
			Fatigue: math.Min(cfg.MaxFatigue, math.Max(0, wv.Fatigue)),
			Accum:   math.Max(0, wv.Accum),
		})
	}
	if len(s.Workers) > s.MaxWorkerSlots {
		return nil, fmt.Errorf("restore: %d workers exceed the slot cap %d", len(s.Workers), s.MaxWorkerSlots)
	}
	s.workerSeq = snap.WorkerSeq

	s.AdReadyTick = snap.AdReadyTick
	s.draws = snap.Draws
	s.roll = rng.New(snap.Seed)
	s.roll.Skip(int(snap.Draws))

	s.RefreshMarket()
	return s, nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
