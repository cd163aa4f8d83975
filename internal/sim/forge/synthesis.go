package forge

import (
	"fmt"
	"math"
	"strings"

	"aethernexus.forge/internal/protocol"
	"aethernexus.forge/internal/sim/catalogs"
)

// parsePairKey reads an "A|B" recipe key in either input order.
func parsePairKey(s string) (catalogs.PairKey, bool) {
	a, b, ok := strings.Cut(s, "|")
	if !ok || a == "" || b == "" {
		return catalogs.PairKey{}, false
	}
	return catalogs.KeyFor(a, b), true
}

const (
	SlotNameA = "A"
	SlotNameB = "B"
)

const (
	FailureCauseChance = "CHANCE"
	FailureCauseHeat   = "HEAT"
)

func (s *Session) slot(name string) *Slot {
	switch name {
	case SlotNameA:
		return &s.SlotA
	case SlotNameB:
		return &s.SlotB
	}
	return nil
}

// PlaceResource puts qty units of a resource into a forge slot, moving
// them out of inventory. A previously held stack goes back first.
func (s *Session) PlaceResource(slotName, resourceID string, qty int64) protocol.Result {
	sl := s.slot(slotName)
	if sl == nil {
		return protocol.Fail(protocol.ErrInvalidTarget, "no such slot: "+slotName)
	}
	if s.Run != nil {
		return protocol.Fail(protocol.ErrForgeBusy, "forge is busy")
	}
	if _, ok := s.cats.Resources.ByID[resourceID]; !ok {
		return protocol.Fail(protocol.ErrInvalidTarget, "unknown resource: "+resourceID)
	}
	if qty <= 0 {
		qty = 1
	}
	if s.have(resourceID) < qty {
		return protocol.Fail(protocol.ErrNoResource, "not enough "+resourceID)
	}
	if !sl.Empty() {
		s.addInventory(sl.ResourceID, sl.Quantity)
		s.emit(protocol.EvItemReturned, protocol.SevInfo, "", map[string]any{
			"resource_id": sl.ResourceID, "quantity": sl.Quantity,
		})
	}
	s.addInventory(resourceID, -qty)
	*sl = Slot{ResourceID: resourceID, Quantity: qty}
	return protocol.OKResult()
}

// RemoveFromSlot empties a slot back into inventory.
func (s *Session) RemoveFromSlot(slotName string) protocol.Result {
	sl := s.slot(slotName)
	if sl == nil {
		return protocol.Fail(protocol.ErrInvalidTarget, "no such slot: "+slotName)
	}
	if s.Run != nil {
		return protocol.Fail(protocol.ErrForgeBusy, "forge is busy")
	}
	if sl.Empty() {
		return protocol.Fail(protocol.ErrSlotEmpty, "slot "+slotName+" is empty")
	}
	s.addInventory(sl.ResourceID, sl.Quantity)
	*sl = Slot{}
	return protocol.OKResult()
}

// MoveBetweenSlots swaps the contents of the two slots.
func (s *Session) MoveBetweenSlots(fromName, toName string) protocol.Result {
	from, to := s.slot(fromName), s.slot(toName)
	if from == nil || to == nil || fromName == toName {
		return protocol.Fail(protocol.ErrInvalidTarget, "bad slot pair")
	}
	if s.Run != nil {
		return protocol.Fail(protocol.ErrForgeBusy, "forge is busy")
	}
	if from.Empty() {
		return protocol.Fail(protocol.ErrSlotEmpty, "slot "+fromName+" is empty")
	}
	*from, *to = *to, *from
	return protocol.OKResult()
}

// AdjustSlotQuantity changes a held stack by delta. Increases draw from
// inventory; decreases return to it. The stack never drops below one
// unit and never exceeds what the player owns.
func (s *Session) AdjustSlotQuantity(slotName string, delta int64) protocol.Result {
	sl := s.slot(slotName)
	if sl == nil {
		return protocol.Fail(protocol.ErrInvalidTarget, "no such slot: "+slotName)
	}
	if s.Run != nil {
		return protocol.Fail(protocol.ErrForgeBusy, "forge is busy")
	}
	if sl.Empty() {
		return protocol.Fail(protocol.ErrSlotEmpty, "slot "+slotName+" is empty")
	}
	newQty := sl.Quantity + delta
	if newQty < 1 {
		newQty = 1
	}
	if max := sl.Quantity + s.have(sl.ResourceID); newQty > max {
		newQty = max
	}
	s.addInventory(sl.ResourceID, sl.Quantity-newQty)
	sl.Quantity = newQty
	return protocol.OKResult()
}

// gaussian is the closeness score for one aiming dial: 1.0 on target,
// falling off with distance scaled by sigma.
func gaussian(v, target, sigma float64) float64 {
	d := v - target
	return math.Exp(-(d * d) / (2 * sigma * sigma))
}

// aimTargets returns the dial targets for a recipe. Explicit catalog
// values win; otherwise frequency centers at 50 and pressure scales
// with research cost, capped at the dial maximum.
func aimTargets(r catalogs.RecipeDef) (freq, pressure float64) {
	freq = 50
	if r.TargetFrequency != 0 {
		freq = r.TargetFrequency
	}
	pressure = float64(r.RPCost)*4 + 300
	if float64(r.RPCost)*4 > 1000 {
		pressure = 1000
	}
	if r.TargetPressure != 0 {
		pressure = r.TargetPressure
	}
	return freq, pressure
}

// aimSigmas returns the precision requirement. Costlier recipes demand
// tighter dial placement.
func aimSigmas(r catalogs.RecipeDef) (sigmaFreq, sigmaPressure float64) {
	switch {
	case r.RPCost > 500:
		return 8, 100
	case r.RPCost > 100:
		return 12, 150
	}
	return 15, 200
}

// AttemptSynthesis consumes the slot contents and starts a run. The
// outcome is rolled up front from the seeded stream; the timer only
// delays its application. freq and pressure are the player's dials.
// Only one run is in flight at a time; an uncollected output does not
// block the next attempt and is banked when the new run resolves.
func (s *Session) AttemptSynthesis(freq, pressure float64) protocol.Result {
	if s.Run != nil {
		return protocol.Fail(protocol.ErrForgeBusy, "forge is busy")
	}
	if s.SlotA.Empty() || s.SlotB.Empty() {
		return protocol.Fail(protocol.ErrSlotEmpty, "need two resources to begin synthesis")
	}

	qty := s.SlotA.Quantity
	if s.SlotB.Quantity < qty {
		qty = s.SlotB.Quantity
	}
	key := catalogs.KeyFor(s.SlotA.ResourceID, s.SlotB.ResourceID)
	recipe, known := s.cats.Recipes.ByKey[key]

	if known && recipe.RequiresUnlock && !s.UnlockedRecipes[key.String()] {
		return protocol.Fail(protocol.ErrLocked, "recipe locked: "+key.String())
	}

	var manaCost float64
	if known {
		manaCost = s.cfg.BaseManaCost * s.ManaEfficiency * float64(qty)
		if s.Mana < manaCost {
			return protocol.Fail(protocol.ErrNoMana, "not enough mana")
		}
	}

	// Past this point the attempt is committed: take the paired units
	// from both slots and hand any excess in the larger stack back.
	s.consumeSlots(qty)

	if !known {
		// Unrecognized pair: quick structural failure into residue.
		// No mana or heat, a single unit of waste, one tick.
		s.Run = &SynthesisRun{
			RecipeKey:      key.String(),
			OutputID:       "R_MESS",
			Quantity:       1,
			RemainingTicks: 1,
			Success:        false,
			FailureCause:   FailureCauseChance,
		}
		s.emit(protocol.EvSynthesisStarted, protocol.SevWarning,
			"Combination failed! No recipe found.", map[string]any{"pair": key.String()})
		return protocol.OKResult()
	}

	s.Mana -= manaCost

	heatGen := (5 + float64(recipe.RPCost)/10) * float64(qty) * (1 + s.Heat/100)
	s.Heat = math.Min(100, s.Heat+heatGen)

	targetFreq, targetPressure := aimTargets(recipe)
	sigmaFreq, sigmaPressure := aimSigmas(recipe)
	rawChance := recipe.BaseChance * gaussian(freq, targetFreq, sigmaFreq) * gaussian(pressure, targetPressure, sigmaPressure)

	var heatPenalty float64
	cause := FailureCauseChance
	if s.Heat >= s.cfg.HeatFailureThreshold {
		heatPenalty = s.cfg.HeatFlatPenalty
		cause = FailureCauseHeat
	}
	finalChance := rawChance - s.Heat/200 + s.Mana/(s.MaxMana*4) - heatPenalty
	finalChance = math.Max(0.01, math.Min(1.0, finalChance))

	success := s.rollFloat() < finalChance
	outputID := recipe.OutputID
	outQty := qty
	if !success {
		outputID = "R_MESS"
		outQty = qty/2 + 1
	}

	duration := int(math.Ceil(float64(recipe.BaseDuration) * math.Pow(float64(qty), 0.7) / s.FurnaceSpeed))
	if duration < 1 {
		duration = 1
	}

	s.Run = &SynthesisRun{
		RecipeKey:      key.String(),
		OutputID:       outputID,
		Quantity:       outQty,
		RemainingTicks: duration,
		Success:        success,
		FinalChance:    finalChance,
		FailureCause:   cause,
	}
	s.emit(protocol.EvSynthesisStarted, protocol.SevInfo,
		fmt.Sprintf("Synthesis started: %dx %s", qty, key.String()), map[string]any{
			"pair": key.String(), "quantity": qty, "duration": duration, "chance": round4(finalChance),
		})
	return protocol.OKResult()
}

// consumeSlots removes qty units from each slot, returns any surplus in
// the larger stack to inventory and clears both slots.
func (s *Session) consumeSlots(qty int64) {
	for _, sl := range []*Slot{&s.SlotA, &s.SlotB} {
		if excess := sl.Quantity - qty; excess > 0 {
			s.addInventory(sl.ResourceID, excess)
			s.emit(protocol.EvItemReturned, protocol.SevInfo, "", map[string]any{
				"resource_id": sl.ResourceID, "quantity": excess,
			})
		}
		*sl = Slot{}
	}
}

// tickRun advances the in-flight craft and resolves it at zero.
func (s *Session) tickRun() {
	if s.Run == nil {
		return
	}
	s.Run.RemainingTicks--
	if s.Run.RemainingTicks > 0 {
		return
	}
	run := s.Run
	s.Run = nil

	// An output the player never picked up is collected on their behalf
	// rather than destroyed by the new one.
	if s.Pending != nil {
		s.CollectOutput()
	}
	s.Pending = &PendingOutput{ResourceID: run.OutputID, Quantity: run.Quantity, Success: run.Success}
	if run.Success {
		s.RP += int64(s.cfg.RPSuccessPerUnit) * run.Quantity
		s.LastFailureCause = ""
		s.emit(protocol.EvSynthesisResolved, protocol.SevSuccess,
			fmt.Sprintf("Synthesis complete: %dx %s", run.Quantity, run.OutputID), map[string]any{
				"resource_id": run.OutputID, "quantity": run.Quantity, "success": true,
			})
	} else {
		s.RP += int64(s.cfg.RPFailurePerUnit) * run.Quantity
		s.LastFailureCause = run.FailureCause
		s.emit(protocol.EvSynthesisResolved, protocol.SevWarning,
			fmt.Sprintf("Synthesis failed (%s): %dx %s", run.FailureCause, run.Quantity, run.OutputID), map[string]any{
				"resource_id": run.OutputID, "quantity": run.Quantity, "success": false, "cause": run.FailureCause,
			})
	}
}

// CollectOutput moves the resolved output into inventory. Finished
// Products also pay out their live market value on the spot.
func (s *Session) CollectOutput() protocol.Result {
	if s.Run != nil {
		return protocol.Fail(protocol.ErrForgeBusy, "wait for finish")
	}
	if s.Pending == nil {
		return protocol.Fail(protocol.ErrSlotEmpty, "nothing to collect")
	}
	out := s.Pending
	s.Pending = nil

	s.addInventory(out.ResourceID, out.Quantity)

	def := s.cats.Resources.ByID[out.ResourceID]
	var paid Coin
	if def.IsProduct() {
		if price, ok := s.LivePrice(out.ResourceID); ok {
			paid = price * Coin(out.Quantity)
			s.DCoin += paid
		}
	}

	s.Exp += int64(s.cfg.ExpPerOutputUnit) * out.Quantity
	s.checkLevelUp()

	s.emit(protocol.EvOutputCollected, protocol.SevSuccess,
		fmt.Sprintf("Collected %dx %s", out.Quantity, out.ResourceID), map[string]any{
			"resource_id": out.ResourceID, "quantity": out.Quantity, "coin": paid.Float(),
		})
	return protocol.OKResult()
}
