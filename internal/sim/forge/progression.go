package forge

import (
	"fmt"

	"github.com/agnivade/levenshtein"

	"aethernexus.forge/internal/protocol"
	"aethernexus.forge/internal/sim/catalogs"
)

// IAPRemoveAds is the utility purchase that disables the free ad reward.
const IAPRemoveAds = "IAP_REMOVE_ADS"

// checkLevelUp consumes banked experience, handling several levels in
// one pass when a big collection lands.
func (s *Session) checkLevelUp() {
	for s.Exp >= int64(s.Level*s.cfg.LevelExpMultiplier) {
		s.Exp -= int64(s.Level * s.cfg.LevelExpMultiplier)
		s.Level++
		s.emit(protocol.EvLevelUp, protocol.SevSuccess, fmt.Sprintf("Reached level %d", s.Level), map[string]any{
			"level": s.Level,
		})
	}
}

// ResearchRecipe spends research points to unlock a gated recipe.
func (s *Session) ResearchRecipe(pair string) protocol.Result {
	key, ok := parsePairKey(pair)
	if !ok {
		return protocol.Fail(protocol.ErrInvalidTarget, "bad recipe key: "+pair)
	}
	recipe, found := s.cats.Recipes.ByKey[key]
	if !found || !recipe.RequiresUnlock {
		return protocol.Fail(protocol.ErrInvalidTarget, "invalid research target")
	}
	if s.UnlockedRecipes[key.String()] {
		return protocol.Fail(protocol.ErrAlready, "recipe already unlocked")
	}
	if s.Level < recipe.LevelUnlock {
		return protocol.Fail(protocol.ErrLevelLow, fmt.Sprintf("need level %d", recipe.LevelUnlock))
	}
	if s.RP < int64(recipe.RPCost) {
		return protocol.Fail(protocol.ErrNoFunds, fmt.Sprintf("requires %d RP", recipe.RPCost))
	}
	s.RP -= int64(recipe.RPCost)
	s.UnlockedRecipes[key.String()] = true
	s.emit(protocol.EvRecipeUnlocked, protocol.SevSuccess, "Recipe for "+recipe.OutputID+" unlocked", map[string]any{
		"pair": key.String(), "output_id": recipe.OutputID,
	})
	return protocol.OKResult()
}

// ResearchWorkerType spends research points to unlock a blueprint.
func (s *Session) ResearchWorkerType(typeID string) protocol.Result {
	bp, ok := s.cats.Workers.ByID[typeID]
	if !ok {
		return protocol.Fail(protocol.ErrInvalidTarget, "unknown blueprint: "+typeID)
	}
	if s.UnlockedWorkerTypes[typeID] {
		return protocol.Fail(protocol.ErrAlready, "blueprint already unlocked")
	}
	if s.RP < int64(bp.RPUnlockCost) {
		return protocol.Fail(protocol.ErrNoFunds, fmt.Sprintf("need %d RP to unlock blueprint", bp.RPUnlockCost))
	}
	if s.Level < bp.LevelUnlock {
		return protocol.Fail(protocol.ErrLevelLow, fmt.Sprintf("need level %d to unlock blueprint", bp.LevelUnlock))
	}
	s.RP -= int64(bp.RPUnlockCost)
	s.UnlockedWorkerTypes[typeID] = true
	s.emit(protocol.EvWorkerUnlocked, protocol.SevSuccess, "Blueprint "+bp.Name+" unlocked", map[string]any{
		"type_id": typeID,
	})
	return protocol.OKResult()
}

// BuyUpgrade purchases a permanent upgrade. Slot upgrades cost D-Coin
// and raise the worker cap; stat upgrades cost research points.
func (s *Session) BuyUpgrade(upgradeID string) protocol.Result {
	up, ok := s.cats.Upgrades.ByID[upgradeID]
	if !ok {
		return protocol.Fail(protocol.ErrInvalidTarget, "unknown upgrade: "+upgradeID)
	}
	if s.PurchasedUpgrades[upgradeID] {
		return protocol.Fail(protocol.ErrAlready, "upgrade already purchased")
	}
	if up.LevelUnlock > 0 && s.Level < up.LevelUnlock {
		return protocol.Fail(protocol.ErrLevelLow, fmt.Sprintf("need level %d", up.LevelUnlock))
	}

	if up.Kind == catalogs.UpgradeKindWorkerSlot {
		cost := CoinFromFloat(up.CoinCost)
		if s.DCoin < cost {
			return protocol.Fail(protocol.ErrNoFunds, fmt.Sprintf("requires %s D-Coin", cost))
		}
		s.DCoin -= cost
	} else {
		if s.RP < int64(up.RPCost) {
			return protocol.Fail(protocol.ErrNoFunds, fmt.Sprintf("requires %d RP", up.RPCost))
		}
		s.RP -= int64(up.RPCost)
	}

	switch up.Effect.Stat {
	case "maxWorkerSlots":
		s.MaxWorkerSlots += int(up.Effect.Value)
		if s.MaxWorkerSlots > s.cfg.MaxWorkerSlotsCap {
			s.MaxWorkerSlots = s.cfg.MaxWorkerSlotsCap
		}
	case "manaEfficiency":
		// lower is better; the effect value is a reduction
		s.ManaEfficiency -= up.Effect.Value
		if s.ManaEfficiency < s.cfg.MinManaEfficiency {
			s.ManaEfficiency = s.cfg.MinManaEfficiency
		}
	case "furnaceSpeed":
		s.FurnaceSpeed += up.Effect.Value
	case "maxMana":
		s.MaxMana += up.Effect.Value
		s.Mana = s.MaxMana
	case "manaRegenRate":
		s.ManaRegenRate += up.Effect.Value
	default:
		return protocol.Fail(protocol.ErrInternal, "unknown upgrade stat: "+up.Effect.Stat)
	}

	s.PurchasedUpgrades[upgradeID] = true
	s.emit(protocol.EvUpgradePurchased, protocol.SevSuccess, "Upgrade purchased: "+up.Name, map[string]any{
		"upgrade_id": upgradeID,
	})
	return protocol.OKResult()
}

// SellResource sells finished products at the live market price. Raw
// materials are not tradable.
func (s *Session) SellResource(resourceID string, qty int64) protocol.Result {
	def, ok := s.cats.Resources.ByID[resourceID]
	if !ok || !def.IsProduct() {
		return protocol.Fail(protocol.ErrInvalidTarget, "not a sellable product: "+resourceID)
	}
	if qty <= 0 {
		return protocol.Fail(protocol.ErrBadRequest, "quantity must be positive")
	}
	if s.have(resourceID) < qty {
		return protocol.Fail(protocol.ErrNoResource, "not enough "+resourceID)
	}
	price, _ := s.LivePrice(resourceID)
	value := price * Coin(qty)
	s.addInventory(resourceID, -qty)
	s.DCoin += value
	s.emit(protocol.EvSale, protocol.SevSuccess,
		fmt.Sprintf("Sold %dx %s for %s D-Coin", qty, def.Name, value), map[string]any{
			"resource_id": resourceID, "quantity": qty, "coin": value.Float(),
		})
	return protocol.OKResult()
}

// SellAllProducts liquidates every product stack in one sweep.
func (s *Session) SellAllProducts() protocol.Result {
	var total Coin
	var sold int64
	for _, id := range s.cats.Resources.SortedProducts() {
		count := s.have(id)
		if count <= 0 {
			continue
		}
		price, _ := s.LivePrice(id)
		total += price * Coin(count)
		sold += count
		s.Inventory[id] = 0
	}
	if sold == 0 {
		return protocol.Fail(protocol.ErrNoResource, "no products to sell")
	}
	s.DCoin += total
	s.emit(protocol.EvSale, protocol.SevSuccess,
		fmt.Sprintf("Bulk sale complete, %d items sold for %s D-Coin", sold, total), map[string]any{
			"quantity": sold, "coin": total.Float(),
		})
	return protocol.OKResult()
}

// RedeemCoupon credits a promo code. Unique codes redeem once per
// session; a near-miss code gets a suggestion in the rejection.
func (s *Session) RedeemCoupon(code string) protocol.Result {
	coupon, ok := s.cats.Coupons.ByCode[code]
	if !ok {
		msg := "coupon invalid or expired"
		if hint := s.suggestCoupon(code); hint != "" {
			msg += ", did you mean " + hint + "?"
		}
		return protocol.Fail(protocol.ErrInvalidTarget, msg)
	}
	if coupon.Unique && s.RedeemedCoupons[code] {
		return protocol.Fail(protocol.ErrAlready, "coupon already redeemed")
	}
	if coupon.RP > 0 {
		s.RP += int64(coupon.RP)
	}
	if coupon.DCoin > 0 {
		s.DCoin += CoinFromFloat(coupon.DCoin)
	}
	s.RedeemedCoupons[code] = true
	s.emit(protocol.EvCouponRedeemed, protocol.SevSuccess, "Coupon "+code+" redeemed", map[string]any{
		"code": code, "dcoin": coupon.DCoin, "rp": coupon.RP,
	})
	return protocol.OKResult()
}

// suggestCoupon finds the closest known code within a small edit
// distance, or returns empty.
func (s *Session) suggestCoupon(code string) string {
	best, bestDist := "", 4
	for _, known := range s.cats.Coupons.SortedCodes() {
		if d := levenshtein.ComputeDistance(code, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}

// AdReward grants the free ad bonus, subject to the cooldown. Players
// who bought the ad-removal utility no longer receive it.
func (s *Session) AdReward() protocol.Result {
	if s.Tick < s.AdReadyTick {
		return protocol.Fail(protocol.ErrAlready, "ad reward is on cooldown")
	}
	if s.PurchasedUpgrades[IAPRemoveAds] {
		return protocol.Fail(protocol.ErrBadRequest, "ads removed, no free reward available")
	}
	s.FulfillCurrencyPurchase(s.cfg.AdCoinReward, "DCOIN")
	s.FulfillCurrencyPurchase(float64(s.cfg.AdRPReward), "RP")
	s.AdReadyTick = s.Tick + uint64(s.cfg.AdCooldownTicks)
	return protocol.OKResult()
}

// FulfillCurrencyPurchase credits a completed store purchase or reward.
func (s *Session) FulfillCurrencyPurchase(amount float64, kind string) protocol.Result {
	if amount <= 0 {
		return protocol.Fail(protocol.ErrBadRequest, "invalid amount")
	}
	switch kind {
	case "DCOIN":
		s.DCoin += CoinFromFloat(amount)
	case "RP":
		s.RP += int64(amount)
	default:
		return protocol.Fail(protocol.ErrBadRequest, "unknown currency kind: "+kind)
	}
	s.emit(protocol.EvPurchaseFulfilled, protocol.SevSuccess, "", map[string]any{
		"kind": kind, "amount": amount,
	})
	return protocol.OKResult()
}

// FulfillUtilityPurchase records a completed utility purchase.
func (s *Session) FulfillUtilityPurchase(id string) protocol.Result {
	if id != IAPRemoveAds {
		return protocol.Fail(protocol.ErrInvalidTarget, "unknown utility: "+id)
	}
	if s.PurchasedUpgrades[id] {
		return protocol.Fail(protocol.ErrAlready, "already owned")
	}
	s.PurchasedUpgrades[id] = true
	s.emit(protocol.EvPurchaseFulfilled, protocol.SevSuccess, "Ads permanently removed", map[string]any{
		"kind": "UTILITY", "id": id,
	})
	return protocol.OKResult()
}
