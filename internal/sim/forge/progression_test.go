package forge

import (
	"strings"
	"testing"

	"aethernexus.forge/internal/protocol"
)

func TestMultiLevelUp(t *testing.T) {
	s := newTestSession(t, "seed-level")
	s.Exp = 250
	s.checkLevelUp()
	// 100 to reach level 2, then 200 for level 3 is out of reach
	if s.Level != 2 || s.Exp != 150 {
		t.Fatalf("level=%d exp=%d", s.Level, s.Exp)
	}
	s.Exp += 50
	s.checkLevelUp()
	if s.Level != 3 || s.Exp != 0 {
		t.Fatalf("level=%d exp=%d", s.Level, s.Exp)
	}
}

func TestResearchRecipe(t *testing.T) {
	s := newTestSession(t, "seed-research")

	// R_IRON|R_MESS: requires_unlock, level 1, 5 RP
	if res := s.ResearchRecipe("R_MESS|R_IRON"); !res.OK {
		t.Fatalf("research (reversed order key): %+v", res)
	}
	if s.RP != 45 {
		t.Fatalf("rp after research = %d", s.RP)
	}
	if res := s.ResearchRecipe("R_IRON|R_MESS"); res.OK || res.Code != protocol.ErrAlready {
		t.Fatalf("double research: %+v", res)
	}

	// free recipes are not research targets
	if res := s.ResearchRecipe("R_WATER|R_STONE"); res.OK || res.Code != protocol.ErrInvalidTarget {
		t.Fatalf("free recipe: %+v", res)
	}
	// level gate before RP gate
	if res := s.ResearchRecipe("R_QUARTZ|R_AQUA"); res.OK || res.Code != protocol.ErrLevelLow {
		t.Fatalf("level gate: %+v", res)
	}
	s.Level = 3
	s.RP = 10
	if res := s.ResearchRecipe("R_QUARTZ|R_AQUA"); res.OK || res.Code != protocol.ErrNoFunds {
		t.Fatalf("rp gate: %+v", res)
	}
}

func TestResearchWorkerType(t *testing.T) {
	s := newTestSession(t, "seed-research-worker")
	s.Level = 2
	if res := s.ResearchWorkerType("W_T2_COAL"); !res.OK {
		t.Fatalf("research: %+v", res)
	}
	if s.RP != 0 || !s.UnlockedWorkerTypes["W_T2_COAL"] {
		t.Fatalf("rp=%d unlocked=%v", s.RP, s.UnlockedWorkerTypes["W_T2_COAL"])
	}
	if res := s.ResearchWorkerType("W_T2_COAL"); res.OK || res.Code != protocol.ErrAlready {
		t.Fatalf("double research: %+v", res)
	}
}

func TestBuyWorkerSlotUpgrade(t *testing.T) {
	s := newTestSession(t, "seed-slots-upgrade")
	s.Level = 2
	s.DCoin = CoinFromFloat(600)
	if res := s.BuyUpgrade("U_WORKER_SLOT_2"); !res.OK {
		t.Fatalf("buy: %+v", res)
	}
	if s.MaxWorkerSlots != 2 || s.DCoin != CoinFromFloat(100) {
		t.Fatalf("slots=%d coin=%s", s.MaxWorkerSlots, s.DCoin)
	}
	if res := s.BuyUpgrade("U_WORKER_SLOT_2"); res.OK || res.Code != protocol.ErrAlready {
		t.Fatalf("rebuy: %+v", res)
	}
}

func TestStatUpgrades(t *testing.T) {
	s := newTestSession(t, "seed-stats")
	s.Level = 10
	s.RP = 100000

	s.Mana = 40
	if res := s.BuyUpgrade("U_MANA_MAX_1"); !res.OK {
		t.Fatalf("max mana: %+v", res)
	}
	if s.MaxMana != 150 || s.Mana != 150 {
		t.Fatalf("max mana upgrade should refill: %v/%v", s.Mana, s.MaxMana)
	}

	if res := s.BuyUpgrade("U_MANA_EFF_1"); !res.OK {
		t.Fatalf("efficiency: %+v", res)
	}
	if s.ManaEfficiency != 0.85 {
		t.Fatalf("efficiency = %v", s.ManaEfficiency)
	}
	// the efficiency floor holds no matter how many reductions stack
	s.ManaEfficiency = 0.2
	if res := s.BuyUpgrade("U_MANA_EFF_2"); !res.OK {
		t.Fatalf("efficiency 2: %+v", res)
	}
	if s.ManaEfficiency != 0.1 {
		t.Fatalf("efficiency floor = %v", s.ManaEfficiency)
	}

	if res := s.BuyUpgrade("U_FURNACE_SPEED_1"); !res.OK {
		t.Fatalf("furnace: %+v", res)
	}
	if s.FurnaceSpeed != 1.25 {
		t.Fatalf("furnace speed = %v", s.FurnaceSpeed)
	}
}

func TestSellProduct(t *testing.T) {
	s := newTestSession(t, "seed-sell")
	s.Inventory["P_TINCTURE"] = 4

	price, _ := s.LivePrice("P_TINCTURE")
	coinBefore := s.DCoin
	if res := s.SellResource("P_TINCTURE", 3); !res.OK {
		t.Fatalf("sell: %+v", res)
	}
	if s.have("P_TINCTURE") != 1 {
		t.Fatalf("remaining stock = %d", s.have("P_TINCTURE"))
	}
	if s.DCoin != coinBefore+price*3 {
		t.Fatalf("payout: %s -> %s", coinBefore, s.DCoin)
	}

	if res := s.SellResource("R_IRON", 1); res.OK || res.Code != protocol.ErrInvalidTarget {
		t.Fatalf("raw material sale: %+v", res)
	}
	if res := s.SellResource("P_TINCTURE", 5); res.OK || res.Code != protocol.ErrNoResource {
		t.Fatalf("oversell: %+v", res)
	}
}

func TestSellAllProducts(t *testing.T) {
	s := newTestSession(t, "seed-sell-all")
	s.Inventory["P_TINCTURE"] = 2
	s.Inventory["E_ELIXIR"] = 3

	tincture, _ := s.LivePrice("P_TINCTURE")
	elixir, _ := s.LivePrice("E_ELIXIR")
	coinBefore := s.DCoin
	if res := s.SellAllProducts(); !res.OK {
		t.Fatalf("sell all: %+v", res)
	}
	if s.have("P_TINCTURE") != 0 || s.have("E_ELIXIR") != 0 {
		t.Fatal("stock not cleared")
	}
	want := coinBefore + tincture*2 + elixir*3
	if s.DCoin != want {
		t.Fatalf("payout: got %s want %s", s.DCoin, want)
	}
	if s.have("R_IRON") != 25 {
		t.Fatal("raw materials were sold")
	}

	if res := s.SellAllProducts(); res.OK || res.Code != protocol.ErrNoResource {
		t.Fatalf("empty sell all: %+v", res)
	}
}

func TestRedeemCoupon(t *testing.T) {
	s := newTestSession(t, "seed-coupon")
	coinBefore, rpBefore := s.DCoin, s.RP
	if res := s.RedeemCoupon("WELCOME-FORGE"); !res.OK {
		t.Fatalf("redeem: %+v", res)
	}
	if s.DCoin != coinBefore+CoinFromFloat(250) || s.RP != rpBefore+25 {
		t.Fatalf("rewards: coin=%s rp=%d", s.DCoin, s.RP)
	}
	if res := s.RedeemCoupon("WELCOME-FORGE"); res.OK || res.Code != protocol.ErrAlready {
		t.Fatalf("double redeem: %+v", res)
	}

	// reusable codes redeem repeatedly
	if res := s.RedeemCoupon("DAILY-SPARK"); !res.OK {
		t.Fatalf("reusable: %+v", res)
	}
	if res := s.RedeemCoupon("DAILY-SPARK"); !res.OK {
		t.Fatalf("reusable again: %+v", res)
	}
}

func TestCouponSuggestion(t *testing.T) {
	s := newTestSession(t, "seed-suggest")
	res := s.RedeemCoupon("WELCOME-FORG")
	if res.OK || res.Code != protocol.ErrInvalidTarget {
		t.Fatalf("near-miss code: %+v", res)
	}
	if !strings.Contains(res.Message, "WELCOME-FORGE") {
		t.Fatalf("no suggestion in %q", res.Message)
	}

	res = s.RedeemCoupon("ZZZZZZZZZZZZ")
	if strings.Contains(res.Message, "did you mean") {
		t.Fatalf("suggested for garbage: %q", res.Message)
	}
}

func TestAdReward(t *testing.T) {
	s := newTestSession(t, "seed-ad")
	coinBefore, rpBefore := s.DCoin, s.RP
	if res := s.AdReward(); !res.OK {
		t.Fatalf("ad reward: %+v", res)
	}
	if s.DCoin != coinBefore+CoinFromFloat(100) || s.RP != rpBefore+10 {
		t.Fatalf("rewards: coin=%s rp=%d", s.DCoin, s.RP)
	}
	if res := s.AdReward(); res.OK || res.Code != protocol.ErrAlready {
		t.Fatalf("cooldown: %+v", res)
	}

	s.Tick = s.AdReadyTick
	s.PurchasedUpgrades[IAPRemoveAds] = true
	if res := s.AdReward(); res.OK || res.Code != protocol.ErrBadRequest {
		t.Fatalf("removed ads: %+v", res)
	}
}

func TestFulfillPurchases(t *testing.T) {
	s := newTestSession(t, "seed-iap")
	if res := s.FulfillCurrencyPurchase(500, "DCOIN"); !res.OK {
		t.Fatalf("dcoin: %+v", res)
	}
	if s.DCoin != CoinFromFloat(600) {
		t.Fatalf("coin = %s", s.DCoin)
	}
	if res := s.FulfillCurrencyPurchase(-5, "DCOIN"); res.OK {
		t.Fatalf("negative amount: %+v", res)
	}
	if res := s.FulfillCurrencyPurchase(5, "GEMS"); res.OK {
		t.Fatalf("unknown kind: %+v", res)
	}

	if res := s.FulfillUtilityPurchase(IAPRemoveAds); !res.OK {
		t.Fatalf("utility: %+v", res)
	}
	if res := s.FulfillUtilityPurchase(IAPRemoveAds); res.OK || res.Code != protocol.ErrAlready {
		t.Fatalf("double utility: %+v", res)
	}
}
