package forge

import (
	"testing"

	"aethernexus.forge/internal/sim/catalogs"
	"aethernexus.forge/internal/sim/tuning"
)

const configDir = "../../../configs"

func newTestSession(t *testing.T, seed string) *Session {
	t.Helper()
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	cfg := tuning.Default()
	return NewSession(&cfg, cats, seed)
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(t, "seed-a")
	if s.DCoin != CoinFromFloat(100) {
		t.Fatalf("starting D-Coin = %s", s.DCoin)
	}
	if s.RP != 50 || s.Level != 1 || s.Exp != 0 {
		t.Fatalf("starting progression: rp=%d level=%d exp=%d", s.RP, s.Level, s.Exp)
	}
	if s.Mana != 100 || s.MaxMana != 100 || s.Heat != 0 {
		t.Fatalf("starting gauges: mana=%v/%v heat=%v", s.Mana, s.MaxMana, s.Heat)
	}
	if s.have("R_IRON") != 25 || s.have("R_WATER") != 25 || s.have("R_STONE") != 25 {
		t.Fatalf("starting inventory: %v", s.Inventory)
	}
	if !s.UnlockedWorkerTypes["W_IRON_MINER_BASIC"] {
		t.Fatal("basic miner should start unlocked")
	}
	if s.MaxWorkerSlots != 1 {
		t.Fatalf("starting slots = %d", s.MaxWorkerSlots)
	}
	if len(s.Market) == 0 {
		t.Fatal("market not initialized")
	}
}

func TestCalendarAdvance(t *testing.T) {
	s := newTestSession(t, "seed-cal")
	// a game day is 30 ticks, a month 30 days
	s.StepN(30 * 30)
	if s.Month != 2 || s.Day != 1 {
		t.Fatalf("after one game month: day=%d month=%d year=%d", s.Day, s.Month, s.Year)
	}
	s.StepN(30 * 30 * 11)
	if s.Year != 2 || s.Month != 1 {
		t.Fatalf("after twelve game months: day=%d month=%d year=%d", s.Day, s.Month, s.Year)
	}
}

func TestManaRegenAndHeatDecay(t *testing.T) {
	s := newTestSession(t, "seed-gauge")
	s.Mana = 50
	s.Heat = 10
	s.Step()
	if s.Mana != 51 {
		t.Fatalf("mana after one tick = %v", s.Mana)
	}
	if s.Heat != 9.5 {
		t.Fatalf("heat after one tick = %v", s.Heat)
	}
	s.Mana = 100
	s.Heat = 0.2
	s.Step()
	if s.Mana != 100 {
		t.Fatalf("mana exceeded max: %v", s.Mana)
	}
	if s.Heat != 0 {
		t.Fatalf("heat went negative: %v", s.Heat)
	}
}

func TestInventoryNeverNegative(t *testing.T) {
	s := newTestSession(t, "seed-inv")
	s.addInventory("R_IRON", -1000)
	if s.have("R_IRON") != 0 {
		t.Fatalf("inventory went negative: %d", s.have("R_IRON"))
	}
}
