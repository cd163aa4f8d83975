package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning carries the gameplay constants. Values come from tuning.yaml;
// zero fields fall back to the baseline balance via ApplyDefaults.
type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	TicksPerGameDay int `yaml:"ticks_per_game_day"`
	DaysPerMonth    int `yaml:"days_per_month"`

	MaxWorkerSlotsCap    int     `yaml:"max_worker_slots_cap"`
	InitialWorkerSlots   int     `yaml:"initial_worker_slots"`
	WorkerFatigueRate    float64 `yaml:"worker_fatigue_rate"`
	WorkerRestRate       float64 `yaml:"worker_rest_rate"`
	MaxFatigue           float64 `yaml:"max_fatigue"`
	ProductionCycleTicks int     `yaml:"production_cycle_ticks"`

	BaseManaCost         float64 `yaml:"base_mana_cost"`
	MinManaEfficiency    float64 `yaml:"min_mana_efficiency"`
	HeatFailureThreshold float64 `yaml:"heat_failure_threshold"`
	HeatFlatPenalty      float64 `yaml:"heat_flat_penalty"`
	HeatDecayPerTick     float64 `yaml:"heat_decay_per_tick"`

	LevelExpMultiplier int `yaml:"level_exp_multiplier"`
	ExpPerOutputUnit   int `yaml:"exp_per_output_unit"`
	RPSuccessPerUnit   int `yaml:"rp_success_per_unit"`
	RPFailurePerUnit   int `yaml:"rp_failure_per_unit"`

	MarketSwingBase  float64 `yaml:"market_swing_base"`
	MarketSwingRange float64 `yaml:"market_swing_range"`

	AdCooldownTicks int     `yaml:"ad_cooldown_ticks"`
	AdCoinReward    float64 `yaml:"ad_coin_reward"`
	AdRPReward      int     `yaml:"ad_rp_reward"`

	AutosaveTicks int `yaml:"autosave_ticks"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

// Default returns the baseline balance without reading a file.
func Default() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

func (t *Tuning) ApplyDefaults() {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 1
	}
	if t.TicksPerGameDay <= 0 {
		t.TicksPerGameDay = 30
	}
	if t.DaysPerMonth <= 0 {
		t.DaysPerMonth = 30
	}
	if t.MaxWorkerSlotsCap <= 0 {
		t.MaxWorkerSlotsCap = 6
	}
	if t.InitialWorkerSlots <= 0 {
		t.InitialWorkerSlots = 1
	}
	if t.WorkerFatigueRate <= 0 {
		t.WorkerFatigueRate = 0.1
	}
	if t.WorkerRestRate <= 0 {
		t.WorkerRestRate = 0.5
	}
	if t.MaxFatigue <= 0 {
		t.MaxFatigue = 100
	}
	if t.ProductionCycleTicks <= 0 {
		t.ProductionCycleTicks = 10
	}
	if t.BaseManaCost <= 0 {
		t.BaseManaCost = 10
	}
	if t.MinManaEfficiency <= 0 {
		t.MinManaEfficiency = 0.1
	}
	if t.HeatFailureThreshold <= 0 {
		t.HeatFailureThreshold = 50
	}
	if t.HeatFlatPenalty <= 0 {
		t.HeatFlatPenalty = 0.3
	}
	if t.HeatDecayPerTick <= 0 {
		t.HeatDecayPerTick = 0.5
	}
	if t.LevelExpMultiplier <= 0 {
		t.LevelExpMultiplier = 100
	}
	if t.ExpPerOutputUnit <= 0 {
		t.ExpPerOutputUnit = 10
	}
	if t.RPSuccessPerUnit <= 0 {
		t.RPSuccessPerUnit = 5
	}
	if t.RPFailurePerUnit <= 0 {
		t.RPFailurePerUnit = 1
	}
	if t.MarketSwingBase <= 0 {
		t.MarketSwingBase = 0.90
	}
	if t.MarketSwingRange <= 0 {
		t.MarketSwingRange = 0.25
	}
	if t.AdCooldownTicks <= 0 {
		t.AdCooldownTicks = 3600
	}
	if t.AdCoinReward <= 0 {
		t.AdCoinReward = 100
	}
	if t.AdRPReward <= 0 {
		t.AdRPReward = 10
	}
	if t.AutosaveTicks <= 0 {
		t.AutosaveTicks = 60
	}
}
