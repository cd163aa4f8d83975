package forge

import "math"

// Step advances the session by one tick. Order matters and is fixed:
// calendar (maintenance and market ride on day boundaries), mana
// regeneration, heat decay, the craft timer, then worker production on
// its cycle boundary.
func (s *Session) Step() {
	s.Tick++

	if s.Tick%uint64(s.cfg.TicksPerGameDay) == 0 {
		s.advanceDay()
	}

	s.Mana = math.Min(s.MaxMana, s.Mana+s.ManaRegenRate)
	s.Heat = math.Max(0, s.Heat-s.cfg.HeatDecayPerTick)

	s.tickRun()

	if s.Tick%uint64(s.cfg.ProductionCycleTicks) == 0 {
		s.tickProduction()
	}
}

// StepN advances n ticks. Test helper more than anything.
func (s *Session) StepN(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

func (s *Session) advanceDay() {
	s.processMaintenance()
	s.Day++
	if s.Day > s.cfg.DaysPerMonth {
		s.Day = 1
		s.Month++
		if s.Month > 12 {
			s.Month = 1
			s.Year++
		}
		s.RefreshMarket()
		s.announceMarket()
	}
}
