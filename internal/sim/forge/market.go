package forge

import (
	"aethernexus.forge/internal/protocol"
	"aethernexus.forge/internal/sim/rng"
	"aethernexus.forge/internal/sim/tuning"
)

// MonthlyVolatility is the price multiplier for one product in one
// calendar month. It is a pure function of seed, product and date: the
// per-product stream is advanced past every earlier month and the next
// draw is mapped into the swing band. Replaying the same month always
// lands on the same draw.
func MonthlyVolatility(cfg *tuning.Tuning, seed, productID string, year, month int) float64 {
	st := rng.New(seed + productID)
	st.Skip((year-1)*12 + month)
	u := st.Float64()
	return round4(cfg.MarketSwingBase + u*cfg.MarketSwingRange)
}

// RefreshMarket recomputes every product multiplier for the session's
// current month. Iteration order is sorted so emitted events and any
// downstream hashing never depend on map order.
func (s *Session) RefreshMarket() {
	for _, id := range s.cats.Resources.SortedProducts() {
		s.Market[id] = MonthlyVolatility(s.cfg, s.seed, id, s.Year, s.Month)
	}
}

func (s *Session) announceMarket() {
	data := map[string]any{"year": s.Year, "month": s.Month}
	s.emit(protocol.EvMarketUpdated, protocol.SevInfo, "Market trends shifted for the new month.", data)
}

// Forecast returns the multipliers a product will carry over the next
// months, starting with the month after the current one. Because
// volatility is pure, the forecast is exact, not an estimate.
func (s *Session) Forecast(productID string, months int) ([]float64, protocol.Result) {
	def, ok := s.cats.Resources.ByID[productID]
	if !ok || !def.IsProduct() {
		return nil, protocol.Fail(protocol.ErrInvalidTarget, "not a product: "+productID)
	}
	if months < 1 {
		return nil, protocol.Fail(protocol.ErrBadRequest, "months must be positive")
	}
	out := make([]float64, 0, months)
	y, m := s.Year, s.Month
	for i := 0; i < months; i++ {
		m++
		if m > 12 {
			m = 1
			y++
		}
		out = append(out, MonthlyVolatility(s.cfg, s.seed, productID, y, m))
	}
	return out, protocol.OKResult()
}
