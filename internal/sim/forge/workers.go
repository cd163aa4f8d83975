package forge

import (
	"fmt"
	"math"

	"aethernexus.forge/internal/protocol"
)

// AcquireWorker instantiates an unlocked blueprint into a free slot.
// Hirable categories pay research points; infrastructure pays D-Coin.
func (s *Session) AcquireWorker(typeID string) protocol.Result {
	if len(s.Workers) >= s.MaxWorkerSlots {
		return protocol.Fail(protocol.ErrSlotsFull, "all worker slots are full")
	}
	bp, ok := s.cats.Workers.ByID[typeID]
	if !ok {
		return protocol.Fail(protocol.ErrInvalidTarget, "unknown blueprint: "+typeID)
	}
	if !s.UnlockedWorkerTypes[typeID] {
		return protocol.Fail(protocol.ErrLocked, "blueprint locked, research first")
	}
	if bp.Unique() {
		for _, w := range s.Workers {
			if w.TypeID == typeID {
				return protocol.Fail(protocol.ErrUnique, bp.Name+" is already active, only one is allowed")
			}
		}
	}
	if s.Level < bp.LevelUnlock {
		return protocol.Fail(protocol.ErrLevelLow, fmt.Sprintf("need level %d", bp.LevelUnlock))
	}
	if bp.Hirable() {
		cost := int64(bp.Cost)
		if s.RP < cost {
			return protocol.Fail(protocol.ErrNoFunds, fmt.Sprintf("requires %d RP", cost))
		}
		s.RP -= cost
	} else {
		cost := CoinFromFloat(bp.Cost)
		if s.DCoin < cost {
			return protocol.Fail(protocol.ErrNoFunds, fmt.Sprintf("requires %s D-Coin", cost))
		}
		s.DCoin -= cost
	}

	w := &Worker{ID: s.nextWorkerID(), TypeID: typeID, Working: true}
	s.Workers = append(s.Workers, w)
	s.emit(protocol.EvWorkerAcquired, protocol.SevSuccess, bp.Name+" acquired", map[string]any{
		"worker_id": w.ID, "type_id": typeID,
	})
	return protocol.OKResult()
}

// ToggleWorker flips a worker between working and resting.
func (s *Session) ToggleWorker(workerID string) protocol.Result {
	w, _ := s.workerByID(workerID)
	if w == nil {
		return protocol.Fail(protocol.ErrInvalidTarget, "no such worker: "+workerID)
	}
	w.Working = !w.Working
	s.emit(protocol.EvWorkerToggled, protocol.SevInfo, "", map[string]any{
		"worker_id": w.ID, "working": w.Working,
	})
	return protocol.OKResult()
}

// FireWorker dismisses a worker and frees its slot.
func (s *Session) FireWorker(workerID string) protocol.Result {
	w, i := s.workerByID(workerID)
	if w == nil {
		return protocol.Fail(protocol.ErrInvalidTarget, "no such worker: "+workerID)
	}
	s.Workers = append(s.Workers[:i], s.Workers[i+1:]...)
	s.emit(protocol.EvWorkerFired, protocol.SevInfo, "", map[string]any{
		"worker_id": w.ID, "type_id": w.TypeID,
	})
	return protocol.OKResult()
}

// tickProduction runs one production cycle. Working workers accrue
// output and fatigue; the rest recover and resume automatically once
// fully rested. Fractional output accumulates on the worker and lands
// in inventory as whole units.
func (s *Session) tickProduction() {
	for _, w := range s.Workers {
		bp, ok := s.cats.Workers.ByID[w.TypeID]
		if !ok {
			continue
		}
		if w.Working {
			w.Accum += bp.ProductionRate
			if whole := math.Floor(w.Accum); whole >= 1 {
				s.addInventory(bp.ResourceID, int64(whole))
				w.Accum -= whole
			}
			w.Fatigue += s.cfg.WorkerFatigueRate * float64(s.cfg.ProductionCycleTicks)
			if w.Fatigue >= s.cfg.MaxFatigue {
				w.Fatigue = s.cfg.MaxFatigue
				w.Working = false
				s.emit(protocol.EvWorkerExhausted, protocol.SevWarning, bp.Name+" exhausted, sent to rest", map[string]any{
					"worker_id": w.ID,
				})
			}
		} else {
			w.Fatigue = math.Max(0, w.Fatigue-s.cfg.WorkerRestRate*float64(s.cfg.ProductionCycleTicks))
			if w.Fatigue == 0 {
				w.Working = true
				s.emit(protocol.EvWorkerRested, protocol.SevInfo, bp.Name+" rested, resuming work", map[string]any{
					"worker_id": w.ID,
				})
			}
		}
	}
}

// processMaintenance bills the daily upkeep of every working worker in
// acquisition order. When the total exceeds the balance, the workers
// whose bills crossed the line are stopped and the balance drains to
// exactly zero.
func (s *Session) processMaintenance() {
	var total Coin
	var toStop []*Worker
	for _, w := range s.Workers {
		bp, ok := s.cats.Workers.ByID[w.TypeID]
		if !ok || bp.Maintenance == 0 || !w.Working {
			continue
		}
		total += CoinFromFloat(bp.Maintenance)
		if s.DCoin < total {
			toStop = append(toStop, w)
		}
	}
	if total == 0 {
		return
	}
	if s.DCoin >= total {
		s.DCoin -= total
		s.emit(protocol.EvMaintenanceBilled, protocol.SevWarning,
			fmt.Sprintf("Daily maintenance of %s D-Coin deducted", total), map[string]any{
				"total": total.Float(),
			})
		return
	}
	for _, w := range toStop {
		if w.Working {
			w.Working = false
			s.emit(protocol.EvWorkerStopped, protocol.SevError, "Worker stopped, insufficient funds for maintenance", map[string]any{
				"worker_id": w.ID, "type_id": w.TypeID,
			})
		}
	}
	s.DCoin = 0
	s.emit(protocol.EvMaintenanceBilled, protocol.SevError, "Maintenance shortfall, funds exhausted", map[string]any{
		"total": total.Float(),
	})
}
