package forge

import (
	"context"
	"sync"
	"time"

	"aethernexus.forge/internal/persistence/snapshot"
	"aethernexus.forge/internal/protocol"
)

// ActionEnvelope carries one decoded ACT into the engine goroutine.
type ActionEnvelope struct {
	Act   protocol.ActMsg
	Reply chan<- ActionAck
}

// ActionAck is the synchronous answer for one envelope.
type ActionAck struct {
	ID     string
	Result protocol.Result
	Tick   uint64
}

// SaveFunc receives the exported state on every autosave boundary.
type SaveFunc func(*snapshot.SessionV1, string)

// Engine owns a Session and runs it on a single goroutine. Requests
// arriving between ticks are queued and applied in arrival order at the
// next tick, before the tick itself advances.
type Engine struct {
	s *Session

	inbox chan ActionEnvelope
	stop  chan struct{}

	mu     sync.Mutex
	subs   map[int]chan protocol.Event
	subSeq int

	save SaveFunc
}

func NewEngine(s *Session, save SaveFunc) *Engine {
	e := &Engine{
		s:     s,
		inbox: make(chan ActionEnvelope, 256),
		stop:  make(chan struct{}),
		subs:  map[int]chan protocol.Event{},
		save:  save,
	}
	s.OnEvent = e.fanout
	return e
}

func (e *Engine) Session() *Session { return e.s }

// Submit queues one action. It blocks only if the inbox is full.
func (e *Engine) Submit(env ActionEnvelope) {
	e.inbox <- env
}

// Subscribe registers an event listener. Registration is independent of
// the run loop, so taps can attach before Run starts. The returned
// cancel must be called when the listener goes away.
func (e *Engine) Subscribe() (<-chan protocol.Event, func()) {
	ch := make(chan protocol.Event, 256)
	e.mu.Lock()
	e.subSeq++
	id := e.subSeq
	e.subs[id] = ch
	e.mu.Unlock()
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
	}
}

// fanout pushes an event to every subscriber, dropping the oldest
// queued event for a slow consumer rather than blocking the engine.
func (e *Engine) fanout(ev protocol.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		for {
			select {
			case ch <- ev:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []ActionEnvelope
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case env := <-e.inbox:
			pending = append(pending, env)
		case <-ticker.C:
			e.step(pending)
			pending = pending[:0]
		}
	}
}

func (e *Engine) Stop() { close(e.stop) }

func (e *Engine) step(pending []ActionEnvelope) {
	for _, env := range pending {
		res := e.apply(env.Act)
		if !res.OK {
			e.s.emit(protocol.EvRejected, protocol.SevWarning, res.Message,
				map[string]any{"op": env.Act.Op, "code": res.Code})
		}
		if env.Reply != nil {
			env.Reply <- ActionAck{ID: env.Act.ID, Result: res, Tick: e.s.Tick}
		}
	}
	e.s.Step()

	if e.save != nil && e.s.Tick%uint64(e.s.cfg.AutosaveTicks) == 0 {
		e.save(e.s.Export(), e.s.StateDigest())
	}
}

// StepOnce applies a batch and advances one tick with the same ordering
// as Run. Meant for deterministic replays and tests.
func (e *Engine) StepOnce(pending []ActionEnvelope) (tick uint64, digest string) {
	e.step(pending)
	return e.s.Tick, e.s.StateDigest()
}

// apply routes one ACT to the session.
func (e *Engine) apply(act protocol.ActMsg) protocol.Result {
	s := e.s
	switch act.Op {
	case protocol.OpPlaceResource:
		return s.PlaceResource(act.Slot, act.ResourceID, int64(act.Quantity))
	case protocol.OpRemoveFromSlot:
		return s.RemoveFromSlot(act.Slot)
	case protocol.OpMoveSlots:
		return s.MoveBetweenSlots(act.Slot, act.TargetSlot)
	case protocol.OpAdjustQuantity:
		return s.AdjustSlotQuantity(act.Slot, int64(act.Delta))
	case protocol.OpSynthesize:
		return s.AttemptSynthesis(act.Frequency, act.Pressure)
	case protocol.OpCollectOutput:
		return s.CollectOutput()
	case protocol.OpResearchRecipe:
		return s.ResearchRecipe(act.RecipeKey)
	case protocol.OpResearchWorker:
		return s.ResearchWorkerType(act.WorkerTypeID)
	case protocol.OpBuyUpgrade:
		return s.BuyUpgrade(act.UpgradeID)
	case protocol.OpAcquireWorker:
		return s.AcquireWorker(act.WorkerTypeID)
	case protocol.OpToggleWorker:
		return s.ToggleWorker(act.WorkerID)
	case protocol.OpFireWorker:
		return s.FireWorker(act.WorkerID)
	case protocol.OpSell:
		return s.SellResource(act.ResourceID, int64(act.Quantity))
	case protocol.OpSellAll:
		return s.SellAllProducts()
	case protocol.OpRedeemCoupon:
		return s.RedeemCoupon(act.Code)
	case protocol.OpAdReward:
		return s.AdReward()
	}
	return protocol.Fail(protocol.ErrBadRequest, "unknown op: "+act.Op)
}
