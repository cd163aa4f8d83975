package forge

import (
	"testing"
	"time"

	"aethernexus.forge/internal/protocol"
)

func scriptedActs() [][]protocol.ActMsg {
	return [][]protocol.ActMsg{
		{{Op: protocol.OpPlaceResource, Slot: SlotNameA, ResourceID: "R_WATER", Quantity: 2}},
		{{Op: protocol.OpPlaceResource, Slot: SlotNameB, ResourceID: "R_STONE", Quantity: 2}},
		{{Op: protocol.OpSynthesize, Frequency: 50, Pressure: 320}},
		nil, nil, nil,
		{{Op: protocol.OpCollectOutput}},
		{{Op: protocol.OpAcquireWorker, WorkerTypeID: "W_IRON_MINER_BASIC"}},
		{{Op: protocol.OpRedeemCoupon, Code: "WELCOME-FORGE"}},
		nil,
		{{Op: protocol.OpSellAll}},
	}
}

func runScript(t *testing.T, seed string) []string {
	t.Helper()
	s := newTestSession(t, seed)
	e := NewEngine(s, nil)
	var digests []string
	for _, batch := range scriptedActs() {
		var pending []ActionEnvelope
		for _, act := range batch {
			pending = append(pending, ActionEnvelope{Act: act})
		}
		_, d := e.StepOnce(pending)
		digests = append(digests, d)
	}
	return digests
}

func TestTwinSessionsDigestIdentically(t *testing.T) {
	a := runScript(t, "seed-det")
	b := runScript(t, "seed-det")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest diverged at step %d:\n%s\n%s", i, a[i], b[i])
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := runScript(t, "seed-det-1")
	b := runScript(t, "seed-det-2")
	last := len(a) - 1
	if a[last] == b[last] {
		t.Fatal("different seeds converged to the same digest")
	}
}

func TestDigestStableWithoutMutation(t *testing.T) {
	s := newTestSession(t, "seed-stable")
	d1 := s.StateDigest()
	d2 := s.StateDigest()
	if d1 != d2 {
		t.Fatalf("digest not stable: %s vs %s", d1, d2)
	}
}

// Taps attach before the run loop starts (the server wires its event
// ledger that way), so registration must not depend on Run serving it.
func TestSubscribeBeforeRunDelivers(t *testing.T) {
	s := newTestSession(t, "seed-sub")
	e := NewEngine(s, nil)

	registered := make(chan struct{})
	var events <-chan protocol.Event
	var cancel func()
	go func() {
		events, cancel = e.Subscribe()
		close(registered)
	}()
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe blocked without an active run loop")
	}
	defer cancel()

	e.StepOnce([]ActionEnvelope{{Act: protocol.ActMsg{Op: "NO_SUCH_OP"}}})
	select {
	case ev := <-events:
		if ev.Type != protocol.EvRejected {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatal("no event delivered to the early subscriber")
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	s := newTestSession(t, "seed-sub-cancel")
	e := NewEngine(s, nil)
	events, cancel := e.Subscribe()
	cancel()
	if _, open := <-events; open {
		t.Fatal("channel still open after cancel")
	}
	cancel() // second cancel is a no-op
}

func TestEngineApplyUnknownOp(t *testing.T) {
	s := newTestSession(t, "seed-badop")
	e := NewEngine(s, nil)
	reply := make(chan ActionAck, 1)
	e.StepOnce([]ActionEnvelope{{Act: protocol.ActMsg{Op: "FROBNICATE", ID: "x1"}, Reply: reply}})
	ack := <-reply
	if ack.ID != "x1" || ack.Result.OK || ack.Result.Code != protocol.ErrBadRequest {
		t.Fatalf("ack = %+v", ack)
	}
}

func TestEngineAppliesBeforeTick(t *testing.T) {
	s := newTestSession(t, "seed-order")
	e := NewEngine(s, nil)
	reply := make(chan ActionAck, 1)
	tick, _ := e.StepOnce([]ActionEnvelope{{
		Act:   protocol.ActMsg{Op: protocol.OpPlaceResource, Slot: SlotNameA, ResourceID: "R_IRON", Quantity: 1, ID: "p1"},
		Reply: reply,
	}})
	ack := <-reply
	if !ack.Result.OK {
		t.Fatalf("ack = %+v", ack)
	}
	if tick != 1 {
		t.Fatalf("tick after one step = %d", tick)
	}
	if s.SlotA.ResourceID != "R_IRON" {
		t.Fatal("action not applied")
	}
}
