package rsm

import (
	"context"
	"testing"

	"github.com/replicalog/controller/types"
)

// TestStartup covers scenario 1: a fresh cluster with a known assignment
// and no prior state table comes up fully Online when every broker is live
// and serving.
func TestStartup(t *testing.T) {
	m, _, batch, _ := newTestMachine()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	m.ctx.Assignment[tp] = []uint32{1, 2, 3}
	m.ctx.LiveBrokers = map[uint32]struct{}{1: {}, 2: {}, 3: {}}
	m.ctx.OnlineReplicas = func(broker uint32, tp types.TopicPartition) bool { return true }

	if err := m.Startup(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, b := range []uint32{1, 2, 3} {
		r := ReplicaID{Topic: "t", Partition: 0, Broker: b}
		if got := m.states.get(r); got != Online {
			t.Errorf("broker %d state = %s, want Online", b, got)
		}
	}
	if batch.opened != 1 {
		t.Fatalf("expected exactly one batch opened during startup, opened=%d", batch.opened)
	}

	if len(batch.leaderAndIsr) != 3 {
		t.Fatalf("expected one LeaderAndIsr enqueued per replica, got %d", len(batch.leaderAndIsr))
	}
	for _, call := range batch.leaderAndIsr {
		if call.tp != tp {
			t.Errorf("unexpected partition on call: %+v", call)
		}
		if call.isNew {
			t.Errorf("expected is_new=false on startup, call=%+v", call)
		}
		if call.leadership.Leader != 1 {
			t.Errorf("expected synthesized leader = preferred replica 1, got %d", call.leadership.Leader)
		}
		if len(call.leadership.ISR) != 3 {
			t.Errorf("expected synthesized ISR to cover the full assignment, got %v", call.leadership.ISR)
		}
	}
}

func TestStartupMarksDeadBrokersDeletionIneligible(t *testing.T) {
	m, _, _, _ := newTestMachine()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	m.ctx.Assignment[tp] = []uint32{1, 2}
	m.ctx.LiveBrokers = map[uint32]struct{}{1: {}}
	m.ctx.OnlineReplicas = func(broker uint32, tp types.TopicPartition) bool { return true }

	if err := m.Startup(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dead := ReplicaID{Topic: "t", Partition: 0, Broker: 2}
	if got := m.states.get(dead); got != DeletionIneligible {
		t.Fatalf("expected dead broker seeded DeletionIneligible, got %s", got)
	}
}

func TestShutdownClearsStateTable(t *testing.T) {
	m, _, _, _ := newTestMachine()
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}
	m.states.set(r, Online)

	m.Shutdown()

	if _, ok := m.states.peek(r); ok {
		t.Fatalf("expected state table cleared after shutdown")
	}
}
