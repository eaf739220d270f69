package rsm

import (
	"context"
	"testing"

	"github.com/replicalog/controller/types"
)

func newTestMachine() (*Machine, *fakeStore, *fakeBatch, *fakeDeletionManager) {
	store := newFakeStore()
	batch := &fakeBatch{}
	deletion := newFakeDeletionManager()
	ctrlCtx := NewContext()
	ctrlCtx.Epoch = 7
	m := NewMachine(ctrlCtx, store, batch, deletion, types.Configuration{})
	return m, store, batch, deletion
}

func TestHandleStateChanges_EmptyIsNoOp(t *testing.T) {
	m, _, batch, _ := newTestMachine()
	if err := m.HandleStateChanges(context.Background(), nil, Online, nil); err != nil {
		t.Fatalf("unexpected error on empty input: %v", err)
	}
	if batch.opened != 0 {
		t.Fatalf("expected no batch to be opened for empty input, opened=%d", batch.opened)
	}
}

func TestHandleStateChanges_InvalidTransitionIsLoggedAndSkipped(t *testing.T) {
	m, _, batch, _ := newTestMachine()
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}

	err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, Online, nil)
	if err == nil {
		t.Fatalf("expected an error for the invalid NonExistent -> Online transition")
	}
	if got := m.states.get(r); got != NonExistent {
		t.Fatalf("state should be unchanged on invalid transition, got %s", got)
	}
	if len(batch.flushed) != 1 {
		t.Fatalf("batch must still be flushed exactly once even on failure, flushed=%v", batch.flushed)
	}
}

func TestHandleStateChanges_ToNewRejectsCurrentLeader(t *testing.T) {
	m, _, _, _ := newTestMachine()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}
	m.ctx.Leadership[tp] = LeaderAndIsr{Leader: 1, ISR: []uint32{1}}

	err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, New, nil)
	if err == nil {
		t.Fatalf("expected rejection when broker is already the leader")
	}
}

func TestHandleStateChanges_ToNewEnqueuesLeaderAndIsrWhenKnown(t *testing.T) {
	m, _, batch, _ := newTestMachine()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 2}
	m.ctx.Leadership[tp] = LeaderAndIsr{Leader: 1, ISR: []uint32{1}}
	m.ctx.Assignment[tp] = []uint32{1, 2}

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, New, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.states.get(r) != New {
		t.Fatalf("expected state New, got %s", m.states.get(r))
	}
	if len(batch.leaderAndIsr) != 1 || !batch.leaderAndIsr[0].isNew {
		t.Fatalf("expected one is_new LeaderAndIsr call, got %v", batch.leaderAndIsr)
	}
}

func TestHandleStateChanges_NewToOnlineAppendsAssignment(t *testing.T) {
	m, _, _, _ := newTestMachine()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 2}
	m.states.set(r, New)

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, Online, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.ctx.assignmentContains(tp, 2) {
		t.Fatalf("expected broker 2 appended to assignment, got %v", m.ctx.Assignment[tp])
	}
	if m.states.get(r) != Online {
		t.Fatalf("expected state Online, got %s", m.states.get(r))
	}
}

// TestHandleStateChanges_OfflineBrokerFailure covers scenario 2 from the
// component design: an online replica with known leadership fails, is
// stopped, removed from the ISR, and the refreshed ISR is fanned out to the
// remaining live replicas.
func TestHandleStateChanges_OfflineBrokerFailure(t *testing.T) {
	m, store, batch, _ := newTestMachine()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	m.ctx.Assignment[tp] = []uint32{1, 2, 3}
	m.ctx.LiveBrokers = map[uint32]struct{}{2: {}, 3: {}}
	m.ctx.Leadership[tp] = LeaderAndIsr{Leader: 1, ISR: []uint32{1, 2, 3}, LeaderEpoch: 5, ControllerEpoch: 7}
	store.nodes[tp] = m.ctx.Leadership[tp]

	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}
	m.states.set(r, Online)

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, Offline, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(batch.stopReplica) != 1 || batch.stopReplica[0].deletePartition {
		t.Fatalf("expected one StopReplica(delete=false), got %v", batch.stopReplica)
	}

	updated := store.nodes[tp]
	if updated.Leader != NoLeader {
		t.Fatalf("expected leader NoLeader in store, got %d", updated.Leader)
	}
	if containsBroker(updated.ISR, 1) {
		t.Fatalf("expected broker 1 removed from stored ISR, got %v", updated.ISR)
	}

	if len(batch.leaderAndIsr) != 1 {
		t.Fatalf("expected one fan-out LeaderAndIsr to the other live replicas, got %v", batch.leaderAndIsr)
	}
	if got := batch.leaderAndIsr[0].recipients; len(got) != 2 {
		t.Fatalf("expected fan-out to brokers 2 and 3, got %v", got)
	}

	if m.states.get(r) != Offline {
		t.Fatalf("expected state Offline, got %s", m.states.get(r))
	}
}

// TestHandleStateChanges_OfflineSoleISRMember covers scenario 3: no other
// live replicas exist so no fan-out LeaderAndIsr is sent, but the ISR is
// preserved rather than emptied.
func TestHandleStateChanges_OfflineSoleISRMember(t *testing.T) {
	m, store, batch, _ := newTestMachine()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	m.ctx.Assignment[tp] = []uint32{1}
	m.ctx.Leadership[tp] = LeaderAndIsr{Leader: 1, ISR: []uint32{1}, LeaderEpoch: 5, ControllerEpoch: 7}
	store.nodes[tp] = m.ctx.Leadership[tp]

	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}
	m.states.set(r, Online)

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, Offline, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.leaderAndIsr) != 0 {
		t.Fatalf("expected no fan-out with no other live replicas, got %v", batch.leaderAndIsr)
	}
	if got := store.nodes[tp].ISR; len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected ISR preserved as [1], got %v", got)
	}
	if m.states.get(r) != Offline {
		t.Fatalf("expected state Offline, got %s", m.states.get(r))
	}
}

func TestHandleStateChanges_OfflineUnknownLeadershipStillStops(t *testing.T) {
	m, _, batch, _ := newTestMachine()
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}
	m.states.set(r, Online)

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, Offline, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.stopReplica) != 1 {
		t.Fatalf("expected StopReplica still enqueued, got %v", batch.stopReplica)
	}
	if m.states.get(r) != Offline {
		t.Fatalf("expected state Offline, got %s", m.states.get(r))
	}
}

// TestHandleStateChanges_DeletionLifecycle covers scenario 4 end-to-end:
// Offline -> DeletionStarted -> DeletionSuccessful -> NonExistent.
func TestHandleStateChanges_DeletionLifecycle(t *testing.T) {
	m, _, batch, _ := newTestMachine()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	m.ctx.Assignment[tp] = []uint32{1}
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}
	m.states.set(r, Offline)

	var callbackFired bool
	cb := func(broker uint32, tp types.TopicPartition, err error) { callbackFired = true }

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, DeletionStarted, cb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.stopReplica) != 1 || !batch.stopReplica[0].deletePartition {
		t.Fatalf("expected StopReplica(delete=true), got %v", batch.stopReplica)
	}
	batch.stopReplica[0].callback(1, tp, nil)
	if !callbackFired {
		t.Fatalf("expected the caller's callback to be reachable from the enqueued request")
	}

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, DeletionSuccessful, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.states.get(r) != DeletionSuccessful {
		t.Fatalf("expected DeletionSuccessful, got %s", m.states.get(r))
	}

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, NonExistent, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.states.peek(r); ok {
		t.Fatalf("expected replica removed from the state table")
	}
	if m.ctx.assignmentContains(tp, 1) {
		t.Fatalf("expected broker removed from assignment, got %v", m.ctx.Assignment[tp])
	}
}

// TestHandleStateChanges_OfflineGroupsMultiplePartitionsPerBroker covers
// §4.3's bulk-CAS contract: when one broker goes offline for several
// partitions in the same HandleStateChanges call, the ISR update happens
// in one store round trip per broker, not one per partition.
func TestHandleStateChanges_OfflineGroupsMultiplePartitionsPerBroker(t *testing.T) {
	m, store, batch, _ := newTestMachine()

	tp1 := types.TopicPartition{Topic: "t", Partition: 0}
	tp2 := types.TopicPartition{Topic: "t", Partition: 1}
	tp3 := types.TopicPartition{Topic: "u", Partition: 0}

	for _, tp := range []types.TopicPartition{tp1, tp2, tp3} {
		m.ctx.Assignment[tp] = []uint32{1, 2}
		m.ctx.Leadership[tp] = LeaderAndIsr{Leader: 1, ISR: []uint32{1, 2}, LeaderEpoch: 1, ControllerEpoch: 7}
		store.nodes[tp] = m.ctx.Leadership[tp]
	}
	m.ctx.LiveBrokers = map[uint32]struct{}{2: {}}

	r1 := ReplicaID{Topic: "t", Partition: 0, Broker: 1}
	r2 := ReplicaID{Topic: "t", Partition: 1, Broker: 1}
	r3 := ReplicaID{Topic: "u", Partition: 0, Broker: 1}
	for _, r := range []ReplicaID{r1, r2, r3} {
		m.states.set(r, Online)
	}

	err := m.HandleStateChanges(context.Background(), []ReplicaID{r1, r2, r3}, Offline, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.updateCalls) != 1 {
		t.Fatalf("expected exactly one UpdateLeaderAndIsr call for the shared broker, got %d: %v", len(store.updateCalls), store.updateCalls)
	}
	if got := len(store.updateCalls[0]); got != 3 {
		t.Fatalf("expected the single call to cover all 3 partitions, got %d", got)
	}

	if len(batch.stopReplica) != 3 {
		t.Fatalf("expected one StopReplica per replica, got %d", len(batch.stopReplica))
	}
	if len(batch.leaderAndIsr) != 3 {
		t.Fatalf("expected one fan-out LeaderAndIsr per partition, got %d", len(batch.leaderAndIsr))
	}

	for _, r := range []ReplicaID{r1, r2, r3} {
		if m.states.get(r) != Offline {
			t.Fatalf("expected %v Offline, got %s", r, m.states.get(r))
		}
	}
}

func TestHandleStateChanges_ReentrancyRejected(t *testing.T) {
	m, _, _, _ := newTestMachine()
	m.inFlight = true
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}

	if err := m.HandleStateChanges(context.Background(), []ReplicaID{r}, New, nil); err != errReentrant {
		t.Fatalf("expected errReentrant, got %v", err)
	}
}
