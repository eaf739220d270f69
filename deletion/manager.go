// Package deletion implements the topic-deletion workflow that sits beside
// the replica state machine: it decides when a topic's replicas should be
// driven toward the deletion states and answers the RSM's one question,
// "is this partition being deleted", via the rsm.DeletionManager contract.
package deletion

import (
	"context"
	"sync"

	"github.com/replicalog/controller/rsm"
	"github.com/replicalog/controller/types"
)

// replicaDriver is the slice of *rsm.Machine this package depends on. It is
// defined here, not in rsm, because rsm only needs to consume
// DeletionManager — this package is the one with the extra dependency.
type replicaDriver interface {
	HandleStateChanges(ctx context.Context, replicas []rsm.ReplicaID, target rsm.State, onStopReplica rsm.StopReplicaCallback) error
	ReplicasInState(topic string, state rsm.State) []rsm.ReplicaID
	AnyReplicaInState(topic string, state rsm.State) bool
	AllReplicasForTopicAre(topic string, state rsm.State) bool
}

// Manager tracks which topics are marked for deletion and drives their
// replicas through Offline -> DeletionStarted -> {Successful|Ineligible} ->
// NonExistent by calling back into the state machine. Per the design notes
// in §9, the StopReplica response callback ought to re-enter the
// controller's own event queue rather than call back synchronously; this
// implementation calls back directly and documents the simplification.
type Manager struct {
	machine replicaDriver

	mu     sync.Mutex
	marked map[string]struct{}
}

// NewManager wires a Manager against the state machine it drives.
func NewManager(machine replicaDriver) *Manager {
	return &Manager{
		machine: machine,
		marked:  make(map[string]struct{}),
	}
}

// IsPartitionToBeDeleted implements rsm.DeletionManager.
func (m *Manager) IsPartitionToBeDeleted(tp types.TopicPartition) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.marked[tp.Topic]
	return ok
}

// MarkTopicForDeletion records topic as being deleted and takes the first
// step of the workflow.
func (m *Manager) MarkTopicForDeletion(ctx context.Context, topic string) error {
	m.mu.Lock()
	m.marked[topic] = struct{}{}
	m.mu.Unlock()
	return m.ResumeDeletion(ctx, topic)
}

// ResumeDeletion advances topic's replicas by one step each: Online
// replicas are taken Offline, Offline replicas get DeletionStarted. It is
// safe to call repeatedly (e.g. on controller failover, per Startup
// re-seeding DeletionIneligible replicas for dead brokers) since each step
// only touches replicas currently in the relevant source state.
func (m *Manager) ResumeDeletion(ctx context.Context, topic string) error {
	if !m.IsPartitionToBeDeleted(types.TopicPartition{Topic: topic}) {
		return nil
	}

	offline := m.machine.ReplicasInState(topic, rsm.Offline)

	if m.machine.AnyReplicaInState(topic, rsm.Online) {
		online := m.machine.ReplicasInState(topic, rsm.Online)
		if err := m.machine.HandleStateChanges(ctx, online, rsm.Offline, nil); err != nil {
			return err
		}
	}

	if len(offline) > 0 {
		if err := m.machine.HandleStateChanges(ctx, offline, rsm.DeletionStarted, m.onStopReplicaResponse); err != nil {
			return err
		}
	}

	return nil
}

// onStopReplicaResponse is the rsm.StopReplicaCallback attached to every
// delete-replica request this manager issues; it drives the asynchronous
// DeletionStarted -> {Successful|Ineligible} edge and, once every replica
// of the topic has reached DeletionSuccessful, finishes the sweep to
// NonExistent and unmarks the topic.
func (m *Manager) onStopReplicaResponse(broker uint32, tp types.TopicPartition, err error) {
	target := rsm.DeletionSuccessful
	if err != nil {
		target = rsm.DeletionIneligible
	}

	r := rsm.ReplicaID{Topic: tp.Topic, Partition: tp.Partition, Broker: broker}
	ctx := context.Background()
	if hsErr := m.machine.HandleStateChanges(ctx, []rsm.ReplicaID{r}, target, nil); hsErr != nil {
		return
	}

	if target != rsm.DeletionSuccessful {
		return
	}
	if !m.machine.AllReplicasForTopicAre(tp.Topic, rsm.DeletionSuccessful) {
		return
	}

	done := m.machine.ReplicasInState(tp.Topic, rsm.DeletionSuccessful)
	if err := m.machine.HandleStateChanges(ctx, done, rsm.NonExistent, nil); err != nil {
		return
	}

	m.mu.Lock()
	delete(m.marked, tp.Topic)
	m.mu.Unlock()
}
