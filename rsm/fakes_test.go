package rsm

import (
	"context"
	"errors"

	"github.com/replicalog/controller/types"
)

// fakeStore is an in-memory Store used across the package's tests. It
// mimics a versioned coordination store closely enough to exercise CAS
// retry, fencing, and missing-node classification without any real
// network dependency.
type fakeStore struct {
	nodes map[types.TopicPartition]LeaderAndIsr
	// conflictOnce forces exactly one version-conflict retry for the named
	// partition the first time UpdateLeaderAndIsr is called for it.
	conflictOnce map[types.TopicPartition]bool
	readErr      map[types.TopicPartition]error

	// updateCalls records the partition set passed to each UpdateLeaderAndIsr
	// call, so tests can assert on batching (one call covering many
	// partitions) rather than just the end result.
	updateCalls [][]types.TopicPartition
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:        make(map[types.TopicPartition]LeaderAndIsr),
		conflictOnce: make(map[types.TopicPartition]bool),
		readErr:      make(map[types.TopicPartition]error),
	}
}

func (f *fakeStore) ReadStates(ctx context.Context, partitions []types.TopicPartition) (
	found map[types.TopicPartition]LeaderAndIsr,
	missing []types.TopicPartition,
	failed map[types.TopicPartition]error,
) {
	found = make(map[types.TopicPartition]LeaderAndIsr)
	failed = make(map[types.TopicPartition]error)
	for _, tp := range partitions {
		if err, ok := f.readErr[tp]; ok {
			failed[tp] = err
			continue
		}
		lai, ok := f.nodes[tp]
		if !ok {
			missing = append(missing, tp)
			continue
		}
		found[tp] = lai
	}
	return found, missing, failed
}

func (f *fakeStore) UpdateLeaderAndIsr(ctx context.Context, proposals map[types.TopicPartition]LeaderAndIsr, controllerEpoch int64) (
	successful, retry, failed map[types.TopicPartition]LeaderAndIsr,
) {
	successful = make(map[types.TopicPartition]LeaderAndIsr)
	retry = make(map[types.TopicPartition]LeaderAndIsr)
	failed = make(map[types.TopicPartition]LeaderAndIsr)

	called := make([]types.TopicPartition, 0, len(proposals))
	for tp := range proposals {
		called = append(called, tp)
	}
	f.updateCalls = append(f.updateCalls, called)

	for tp, proposed := range proposals {
		if f.conflictOnce[tp] {
			delete(f.conflictOnce, tp)
			retry[tp] = proposed
			continue
		}
		f.nodes[tp] = proposed
		successful[tp] = proposed
	}
	return successful, retry, failed
}

// fakeBatch records every call the executor makes to the broker-batch
// collaborator, in order, so tests can assert on both content and shape
// (e.g. that NewBatch/SendToBrokers bracket exactly once per call).
type fakeBatch struct {
	opened  int
	flushed []int64

	leaderAndIsr []leaderAndIsrCall
	stopReplica  []stopReplicaCall
}

type leaderAndIsrCall struct {
	recipients []uint32
	tp         types.TopicPartition
	leadership LeaderAndIsr
	assignment []uint32
	isNew      bool
}

type stopReplicaCall struct {
	recipients      []uint32
	tp              types.TopicPartition
	deletePartition bool
	callback        StopReplicaCallback
}

func (b *fakeBatch) NewBatch() { b.opened++ }

func (b *fakeBatch) AddLeaderAndIsr(recipients []uint32, tp types.TopicPartition, leadership LeaderAndIsr, assignment []uint32, isNew bool) {
	b.leaderAndIsr = append(b.leaderAndIsr, leaderAndIsrCall{recipients, tp, leadership, assignment, isNew})
}

func (b *fakeBatch) AddStopReplica(recipients []uint32, tp types.TopicPartition, deletePartition bool, onResponse StopReplicaCallback) {
	b.stopReplica = append(b.stopReplica, stopReplicaCall{recipients, tp, deletePartition, onResponse})
}

func (b *fakeBatch) SendToBrokers(controllerEpoch int64) {
	b.flushed = append(b.flushed, controllerEpoch)
}

// fakeDeletionManager reports a fixed set of partitions as being deleted.
type fakeDeletionManager struct {
	deleting map[types.TopicPartition]bool
}

func newFakeDeletionManager() *fakeDeletionManager {
	return &fakeDeletionManager{deleting: make(map[types.TopicPartition]bool)}
}

func (f *fakeDeletionManager) IsPartitionToBeDeleted(tp types.TopicPartition) bool {
	return f.deleting[tp]
}

var errFakeStoreIO = errors.New("fake store I/O error")
