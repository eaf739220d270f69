package rsm

import (
	"context"

	"github.com/replicalog/controller/types"
)

// StopReplicaCallback is invoked by the broker-batch collaborator once a
// broker responds to a StopReplica(deletePartition=true) request. It is the
// asynchronous edge DeletionStarted -> {DeletionSuccessful | DeletionIneligible};
// per the design notes this should be modeled as a message re-entering the
// controller's event loop rather than called directly from an I/O
// completion context.
type StopReplicaCallback func(broker uint32, tp types.TopicPartition, err error)

// Store is the coordination-store client contract (§6): bulk reads of
// per-partition leader/ISR state, and a batched compare-and-swap update
// fenced by the controller epoch.
type Store interface {
	// ReadStates bulk-fetches leader/ISR state for the given partitions,
	// classified per the rules in the partition-state reader design.
	ReadStates(ctx context.Context, partitions []types.TopicPartition) (
		found map[types.TopicPartition]LeaderAndIsr,
		missing []types.TopicPartition,
		failed map[types.TopicPartition]error,
	)

	// UpdateLeaderAndIsr submits proposed (leader, isr) updates for the
	// given partitions as a compare-and-swap tagged with controllerEpoch.
	// "retry" partitions hit a version conflict; "failed" partitions hit
	// any other error (including controller-epoch fencing).
	UpdateLeaderAndIsr(ctx context.Context, proposals map[types.TopicPartition]LeaderAndIsr, controllerEpoch int64) (
		successful, retry, failed map[types.TopicPartition]LeaderAndIsr,
	)
}

// BrokerBatch is the broker-request batch dispatcher contract (§6).
type BrokerBatch interface {
	NewBatch()
	AddLeaderAndIsr(recipients []uint32, tp types.TopicPartition, leadership LeaderAndIsr, assignment []uint32, isNew bool)
	AddStopReplica(recipients []uint32, tp types.TopicPartition, deletePartition bool, onResponse StopReplicaCallback)
	SendToBrokers(controllerEpoch int64)
}

// DeletionManager is the topic-deletion collaborator contract (§6); the RSM
// only ever asks whether a partition is currently being deleted.
type DeletionManager interface {
	IsPartitionToBeDeleted(tp types.TopicPartition) bool
}
