// Package broker implements the batched broker-request dispatcher the
// replica state machine drives: it groups LeaderAndIsr and StopReplica
// requests by recipient broker and flushes them as one round of sends
// tagged with the controller epoch.
package broker

import (
	"github.com/replicalog/controller/logging"
	"github.com/replicalog/controller/rsm"
	"github.com/replicalog/controller/types"
)

// LeaderAndIsrRequest is the control request sent to a broker to install or
// refresh its view of a partition's leader/ISR and full assignment. The
// wire encoding of this request is a broker-RPC client concern (out of
// scope here, per the design notes); Sender owns turning it into bytes.
type LeaderAndIsrRequest struct {
	Partition  types.TopicPartition
	Leadership rsm.LeaderAndIsr
	Assignment []uint32
	IsNew      bool
}

// StopReplicaRequest asks a broker to stop serving a partition, optionally
// deleting its on-disk data. ControllerEpoch is stamped at flush time by
// SendToBrokers, not when the request is added to the batch.
type StopReplicaRequest struct {
	Partition       types.TopicPartition
	DeletePartition bool
	ControllerEpoch int64
}

// Sender is the broker-RPC client pool the RSM's out-of-scope collaborator
// list calls out (§1, §6): given a target node id and one request, it
// delivers it and reports the outcome. Implementations own connection
// management, retries, and wire encoding.
type Sender interface {
	Send(nodeID uint32, req any) error
}

type pendingStopReplica struct {
	broker   uint32
	req      StopReplicaRequest
	callback rsm.StopReplicaCallback
}

// Batch implements rsm.BrokerBatch by grouping requests per recipient
// broker and flushing them through a Sender in one round, per §4.2's
// "opens a new batch ... flushes exactly once" contract.
type Batch struct {
	sender Sender

	leaderAndIsr map[uint32][]LeaderAndIsrRequest
	stopReplica  []pendingStopReplica
}

// NewBatch wires a Batch against the broker-RPC client it flushes through.
func NewBatch(sender Sender) *Batch {
	return &Batch{sender: sender}
}

func (b *Batch) NewBatch() {
	b.leaderAndIsr = make(map[uint32][]LeaderAndIsrRequest)
	b.stopReplica = nil
}

func (b *Batch) AddLeaderAndIsr(recipients []uint32, tp types.TopicPartition, leadership rsm.LeaderAndIsr, assignment []uint32, isNew bool) {
	req := LeaderAndIsrRequest{Partition: tp, Leadership: leadership, Assignment: assignment, IsNew: isNew}
	for _, node := range recipients {
		b.leaderAndIsr[node] = append(b.leaderAndIsr[node], req)
	}
}

func (b *Batch) AddStopReplica(recipients []uint32, tp types.TopicPartition, deletePartition bool, onResponse rsm.StopReplicaCallback) {
	req := StopReplicaRequest{Partition: tp, DeletePartition: deletePartition}
	for _, node := range recipients {
		b.stopReplica = append(b.stopReplica, pendingStopReplica{broker: node, req: req, callback: onResponse})
	}
}

// SendToBrokers flushes every accumulated request, stamping controllerEpoch
// -- the fencing token observed when HandleStateChanges started, not
// whatever epoch happened to be cached on a LeaderAndIsr value when it was
// added -- onto each request immediately before it is sent. StopReplica
// responses are, in a full implementation, delivered asynchronously by the
// broker-RPC client re-entering the controller's event loop (§9); this
// Sender contract reports the send outcome synchronously and the callback
// (if any) is invoked with that outcome as an approximation of the real ack.
func (b *Batch) SendToBrokers(controllerEpoch int64) {
	for node, reqs := range b.leaderAndIsr {
		for _, req := range reqs {
			req.Leadership.ControllerEpoch = controllerEpoch
			if err := b.sender.Send(node, req); err != nil {
				logging.Error("LeaderAndIsr to broker %d for %s failed: %v", node, req.Partition, err)
			}
		}
	}

	for _, p := range b.stopReplica {
		p.req.ControllerEpoch = controllerEpoch
		err := b.sender.Send(p.broker, p.req)
		if err != nil {
			logging.Error("StopReplica to broker %d for %s failed: %v", p.broker, p.req.Partition, err)
		}
		if p.callback != nil {
			p.callback(p.broker, p.req.Partition, err)
		}
	}
}
