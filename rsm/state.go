// Package rsm implements the controller-side replica state machine: the
// per-replica lifecycle tracker that drives LeaderAndIsr/StopReplica
// requests to brokers and keeps the coordination store's leader/ISR
// metadata in sync with the controller's view of the cluster.
package rsm

import "github.com/replicalog/controller/types"

// State is one of the seven lifecycle states a replica can be in.
type State int

const (
	NonExistent State = iota
	New
	Online
	Offline
	DeletionStarted
	DeletionSuccessful
	DeletionIneligible
)

func (s State) String() string {
	switch s {
	case NonExistent:
		return "NonExistent"
	case New:
		return "New"
	case Online:
		return "Online"
	case Offline:
		return "Offline"
	case DeletionStarted:
		return "DeletionStarted"
	case DeletionSuccessful:
		return "DeletionSuccessful"
	case DeletionIneligible:
		return "DeletionIneligible"
	default:
		return "Unknown"
	}
}

// ReplicaID is the (topic, partition, broker) triple that identifies a
// single replica. It is comparable and usable as a map key.
type ReplicaID struct {
	Topic     string
	Partition uint32
	Broker    uint32
}

// TopicPartition strips the broker off a ReplicaID.
func (r ReplicaID) TopicPartition() types.TopicPartition {
	return types.TopicPartition{Topic: r.Topic, Partition: r.Partition}
}
