package raft

import (
	"fmt"
	"sync"

	"github.com/replicalog/controller/logging"
	"github.com/replicalog/controller/storage"
	"github.com/replicalog/controller/types"
)

// FSM is the finite-state-machine of the raft log
type FSM struct {
	NodeID    uint32
	Nodes     map[uint32]types.Node
	Topics    map[string]types.Topic
	LeaderIsr map[types.TopicPartition]LeaderIsrEntry
	sync.RWMutex
}

// LeaderIsrEntry is the FSM's replicated record of one partition's
// leader/ISR tuple, versioned so raftstore can implement compare-and-swap
// on top of raft's own log ordering.
type LeaderIsrEntry struct {
	Leader          int64
	ISR             []uint32
	LeaderEpoch     int64
	ControllerEpoch int64
	Version         int64
}

// CasLeaderAndIsr applies update if ExpectedVersion matches the entry
// currently stored for update.Partition (0 for "must not exist yet"),
// bumping the version on success. It always runs on every raft node via
// FSM.Apply, so every replica of the log reaches the same accept/reject
// decision deterministically.
func (fsm *FSM) CasLeaderAndIsr(update LeaderIsrUpdate) LeaderIsrUpdateResult {
	fsm.Lock()
	defer fsm.Unlock()

	current := fsm.LeaderIsr[update.Partition]
	if current.Version != update.ExpectedVersion {
		return LeaderIsrUpdateResult{Applied: false, Entry: current}
	}

	entry := LeaderIsrEntry{
		Leader:          update.Leader,
		ISR:             update.ISR,
		LeaderEpoch:     update.LeaderEpoch,
		ControllerEpoch: update.ControllerEpoch,
		Version:         current.Version + 1,
	}
	fsm.LeaderIsr[update.Partition] = entry
	return LeaderIsrUpdateResult{Applied: true, Entry: entry}
}

// GetLeaderAndIsr retrieves a partition's current leader/ISR record.
func (fsm *FSM) GetLeaderAndIsr(tp types.TopicPartition) (LeaderIsrEntry, bool) {
	fsm.RLock()
	defer fsm.RUnlock()
	entry, ok := fsm.LeaderIsr[tp]
	return entry, ok
}

// StoreNode stores a node (broker) in the FSM
func (fsm *FSM) StoreNode(node types.Node) {
	fsm.Lock()
	defer fsm.Unlock()
	fsm.Nodes[node.NodeID] = node
}

// StoreTopic stores a topic in the FSM
func (fsm *FSM) StoreTopic(topic types.Topic) {
	fsm.Lock()
	defer fsm.Unlock()
	if _, ok := fsm.Topics[topic.Name]; !ok {
		fsm.Topics[topic.Name] = types.Topic{Name: topic.Name, Partitions: make(map[uint32]types.PartitionState), Configs: topic.Configs}
	}
}

// StorePartition stores a partition in the FSM
func (fsm *FSM) StorePartition(partition types.PartitionState) error {
	fsm.Lock()
	defer fsm.Unlock()
	if _, ok := fsm.Topics[partition.Topic]; !ok {
		return fmt.Errorf("topic %v doesn't exist in raft FSM", partition.Topic)
	}
	fsm.Topics[partition.Topic].Partitions[partition.PartitionIndex] = partition

	logging.Info("StorePartition partition.LeaderID %v, fsm.NodeID %v", partition.LeaderID, fsm.NodeID)
	if partition.LeaderID == fsm.NodeID { //|| slices.Contains(partition.ReplicaNodes,  fsm.NodeID)
		return storage.EnsurePartition(partition.Topic, partition.PartitionIndex)
	}
	return nil
}

// GetNode retrieves a node (broker) from the FSM
func (fsm *FSM) GetNode(nodeID uint32) (types.Node, bool) {
	fsm.RLock()
	defer fsm.RUnlock()
	node, exists := fsm.Nodes[nodeID]
	return node, exists
}

// GetTopic retrieves a topic from the FSM
func (fsm *FSM) GetTopic(topicName string) (types.Topic, bool) {
	fsm.RLock()
	defer fsm.RUnlock()
	topic, exists := fsm.Topics[topicName]
	return topic, exists
}

// GetPartition retrieves a partition from the FSM
func (fsm *FSM) GetPartition(topicName string, partitionIndex uint32) (types.PartitionState, bool) {
	fsm.RLock()
	defer fsm.RUnlock()
	topic, topicExists := fsm.Topics[topicName]
	if !topicExists {
		return types.PartitionState{}, false
	}
	partition, partitionExists := topic.Partitions[partitionIndex]
	return partition, partitionExists
}

// TopicNames returns a snapshot of every topic name currently in the FSM.
func (fsm *FSM) TopicNames() []string {
	fsm.RLock()
	defer fsm.RUnlock()
	names := make([]string, 0, len(fsm.Topics))
	for name := range fsm.Topics {
		names = append(names, name)
	}
	return names
}

// TopicExists checks if topicName exists in the FSM
func (fsm *FSM) TopicExists(topicName string) bool {
	fsm.RLock()
	defer fsm.RUnlock()
	_, exists := fsm.Topics[topicName]
	return exists
}
