package raft

import (
	"encoding/json"
	"fmt"

	log "github.com/replicalog/controller/logging"
	"github.com/replicalog/controller/types"
)

// CommandType is a raft log command type
type CommandType int

// Commands types that can be applied to the raft log to change the state machine
const (
	AddNode CommandType = iota
	RemoveNode
	AddTopic
	RemoveTopic
	AddPartition
	RemovePartition
	UpdateLeaderAndIsr
)

// Command represents a command type with its payload
type Command struct {
	Kind    CommandType
	Payload json.RawMessage
}

// LeaderIsrUpdate is the payload of an UpdateLeaderAndIsr command: a
// compare-and-swap proposal for one partition's leader/ISR record, fenced
// by ExpectedVersion.
type LeaderIsrUpdate struct {
	Partition       types.TopicPartition
	Leader          int64
	ISR             []uint32
	LeaderEpoch     int64
	ControllerEpoch int64
	ExpectedVersion int64
}

// LeaderIsrUpdateResult is the response applied UpdateLeaderAndIsr commands
// carry back through the raft apply future.
type LeaderIsrUpdateResult struct {
	Applied bool
	Entry   LeaderIsrEntry
}

// ApplyCommand applies a decoded command to the FSM, returning whatever
// result the command produces (nil for the fire-and-forget commands).
func (kf *FSM) ApplyCommand(cmd Command) (any, error) {
	log.Info("Inside ApplyCommand %v", cmd.Kind)
	switch cmd.Kind {
	case AddNode:
	case RemoveNode:
	case AddTopic:
		var topic types.Topic
		err := json.Unmarshal(cmd.Payload, &topic)
		if err != nil {
			return nil, fmt.Errorf("could not parse topic: %s", err)
		}
		log.Debug("Raft ApplyCommand AddTopic: %+v", topic)
		kf.StoreTopic(topic)

	case AddPartition:
		var partition types.PartitionState
		err := json.Unmarshal(cmd.Payload, &partition)
		if err != nil {
			return nil, fmt.Errorf("could not parse partition command: %s", err)
		}
		log.Debug("Raft ApplyCommand AddPartition: %+v", partition)
		err = kf.StorePartition(partition)
		if err != nil {
			return nil, fmt.Errorf("error applying partition %+v command: %s", partition, err)
		}

	case UpdateLeaderAndIsr:
		var update LeaderIsrUpdate
		err := json.Unmarshal(cmd.Payload, &update)
		if err != nil {
			return nil, fmt.Errorf("could not parse leader/isr update: %s", err)
		}
		log.Debug("Raft ApplyCommand UpdateLeaderAndIsr: %+v", update)
		return kf.CasLeaderAndIsr(update), nil

	default:
		return nil, fmt.Errorf("unknown command type: %#v", cmd.Kind)
	}
	return nil, nil
}

// EncodeLogEntry converts a raft log entry into bytes
// TODO: use protobuf or some better encoding
func EncodeLogEntry(entryType CommandType, entry any) (res []byte, err error) {
	cmd := Command{Kind: entryType}
	cmd.Payload, err = json.Marshal(entry)
	if err != nil {
		return
	}
	res, err = json.Marshal(cmd)
	return
}
