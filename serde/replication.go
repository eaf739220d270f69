package serde

import "github.com/replicalog/controller/types"

// EncodeLeaderAndIsrRequest serializes a LeaderAndIsr control request: the
// partition, the proposed leader/ISR tuple and epochs, the full replica
// assignment, and whether the broker is being asked to create the
// partition for the first time.
func EncodeLeaderAndIsrRequest(tp types.TopicPartition, leader int64, isr []uint32, leaderEpoch, controllerEpoch int64, assignment []uint32, isNew bool) []byte {
	e := NewEncoder()
	e.PutString(tp.Topic)
	e.PutInt32(tp.Partition)
	e.PutInt64(uint64(leader))
	e.PutInt32(uint32(len(isr)))
	for _, r := range isr {
		e.PutInt32(r)
	}
	e.PutInt64(uint64(leaderEpoch))
	e.PutInt64(uint64(controllerEpoch))
	e.PutInt32(uint32(len(assignment)))
	for _, r := range assignment {
		e.PutInt32(r)
	}
	e.PutBool(isNew)
	return e.Bytes()
}

// DecodeLeaderAndIsrRequest is the inverse of EncodeLeaderAndIsrRequest.
func DecodeLeaderAndIsrRequest(b []byte) (tp types.TopicPartition, leader int64, isr []uint32, leaderEpoch, controllerEpoch int64, assignment []uint32, isNew bool) {
	d := NewDecoder(b)
	tp.Topic = d.String()
	tp.Partition = d.UInt32()
	leader = int64(d.UInt64())

	isr = make([]uint32, d.UInt32())
	for i := range isr {
		isr[i] = d.UInt32()
	}

	leaderEpoch = int64(d.UInt64())
	controllerEpoch = int64(d.UInt64())

	assignment = make([]uint32, d.UInt32())
	for i := range assignment {
		assignment[i] = d.UInt32()
	}

	isNew = d.Bool()
	return
}

// EncodeStopReplicaRequest serializes a StopReplica control request,
// including the controller epoch fencing it against a stale controller.
func EncodeStopReplicaRequest(tp types.TopicPartition, deletePartition bool, controllerEpoch int64) []byte {
	e := NewEncoder()
	e.PutString(tp.Topic)
	e.PutInt32(tp.Partition)
	e.PutBool(deletePartition)
	e.PutInt64(uint64(controllerEpoch))
	return e.Bytes()
}

// DecodeStopReplicaRequest is the inverse of EncodeStopReplicaRequest.
func DecodeStopReplicaRequest(b []byte) (tp types.TopicPartition, deletePartition bool, controllerEpoch int64) {
	d := NewDecoder(b)
	tp.Topic = d.String()
	tp.Partition = d.UInt32()
	deletePartition = d.Bool()
	controllerEpoch = int64(d.UInt64())
	return
}
