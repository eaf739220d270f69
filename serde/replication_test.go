package serde

import (
	"reflect"
	"testing"

	"github.com/replicalog/controller/types"
)

func TestLeaderAndIsrRequestRoundTrip(t *testing.T) {
	tp := types.TopicPartition{Topic: "orders", Partition: 3}
	isr := []uint32{1, 2, 3}
	assignment := []uint32{1, 2, 3, 4}

	encoded := EncodeLeaderAndIsrRequest(tp, -1, isr, 5, 9, assignment, true)
	gotTP, leader, gotISR, leaderEpoch, controllerEpoch, gotAssignment, isNew := DecodeLeaderAndIsrRequest(encoded)

	if gotTP != tp {
		t.Fatalf("partition = %v, want %v", gotTP, tp)
	}
	if leader != -1 {
		t.Fatalf("leader = %d, want -1", leader)
	}
	if !reflect.DeepEqual(gotISR, isr) {
		t.Fatalf("isr = %v, want %v", gotISR, isr)
	}
	if leaderEpoch != 5 || controllerEpoch != 9 {
		t.Fatalf("epochs = (%d, %d), want (5, 9)", leaderEpoch, controllerEpoch)
	}
	if !reflect.DeepEqual(gotAssignment, assignment) {
		t.Fatalf("assignment = %v, want %v", gotAssignment, assignment)
	}
	if !isNew {
		t.Fatalf("isNew = false, want true")
	}
}

func TestStopReplicaRequestRoundTrip(t *testing.T) {
	tp := types.TopicPartition{Topic: "orders", Partition: 3}

	encoded := EncodeStopReplicaRequest(tp, true, 7)
	gotTP, deletePartition, controllerEpoch := DecodeStopReplicaRequest(encoded)

	if gotTP != tp {
		t.Fatalf("partition = %v, want %v", gotTP, tp)
	}
	if !deletePartition {
		t.Fatalf("deletePartition = false, want true")
	}
	if controllerEpoch != 7 {
		t.Fatalf("controllerEpoch = %d, want 7", controllerEpoch)
	}
}
