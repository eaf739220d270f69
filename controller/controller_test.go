package controller

import (
	"context"
	"testing"

	"github.com/replicalog/controller/deletion"
	"github.com/replicalog/controller/rsm"
	"github.com/replicalog/controller/types"
)

// fakeReplicaDriver satisfies deletion.Manager's collaborator interface
// without needing a real rsm.Machine, so deletionAdapter can be tested
// without standing up a broker.
type fakeReplicaDriver struct{}

func (fakeReplicaDriver) HandleStateChanges(ctx context.Context, replicas []rsm.ReplicaID, target rsm.State, onStopReplica rsm.StopReplicaCallback) error {
	return nil
}
func (fakeReplicaDriver) ReplicasInState(topic string, state rsm.State) []rsm.ReplicaID { return nil }
func (fakeReplicaDriver) AnyReplicaInState(topic string, state rsm.State) bool           { return false }
func (fakeReplicaDriver) AllReplicasForTopicAre(topic string, state rsm.State) bool      { return false }

// TestDeletionAdapterDelegatesToManager covers the one piece of controller
// wiring that is pure logic: deletionAdapter forwards
// rsm.DeletionManager.IsPartitionToBeDeleted to the attached
// deletion.Manager, and reports false when no manager is attached yet
// (before Controller.New has finished wiring).
func TestDeletionAdapterDelegatesToManager(t *testing.T) {
	tp := types.TopicPartition{Topic: "orders", Partition: 0}

	c := &Controller{}
	adapter := deletionAdapter{c: c}
	if adapter.IsPartitionToBeDeleted(tp) {
		t.Fatalf("expected false with no deletion manager attached")
	}

	c.deleter = deletion.NewManager(fakeReplicaDriver{})
	if adapter.IsPartitionToBeDeleted(tp) {
		t.Fatalf("expected false before the topic is marked for deletion")
	}

	if err := c.deleter.MarkTopicForDeletion(context.Background(), tp.Topic); err != nil {
		t.Fatalf("mark for deletion: %v", err)
	}
	if !adapter.IsPartitionToBeDeleted(tp) {
		t.Fatalf("expected true once the topic has been marked for deletion")
	}
}
