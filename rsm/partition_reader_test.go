package rsm

import (
	"context"
	"testing"

	"github.com/replicalog/controller/types"
)

func TestReadStatesClassifiesFencedController(t *testing.T) {
	store := newFakeStore()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	store.nodes[tp] = LeaderAndIsr{Leader: 1, ISR: []uint32{1, 2, 3}, ControllerEpoch: 6}

	found, missing, failed := readStates(context.Background(), store, 5, []types.TopicPartition{tp})

	if len(found) != 0 || len(missing) != 0 {
		t.Fatalf("expected fenced partition to be neither found nor missing, got found=%v missing=%v", found, missing)
	}
	err, ok := failed[tp]
	if !ok {
		t.Fatalf("expected %s in failed", tp)
	}
	var fenced *FencedControllerError
	if !asFenced(err, &fenced) {
		t.Fatalf("expected a *FencedControllerError, got %T: %v", err, err)
	}
}

func TestReadStatesMissingNode(t *testing.T) {
	store := newFakeStore()
	tp := types.TopicPartition{Topic: "t", Partition: 0}

	found, missing, failed := readStates(context.Background(), store, 5, []types.TopicPartition{tp})

	if len(found) != 0 || len(failed) != 0 {
		t.Fatalf("expected only missing, got found=%v failed=%v", found, failed)
	}
	if len(missing) != 1 || missing[0] != tp {
		t.Fatalf("expected %s in missing, got %v", tp, missing)
	}
}

func TestReadStatesFound(t *testing.T) {
	store := newFakeStore()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	store.nodes[tp] = LeaderAndIsr{Leader: 1, ISR: []uint32{1, 2, 3}, ControllerEpoch: 5}

	found, missing, failed := readStates(context.Background(), store, 5, []types.TopicPartition{tp})

	if len(missing) != 0 || len(failed) != 0 {
		t.Fatalf("expected only found, got missing=%v failed=%v", missing, failed)
	}
	if lai, ok := found[tp]; !ok || lai.Leader != 1 {
		t.Fatalf("expected %s found with leader 1, got %v ok=%v", tp, lai, ok)
	}
}

func TestReadStatesStoreIOError(t *testing.T) {
	store := newFakeStore()
	tp := types.TopicPartition{Topic: "t", Partition: 0}
	store.readErr[tp] = errFakeStoreIO

	found, missing, failed := readStates(context.Background(), store, 5, []types.TopicPartition{tp})

	if len(found) != 0 || len(missing) != 0 {
		t.Fatalf("expected only failed, got found=%v missing=%v", found, missing)
	}
	if failed[tp] != errFakeStoreIO {
		t.Fatalf("expected the raw store error to pass through, got %v", failed[tp])
	}
}

func asFenced(err error, target **FencedControllerError) bool {
	fe, ok := err.(*FencedControllerError)
	if !ok {
		return false
	}
	*target = fe
	return true
}
