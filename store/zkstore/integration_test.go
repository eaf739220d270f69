//go:build integration

package zkstore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/replicalog/controller/rsm"
	"github.com/replicalog/controller/types"
)

// TestStoreAgainstLiveEnsemble mirrors orchestrator_test.go's pattern of
// exercising the real client against a live ZooKeeper rather than a fake:
// connect, drive a partition through ReadStates/UpdateLeaderAndIsr/CAS
// conflict, and clean up the znode it created. Requires ZKSTORE_TEST_ADDRS
// (comma-separated host:port) pointing at a running ensemble; skipped
// otherwise.
func TestStoreAgainstLiveEnsemble(t *testing.T) {
	addrs := os.Getenv("ZKSTORE_TEST_ADDRS")
	if addrs == "" {
		t.Skip("ZKSTORE_TEST_ADDRS not set, skipping live ensemble test")
	}

	store, err := Connect(strings.Split(addrs, ","), 10*time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close()

	tp := types.TopicPartition{Topic: "zkstore-integration", Partition: 0}
	ctx := context.Background()

	_, missing, failed := store.ReadStates(ctx, []types.TopicPartition{tp})
	if len(failed) != 0 {
		t.Fatalf("unexpected read failure before the node exists: %v", failed)
	}
	if len(missing) != 1 {
		t.Fatalf("expected the partition to be missing before its first write, got %v", missing)
	}

	proposed := rsm.LeaderAndIsr{Leader: 1, ISR: []uint32{1, 2, 3}, LeaderEpoch: 1}
	successful, retry, failed := store.UpdateLeaderAndIsr(ctx, map[types.TopicPartition]rsm.LeaderAndIsr{tp: proposed}, 1)
	if len(failed) != 0 || len(retry) != 0 {
		t.Fatalf("unexpected non-success on first write: retry=%v failed=%v", retry, failed)
	}
	if _, ok := successful[tp]; !ok {
		t.Fatalf("expected the first write to succeed")
	}

	found, _, failed := store.ReadStates(ctx, []types.TopicPartition{tp})
	if len(failed) != 0 {
		t.Fatalf("unexpected read failure: %v", failed)
	}
	got, ok := found[tp]
	if !ok || got.Leader != 1 || len(got.ISR) != 3 {
		t.Fatalf("readback mismatch: %+v", got)
	}

	// A second Store racing against the same znode with no cached version
	// (it has never read the node) should be told to retry, not silently
	// overwrite.
	racer := New(store.conn)
	_, retry, failed = racer.UpdateLeaderAndIsr(ctx, map[types.TopicPartition]rsm.LeaderAndIsr{tp: proposed}, 1)
	if len(failed) != 0 {
		t.Fatalf("unexpected failure on the racing write: %v", failed)
	}
	if _, ok := retry[tp]; !ok {
		t.Fatalf("expected the racing writer (unseen version) to be told to retry")
	}

	if err := store.conn.Delete(partitionStatePath(tp.Topic, tp.Partition), -1); err != nil {
		t.Logf("cleanup: could not delete test znode: %v", err)
	}
}
