package rsm

import (
	"context"

	"github.com/replicalog/controller/types"
)

// readStates bulk-fetches authoritative leader/ISR state for partitions
// from the store and classifies the results per §4.4:
//
//   - decodable payload with controller_epoch <= ours -> found
//   - decodable payload with controller_epoch > ours  -> failed, fenced
//   - empty/undecodable payload, or "no such node"     -> missing
//   - any other store error                            -> failed
//
// The store collaborator is trusted to have already applied this
// classification (it owns the wire format); readStates additionally
// re-checks the controller-epoch fencing rule against ourEpoch so the RSM
// itself is the single source of truth for what counts as "fenced",
// independent of how a given Store implementation surfaces it.
func readStates(ctx context.Context, store Store, ourEpoch int64, partitions []types.TopicPartition) (
	found map[types.TopicPartition]LeaderAndIsr,
	missing []types.TopicPartition,
	failed map[types.TopicPartition]error,
) {
	found = make(map[types.TopicPartition]LeaderAndIsr)
	failed = make(map[types.TopicPartition]error)

	raw, rawMissing, rawFailed := store.ReadStates(ctx, partitions)
	missing = rawMissing

	for tp, err := range rawFailed {
		failed[tp] = err
	}

	for tp, lai := range raw {
		if lai.ControllerEpoch > ourEpoch {
			failed[tp] = &FencedControllerError{Partition: tp, StoreEpoch: lai.ControllerEpoch, OurEpoch: ourEpoch}
			continue
		}
		found[tp] = lai
	}

	return found, missing, failed
}
