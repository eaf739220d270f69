package rsm

import (
	"context"
	"time"

	"github.com/replicalog/controller/logging"
	"github.com/replicalog/controller/types"
)

// isrUpdaterDeps bundles the collaborators and knobs removeReplicaFromISR
// needs, factored out so tests can swap in a fake clock/sleep.
type isrUpdaterDeps struct {
	store       Store
	deletion    DeletionManager
	ctx         *Context
	maxRetries  int // 0 = unbounded, matching the source
	backoff     time.Duration
	sleep       func(time.Duration)
}

func (d *isrUpdaterDeps) sleepFn() func(time.Duration) {
	if d.sleep != nil {
		return d.sleep
	}
	return time.Sleep
}

func containsBroker(brokers []uint32, broker uint32) bool {
	for _, b := range brokers {
		if b == broker {
			return true
		}
	}
	return false
}

func filterOutBroker(brokers []uint32, broker uint32) []uint32 {
	out := make([]uint32, 0, len(brokers))
	for _, b := range brokers {
		if b != broker {
			out = append(out, b)
		}
	}
	return out
}

// removeReplicaFromISR implements §4.3: loop reading authoritative state
// for the remaining partitions, proposing broker's removal from each ISR,
// and CAS-submitting the proposals, retrying only the version-conflict
// subset, until nothing remains to retry.
func removeReplicaFromISR(ctx context.Context, deps *isrUpdaterDeps, broker uint32, partitions []types.TopicPartition) map[types.TopicPartition]LeaderAndIsr {
	result := make(map[types.TopicPartition]LeaderAndIsr)
	remaining := partitions
	round := 0

	for len(remaining) > 0 {
		round++
		if deps.maxRetries > 0 && round > deps.maxRetries {
			for _, tp := range remaining {
				logging.Error("ISR update for %s exhausted %d retries, giving up", tp, deps.maxRetries)
			}
			break
		}

		found, missing, failed := readStates(ctx, deps.store, deps.ctx.Epoch, remaining)

		for _, tp := range missing {
			if deps.deletion.IsPartitionToBeDeleted(tp) {
				continue // benign: topic is being torn down anyway
			}
			logging.Error("ISR update for %s failed: no leadership state found in store", tp)
		}
		for tp, err := range failed {
			logging.Error("ISR update for %s failed: %v", tp, err)
		}

		proposals := make(map[types.TopicPartition]LeaderAndIsr, len(found))
		for tp, lai := range found {
			if !containsBroker(lai.ISR, broker) {
				result[tp] = lai
				deps.ctx.Leadership[tp] = lai
				continue
			}

			newLeader := lai.Leader
			if newLeader == int64(broker) {
				newLeader = NoLeader
			}

			newISR := lai.ISR
			if len(lai.ISR) > 1 {
				newISR = filterOutBroker(lai.ISR, broker)
			} // else: broker is the sole ISR member, keep it rather than emptying the ISR

			proposals[tp] = LeaderAndIsr{
				Leader:          newLeader,
				ISR:             newISR,
				LeaderEpoch:     lai.LeaderEpoch + 1,
				ControllerEpoch: deps.ctx.Epoch,
			}
		}

		if len(proposals) == 0 {
			break
		}

		successful, retry, failedCAS := deps.store.UpdateLeaderAndIsr(ctx, proposals, deps.ctx.Epoch)
		for tp, lai := range successful {
			result[tp] = lai
			deps.ctx.Leadership[tp] = lai
		}
		for tp := range failedCAS {
			logging.Error("CAS update of leader/isr for %s failed", tp)
		}

		remaining = remaining[:0]
		for tp := range retry {
			remaining = append(remaining, tp)
		}
		if len(remaining) > 0 && deps.backoff > 0 {
			deps.sleepFn()(deps.backoff)
		}
	}

	return result
}
