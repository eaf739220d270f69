// Package raftstore implements rsm.Store on top of the broker's own raft
// log: the leader/ISR metadata for every partition is replicated the same
// way topic and node metadata already is (see raft.FSM), so a controller
// failover never loses leadership state as long as a raft quorum survives.
package raftstore

import (
	"context"
	"time"

	hraft "github.com/hashicorp/raft"

	"github.com/replicalog/controller/raft"
	"github.com/replicalog/controller/rsm"
	"github.com/replicalog/controller/types"
)

const defaultApplyTimeout = 10 * time.Second

// Store adapts a broker's *hraft.Raft + *raft.FSM pair to rsm.Store.
type Store struct {
	raft         *hraft.Raft
	fsm          *raft.FSM
	applyTimeout time.Duration
}

// New wires a Store against the raft handle and FSM the broker already
// runs for topic/node metadata (see protocol.Broker.SetupRaft).
func New(r *hraft.Raft, fsm *raft.FSM) *Store {
	return &Store{raft: r, fsm: fsm, applyTimeout: defaultApplyTimeout}
}

func toRSM(e raft.LeaderIsrEntry) rsm.LeaderAndIsr {
	return rsm.LeaderAndIsr{
		Leader:          e.Leader,
		ISR:             e.ISR,
		LeaderEpoch:     e.LeaderEpoch,
		ControllerEpoch: e.ControllerEpoch,
	}
}

// ReadStates reads directly from the local FSM: every raft node applies
// the same committed log, so a follower's copy is as authoritative as the
// leader's for reads (subject to normal raft read-staleness caveats, not
// addressed here since the RSM only ever runs on the leader).
func (s *Store) ReadStates(ctx context.Context, partitions []types.TopicPartition) (
	found map[types.TopicPartition]rsm.LeaderAndIsr,
	missing []types.TopicPartition,
	failed map[types.TopicPartition]error,
) {
	found = make(map[types.TopicPartition]rsm.LeaderAndIsr)
	failed = make(map[types.TopicPartition]error)

	for _, tp := range partitions {
		entry, ok := s.fsm.GetLeaderAndIsr(tp)
		if !ok {
			missing = append(missing, tp)
			continue
		}
		found[tp] = toRSM(entry)
	}
	return found, missing, failed
}

// UpdateLeaderAndIsr proposes each update as a raft log entry carrying the
// version this Store last observed for that partition; the FSM applies a
// deterministic compare-and-swap so every replica of the log reaches the
// same accept/reject decision (see raft.FSM.CasLeaderAndIsr).
func (s *Store) UpdateLeaderAndIsr(ctx context.Context, proposals map[types.TopicPartition]rsm.LeaderAndIsr, controllerEpoch int64) (
	successful, retry, failed map[types.TopicPartition]rsm.LeaderAndIsr,
) {
	successful = make(map[types.TopicPartition]rsm.LeaderAndIsr)
	retry = make(map[types.TopicPartition]rsm.LeaderAndIsr)
	failed = make(map[types.TopicPartition]rsm.LeaderAndIsr)

	if s.raft.State() != hraft.Leader {
		for tp, proposed := range proposals {
			failed[tp] = proposed
		}
		return successful, retry, failed
	}

	for tp, proposed := range proposals {
		current, _ := s.fsm.GetLeaderAndIsr(tp)

		update := raft.LeaderIsrUpdate{
			Partition:       tp,
			Leader:          proposed.Leader,
			ISR:             proposed.ISR,
			LeaderEpoch:     proposed.LeaderEpoch,
			ControllerEpoch: controllerEpoch,
			ExpectedVersion: current.Version,
		}

		payload, err := raft.EncodeLogEntry(raft.UpdateLeaderAndIsr, update)
		if err != nil {
			failed[tp] = proposed
			continue
		}

		future := s.raft.Apply(payload, s.applyTimeout)
		if err := future.Error(); err != nil {
			failed[tp] = proposed
			continue
		}

		result, ok := future.Response().(raft.LeaderIsrUpdateResult)
		if !ok {
			failed[tp] = proposed
			continue
		}
		if !result.Applied {
			retry[tp] = proposed
			continue
		}
		successful[tp] = toRSM(result.Entry)
	}

	return successful, retry, failed
}
