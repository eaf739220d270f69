// Package zkstore implements rsm.Store against a real ZooKeeper-style
// coordination store: one znode per partition holding its leader/ISR
// state, updated with compare-and-swap via the znode's own version.
package zkstore

import (
	"context"
	"path"
	"time"

	"github.com/samuel/go-zookeeper/zk"

	"github.com/replicalog/controller/logging"
	"github.com/replicalog/controller/rsm"
	"github.com/replicalog/controller/types"
)

// Store adapts a zk.Conn to rsm.Store. It caches the znode version last
// observed for each partition (from a read or a successful write) and uses
// it as the expected version on the next Set, so a concurrent writer's
// intervening update is detected as ErrBadVersion rather than silently
// overwritten. Per §5 the RSM only ever drives one Store from a single
// controller goroutine, so this cache needs no lock of its own.
type Store struct {
	conn     *zk.Conn
	versions map[types.TopicPartition]int32
}

// Connect dials addrs and returns a Store once the session is established.
func Connect(addrs []string, sessionTimeout time.Duration) (*Store, error) {
	conn, _, err := zk.Connect(addrs, sessionTimeout)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New wraps an already-connected client, e.g. one shared with other parts
// of the controller.
func New(conn *zk.Conn) *Store {
	return &Store{conn: conn, versions: make(map[types.TopicPartition]int32)}
}

func (s *Store) Close() {
	s.conn.Close()
}

// ReadStates bulk-fetches leader/ISR state per §4.4's classification: OK
// with a decodable payload is found, "no such node" or an undecodable
// payload is missing, anything else is failed. controller-epoch fencing is
// left to the caller (the partition-state reader re-checks it against the
// RSM's own epoch), so a stale epoch here is still surfaced as found.
func (s *Store) ReadStates(ctx context.Context, partitions []types.TopicPartition) (
	found map[types.TopicPartition]rsm.LeaderAndIsr,
	missing []types.TopicPartition,
	failed map[types.TopicPartition]error,
) {
	found = make(map[types.TopicPartition]rsm.LeaderAndIsr)
	failed = make(map[types.TopicPartition]error)

	for _, tp := range partitions {
		data, stat, err := s.conn.Get(partitionStatePath(tp.Topic, tp.Partition))
		switch err {
		case nil:
			payload, ok := decodeLeaderIsr(data)
			if !ok {
				missing = append(missing, tp)
				continue
			}
			s.versions[tp] = stat.Version
			found[tp] = rsm.LeaderAndIsr{
				Leader:          payload.Leader,
				ISR:             payload.ISR,
				LeaderEpoch:     payload.LeaderEpoch,
				ControllerEpoch: payload.ControllerEpoch,
			}
		case zk.ErrNoNode:
			missing = append(missing, tp)
		default:
			failed[tp] = err
		}
	}

	return found, missing, failed
}

// UpdateLeaderAndIsr submits each proposal as a Set fenced by the version
// this Store last observed for that partition (defaulting to "must not yet
// exist" when unseen). zk.ErrBadVersion is the version-conflict signal that
// belongs in "retry"; everything else is "failed".
func (s *Store) UpdateLeaderAndIsr(ctx context.Context, proposals map[types.TopicPartition]rsm.LeaderAndIsr, controllerEpoch int64) (
	successful, retry, failed map[types.TopicPartition]rsm.LeaderAndIsr,
) {
	successful = make(map[types.TopicPartition]rsm.LeaderAndIsr)
	retry = make(map[types.TopicPartition]rsm.LeaderAndIsr)
	failed = make(map[types.TopicPartition]rsm.LeaderAndIsr)

	for tp, proposed := range proposals {
		data, err := encodeLeaderIsr(leaderIsrPayload{
			Leader:          proposed.Leader,
			ISR:             proposed.ISR,
			LeaderEpoch:     proposed.LeaderEpoch,
			ControllerEpoch: controllerEpoch,
		})
		if err != nil {
			failed[tp] = proposed
			continue
		}

		znode := partitionStatePath(tp.Topic, tp.Partition)
		stat, statErr := s.casSet(tp, znode, data)
		switch statErr {
		case nil:
			s.versions[tp] = stat.Version
			successful[tp] = proposed
		case zk.ErrBadVersion, zk.ErrNodeExists:
			retry[tp] = proposed
		default:
			logging.Error("zkstore: update of %s failed: %v", tp, statErr)
			failed[tp] = proposed
		}
	}

	return successful, retry, failed
}

// casSet performs the version-fenced write. version 0 with no cached entry
// means "this store has never observed the node"; if the node was in fact
// created concurrently by another writer since our last read, Create
// returns ErrNodeExists, which the caller folds into "retry" so the next
// round re-reads the real version.
func (s *Store) casSet(tp types.TopicPartition, znode string, data []byte) (*zk.Stat, error) {
	version, seen := s.versions[tp]
	if !seen {
		if err := s.mkdirRecursive(path.Dir(znode)); err != nil {
			return nil, err
		}
		if _, err := s.conn.Create(znode, data, 0, zk.WorldACL(zk.PermAll)); err != nil {
			return nil, err
		}
		_, stat, err := s.conn.Get(znode)
		return stat, err
	}
	return s.conn.Set(znode, data, version)
}

func (s *Store) mkdirRecursive(node string) error {
	if node == "/" || node == "." {
		return nil
	}
	parent := path.Dir(node)
	if parent != "/" {
		if err := s.mkdirRecursive(parent); err != nil {
			return err
		}
	}
	_, err := s.conn.Create(node, nil, 0, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		return nil
	}
	return err
}
