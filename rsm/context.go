package rsm

import "github.com/replicalog/controller/types"

// LeaderAndIsr is the leader/ISR/epoch tuple the coordination store
// persists per partition, and the payload carried on LeaderAndIsr broker
// requests.
type LeaderAndIsr struct {
	Leader           int64 // NoLeader sentinel when a partition currently has none
	ISR              []uint32
	LeaderEpoch      int64
	ControllerEpoch  int64
}

// NoLeader is the sentinel leader id meaning "this partition currently has
// no assigned leader" (e.g. after removing the sole ISR member's leader).
const NoLeader int64 = -1

// Context is the slice of the surrounding controller's shared state the
// RSM reads and writes. It is borrowed, not owned: the controller
// constructs one Context and passes it to Machine explicitly (see design
// notes on avoiding a stashed global).
type Context struct {
	// Assignment maps a partition to its ordered list of assigned broker
	// ids; index 0 is the preferred leader.
	Assignment map[types.TopicPartition][]uint32

	// Leadership is the controller's cached view of each partition's
	// authoritative leader/ISR, refreshed by the partition-state reader and
	// the ISR updater.
	Leadership map[types.TopicPartition]LeaderAndIsr

	// Epoch is the current controller epoch, the fencing token for every
	// write this controller makes to the store.
	Epoch int64

	// LiveBrokers is the current cluster membership as known by the
	// controller (fed by the broker-liveness collaborator, e.g. serf).
	LiveBrokers map[uint32]struct{}

	// OnlineReplicas reports whether the given broker is currently serving
	// (leader or follower) the given partition, used only by Startup.
	OnlineReplicas func(broker uint32, tp types.TopicPartition) bool
}

// NewContext returns an empty Context ready for Startup to hydrate.
func NewContext() *Context {
	return &Context{
		Assignment:  make(map[types.TopicPartition][]uint32),
		Leadership:  make(map[types.TopicPartition]LeaderAndIsr),
		LiveBrokers: make(map[uint32]struct{}),
	}
}

func (c *Context) isLive(broker uint32) bool {
	_, ok := c.LiveBrokers[broker]
	return ok
}

// liveReplicasExcluding returns every broker assigned to tp, other than
// exclude, that is currently live.
func (c *Context) liveReplicasExcluding(tp types.TopicPartition, exclude uint32) []uint32 {
	var out []uint32
	for _, b := range c.Assignment[tp] {
		if b == exclude {
			continue
		}
		if c.isLive(b) {
			out = append(out, b)
		}
	}
	return out
}

func (c *Context) assignmentContains(tp types.TopicPartition, broker uint32) bool {
	for _, b := range c.Assignment[tp] {
		if b == broker {
			return true
		}
	}
	return false
}

func (c *Context) appendToAssignment(tp types.TopicPartition, broker uint32) {
	if c.assignmentContains(tp, broker) {
		return
	}
	c.Assignment[tp] = append(c.Assignment[tp], broker)
}

// bootstrapLeadership synthesizes and caches the initial LeaderAndIsr for a
// partition that has never had one persisted (a fresh cluster, per
// scenario 1): the preferred replica (assignment index 0) leads, the full
// assignment is the initial ISR, and leader epoch starts at 0.
func (c *Context) bootstrapLeadership(tp types.TopicPartition) LeaderAndIsr {
	assigned := c.Assignment[tp]
	lai := LeaderAndIsr{ControllerEpoch: c.Epoch}
	if len(assigned) == 0 {
		lai.Leader = NoLeader
	} else {
		lai.Leader = int64(assigned[0])
		lai.ISR = append([]uint32(nil), assigned...)
	}
	c.Leadership[tp] = lai
	return lai
}

func (c *Context) removeFromAssignment(tp types.TopicPartition, broker uint32) {
	replicas := c.Assignment[tp]
	for i, b := range replicas {
		if b == broker {
			c.Assignment[tp] = append(replicas[:i], replicas[i+1:]...)
			return
		}
	}
}
