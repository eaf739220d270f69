// Package controller wires the replica state machine to a running broker:
// it derives rsm.Context from the broker's raft term and serf membership,
// and hooks the state machine's Startup/Shutdown to the broker's raft
// leadership transitions.
package controller

import (
	"context"
	"strconv"
	"strings"
	"time"

	hraft "github.com/hashicorp/raft"

	"github.com/replicalog/controller/broker"
	"github.com/replicalog/controller/deletion"
	"github.com/replicalog/controller/logging"
	"github.com/replicalog/controller/protocol"
	"github.com/replicalog/controller/rsm"
	"github.com/replicalog/controller/store/raftstore"
	"github.com/replicalog/controller/store/zkstore"
	"github.com/replicalog/controller/types"
)

// Controller owns the pieces the RSM cannot own itself (§9's "controller
// owns both, RSM borrows"): the shared Context, the collaborators, and the
// glue between raft leadership and the state machine's lifecycle.
type Controller struct {
	b       *protocol.Broker
	ctx     *rsm.Context
	machine *rsm.Machine
	deleter *deletion.Manager
}

// New wires a Controller around an already-constructed broker, picking the
// coordination-store backend named by Config.StoreBackend ("zk" or
// "raft", defaulting to "raft"). Call Attach to hook it to the broker's
// leadership transitions.
func New(b *protocol.Broker) (*Controller, error) {
	ctx := rsm.NewContext()

	store, err := newStore(b)
	if err != nil {
		return nil, err
	}
	batch := broker.NewBatch(broker.NewTCPSender(nodeResolver(b)))

	c := &Controller{b: b, ctx: ctx}
	c.machine = rsm.NewMachine(ctx, store, batch, deletionAdapter{c}, *b.Config)
	c.deleter = deletion.NewManager(c.machine)
	return c, nil
}

func newStore(b *protocol.Broker) (rsm.Store, error) {
	if strings.EqualFold(b.Config.StoreBackend, "zk") {
		conn, err := zkstore.Connect(strings.Split(b.Config.ZkAddrs, ","), 10*time.Second)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return raftstore.New(b.Raft, b.FSM), nil
}

// Attach hooks the controller into the broker's raft leadership
// notifications (see protocol.Broker.monitorLeadership).
func (c *Controller) Attach() {
	c.b.OnBecomingLeader = c.onBecomingLeader
	c.b.OnResignation = c.onResignation
}

// Machine exposes the underlying state machine, e.g. for an admin API to
// drive topic creation/reassignment via HandleStateChanges.
func (c *Controller) Machine() *rsm.Machine { return c.machine }

// DeletionManager exposes the topic-deletion collaborator.
func (c *Controller) DeletionManager() *deletion.Manager { return c.deleter }

func (c *Controller) onBecomingLeader() {
	logging.Info("controller: became leader, hydrating replica state machine")
	c.refreshContext()
	if err := c.machine.Startup(context.Background()); err != nil {
		logging.Error("controller: startup failed: %v", err)
	}
}

func (c *Controller) onResignation() {
	logging.Info("controller: resigned leadership, dropping replica state machine")
	c.machine.Shutdown()
}

// refreshContext rebuilds the assignment, epoch, and liveness views the
// state machine reads from, using the broker's own raft term as the
// controller epoch and serf membership as broker liveness.
func (c *Controller) refreshContext() {
	c.ctx.Epoch = currentTerm(c.b.Raft)

	live := make(map[uint32]struct{})
	for _, m := range c.b.Serf.Members() {
		if m.Tags["role"] != "broker" {
			continue
		}
		id, err := strconv.Atoi(m.Tags["ID"])
		if err != nil {
			continue
		}
		live[uint32(id)] = struct{}{}
	}
	c.ctx.LiveBrokers = live

	assignment := make(map[types.TopicPartition][]uint32)
	leadership := make(map[types.TopicPartition]rsm.LeaderAndIsr)
	for topicName, topic := range topicsOf(c.b) {
		for _, p := range topic.Partitions {
			tp := types.TopicPartition{Topic: topicName, Partition: p.PartitionIndex}
			assignment[tp] = append([]uint32{p.LeaderID}, p.ReplicaNodes...)
			if entry, ok := c.b.FSM.GetLeaderAndIsr(tp); ok {
				leadership[tp] = rsm.LeaderAndIsr{
					Leader:          entry.Leader,
					ISR:             entry.ISR,
					LeaderEpoch:     entry.LeaderEpoch,
					ControllerEpoch: entry.ControllerEpoch,
				}
			}
		}
	}
	c.ctx.Assignment = assignment
	c.ctx.Leadership = leadership

	c.ctx.OnlineReplicas = func(broker uint32, tp types.TopicPartition) bool {
		lai, ok := c.ctx.Leadership[tp]
		if !ok {
			return false
		}
		if lai.Leader == int64(broker) {
			return true
		}
		for _, isr := range lai.ISR {
			if isr == broker {
				return true
			}
		}
		return false
	}
}

func topicsOf(b *protocol.Broker) map[string]types.Topic {
	topics := make(map[string]types.Topic)
	for _, name := range b.FSM.TopicNames() {
		if t, ok := b.FSM.GetTopic(name); ok {
			topics[name] = t
		}
	}
	return topics
}

func currentTerm(r *hraft.Raft) int64 {
	term, err := strconv.ParseInt(r.Stats()["term"], 10, 64)
	if err != nil {
		return 0
	}
	return term
}

func nodeResolver(b *protocol.Broker) broker.NodeResolver {
	return func(nodeID uint32) (string, bool) {
		nodes, err := b.GetClusterNodes()
		if err != nil {
			return "", false
		}
		for _, n := range nodes {
			if n.NodeID == nodeID {
				return n.Host + ":" + strconv.Itoa(int(n.Port)), true
			}
		}
		return "", false
	}
}

// deletionAdapter satisfies rsm.DeletionManager by delegating to the
// controller's deletion.Manager, which needs the *rsm.Machine that in turn
// needs this adapter -- broken by constructing the Machine first with this
// thin indirection instead of the manager directly.
type deletionAdapter struct{ c *Controller }

func (d deletionAdapter) IsPartitionToBeDeleted(tp types.TopicPartition) bool {
	if d.c.deleter == nil {
		return false
	}
	return d.c.deleter.IsPartitionToBeDeleted(tp)
}
