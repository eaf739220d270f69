package rsm

import (
	"context"

	"github.com/replicalog/controller/logging"
)

// Startup seeds the state table from the current assignment and drives
// every live, currently-serving replica to Online (§4.5). It is called once
// per controller-election win; calling it again is safe (idempotent given
// a stable assignment and unchanged broker liveness) since it always
// recomputes the table from scratch.
func (m *Machine) Startup(ctx context.Context) error {
	m.states.clear()

	var live []ReplicaID
	for tp, brokers := range m.ctx.Assignment {
		for _, b := range brokers {
			r := ReplicaID{Topic: tp.Topic, Partition: tp.Partition, Broker: b}
			if m.ctx.isLive(b) && m.ctx.OnlineReplicas != nil && m.ctx.OnlineReplicas(b, tp) {
				m.states.set(r, Online)
				live = append(live, r)
				continue
			}
			m.states.set(r, DeletionIneligible)
		}
	}

	logging.Info("rsm: startup seeded %d replicas (%d online)", len(m.states.all()), len(live))

	if len(live) == 0 {
		return nil
	}
	return m.HandleStateChanges(ctx, live, Online, nil)
}

// Shutdown drops the state table. It does not touch the store or send
// broker requests (§4.5): whatever was in flight is left for the store's
// own fencing (a stale controller epoch) to reject.
func (m *Machine) Shutdown() {
	m.states.clear()
	logging.Info("rsm: shutdown, state table cleared")
}
