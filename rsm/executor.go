package rsm

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/replicalog/controller/logging"
	"github.com/replicalog/controller/types"
)

// HandleStateChanges is the RSM's single public entry point (§4.2): drive
// every replica in replicas to target, batching the resulting broker
// requests into one flush tagged with the controller epoch observed at
// entry. It is not reentrant; a nested call while one is already running
// returns an error instead of corrupting the batch.
func (m *Machine) HandleStateChanges(ctx context.Context, replicas []ReplicaID, target State, onStopReplica StopReplicaCallback) error {
	if len(replicas) == 0 {
		return nil
	}
	if m.inFlight {
		return errReentrant
	}
	m.inFlight = true
	defer func() { m.inFlight = false }()

	epoch := m.ctx.Epoch
	m.batch.NewBatch()

	var errs *multierror.Error
	if target == Offline {
		errs = m.handleOffline(ctx, replicas, errs)
	} else {
		for _, r := range replicas {
			if err := m.transition(r, target, onStopReplica); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}

	m.batch.SendToBrokers(epoch)
	return errs.ErrorOrNil()
}

func (m *Machine) transition(r ReplicaID, target State, onStopReplica StopReplicaCallback) error {
	current := m.states.get(r)
	if !valid(current, target) {
		err := &InvalidTransitionError{Replica: r, From: current, To: target}
		logging.Transition(r.Broker, r.Topic, r.Partition, current, target, err)
		return err
	}

	var err error
	switch target {
	case New:
		err = m.toNew(r, current)
	case Online:
		err = m.toOnline(r, current)
	case DeletionStarted:
		err = m.toDeletionStarted(r, onStopReplica)
	case DeletionIneligible:
		m.states.set(r, DeletionIneligible)
	case DeletionSuccessful:
		m.states.set(r, DeletionSuccessful)
	case NonExistent:
		m.toNonExistent(r)
	}

	logging.Transition(r.Broker, r.Topic, r.Partition, current, target, err)
	return err
}

// toNew implements the "→ New" arm (§4.2): reject if the target broker is
// already leading the partition; otherwise enqueue a LeaderAndIsr carrying
// the current leadership if known, and always leave the New state visible
// only in the state table.
func (m *Machine) toNew(r ReplicaID, current State) error {
	tp := r.TopicPartition()
	lai, known := m.ctx.Leadership[tp]
	if known && lai.Leader == int64(r.Broker) {
		return &InvalidTransitionError{Replica: r, From: current, To: New}
	}

	m.states.set(r, New)
	if !known {
		return nil
	}

	m.batch.AddLeaderAndIsr([]uint32{r.Broker}, tp, lai, m.ctx.Assignment[tp], true)
	return nil
}

// toOnline implements the "→ Online" arm: New is the commit point that
// appends the broker to the assignment, and relies on toNew having already
// sent that broker its LeaderAndIsr(is_new=true). Every other legal
// predecessor (including Startup's direct NonExistent-table-seed-to-Online
// path) gets a LeaderAndIsr(is_new=false) with the current leadership, or,
// on a fresh cluster where no leadership has ever been persisted
// (scenario 1), a freshly synthesized one.
func (m *Machine) toOnline(r ReplicaID, current State) error {
	tp := r.TopicPartition()

	if current == New {
		m.ctx.appendToAssignment(tp, r.Broker)
		m.states.set(r, Online)
		return nil
	}

	lai, known := m.ctx.Leadership[tp]
	if !known {
		lai = m.ctx.bootstrapLeadership(tp)
	}
	m.batch.AddLeaderAndIsr([]uint32{r.Broker}, tp, lai, m.ctx.Assignment[tp], false)

	m.states.set(r, Online)
	return nil
}

// replicaTransition pairs a replica with the state it was in when its
// → Offline request was accepted, so the grouped-by-broker handling below
// can still log/report each replica's own edge.
type replicaTransition struct {
	r    ReplicaID
	from State
}

// handleOffline implements the "→ Offline" arm across the whole batch
// (§4.2/§4.3): every replica is validated and stopped individually, but
// each owning broker is removed from every one of its affected partitions'
// ISR in a single call to the ISR updater, so a multi-partition broker
// failure costs one bulk compare-and-swap round trip per broker rather than
// one per partition.
func (m *Machine) handleOffline(ctx context.Context, replicas []ReplicaID, errs *multierror.Error) *multierror.Error {
	byBroker := make(map[uint32][]replicaTransition)
	order := make([]uint32, 0, len(replicas))

	for _, r := range replicas {
		current := m.states.get(r)
		if !valid(current, Offline) {
			err := &InvalidTransitionError{Replica: r, From: current, To: Offline}
			logging.Transition(r.Broker, r.Topic, r.Partition, current, Offline, err)
			errs = multierror.Append(errs, err)
			continue
		}

		m.batch.AddStopReplica([]uint32{r.Broker}, r.TopicPartition(), false, nil)

		if _, seen := byBroker[r.Broker]; !seen {
			order = append(order, r.Broker)
		}
		byBroker[r.Broker] = append(byBroker[r.Broker], replicaTransition{r: r, from: current})
	}

	for _, broker := range order {
		errs = m.offlineBroker(ctx, broker, byBroker[broker], errs)
	}
	return errs
}

// offlineBroker removes broker from the ISR of every partition in
// replicas with one removeReplicaFromISR call, then fans each partition's
// refreshed leader/ISR out to its other live replicas and commits the
// Offline state, per partition.
func (m *Machine) offlineBroker(ctx context.Context, broker uint32, replicas []replicaTransition, errs *multierror.Error) *multierror.Error {
	partitions := make([]types.TopicPartition, 0, len(replicas))
	byPartition := make(map[types.TopicPartition]replicaTransition, len(replicas))

	for _, rt := range replicas {
		tp := rt.r.TopicPartition()
		if _, known := m.ctx.Leadership[tp]; !known {
			m.states.set(rt.r, Offline)
			logging.Transition(rt.r.Broker, rt.r.Topic, rt.r.Partition, rt.from, Offline, nil)
			continue
		}
		partitions = append(partitions, tp)
		byPartition[tp] = rt
	}

	if len(partitions) == 0 {
		return errs
	}

	deps := &isrUpdaterDeps{
		store:      m.store,
		deletion:   m.deletion,
		ctx:        m.ctx,
		maxRetries: m.config.ISRUpdateMaxRetries,
		backoff:    m.config.ISRUpdateRetryBackoff,
	}
	updated := removeReplicaFromISR(ctx, deps, broker, partitions)

	for tp, rt := range byPartition {
		lai, ok := updated[tp]
		if !ok {
			err := &StoreError{Partition: tp, Cause: errISRUpdateFailed}
			logging.Transition(rt.r.Broker, rt.r.Topic, rt.r.Partition, rt.from, Offline, err)
			errs = multierror.Append(errs, err)
			continue
		}

		if !m.deletion.IsPartitionToBeDeleted(tp) {
			others := m.ctx.liveReplicasExcluding(tp, broker)
			if len(others) > 0 {
				m.batch.AddLeaderAndIsr(others, tp, lai, m.ctx.Assignment[tp], false)
			}
		}

		m.states.set(rt.r, Offline)
		logging.Transition(rt.r.Broker, rt.r.Topic, rt.r.Partition, rt.from, Offline, nil)
	}
	return errs
}

// toDeletionStarted implements the "→ DeletionStarted" arm: transition
// first, then enqueue the delete-replica request with the caller's
// callback attached; the callback (delivered outside this call) drives the
// terminal deletion transition.
func (m *Machine) toDeletionStarted(r ReplicaID, onStopReplica StopReplicaCallback) error {
	m.states.set(r, DeletionStarted)
	m.batch.AddStopReplica([]uint32{r.Broker}, r.TopicPartition(), true, onStopReplica)
	return nil
}

// toNonExistent implements the "→ NonExistent" arm: drop the broker from
// the assignment and remove the state table entry, no broker request.
func (m *Machine) toNonExistent(r ReplicaID) {
	tp := r.TopicPartition()
	m.ctx.removeFromAssignment(tp, r.Broker)
	m.states.remove(r)
}
