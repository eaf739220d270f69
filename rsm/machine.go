package rsm

import "github.com/replicalog/controller/types"

// Machine is the replica state machine for one controller instance. It owns
// the state table and drives it against a borrowed Context and a set of
// external collaborators (§6). Machine holds no lock of its own: callers
// are expected to invoke it only from the controller's single serial event
// loop (§5); inFlight is a reentrancy tripwire, not a mutex.
type Machine struct {
	states   *stateTable
	ctx      *Context
	store    Store
	batch    BrokerBatch
	deletion DeletionManager
	config   types.Configuration

	inFlight bool
}

// NewMachine wires a Machine against a borrowed Context and the
// collaborators it needs. The context is not owned: the surrounding
// controller constructs one and shares it with whatever else needs it.
func NewMachine(ctx *Context, store Store, batch BrokerBatch, deletion DeletionManager, config types.Configuration) *Machine {
	return &Machine{
		states:   newStateTable(),
		ctx:      ctx,
		store:    store,
		batch:    batch,
		deletion: deletion,
		config:   config,
	}
}
