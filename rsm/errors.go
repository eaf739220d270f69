package rsm

import (
	"errors"
	"fmt"

	"github.com/replicalog/controller/types"
)

// errReentrant is returned by HandleStateChanges if it is called again
// while a call is already running on this Machine; per §5 the RSM assumes
// a single-threaded caller and this is a programming-error guard, not a
// concurrency primitive.
var errReentrant = errors.New("rsm: HandleStateChanges is not reentrant")

// errISRUpdateFailed marks a → Offline transition whose ISR removal did not
// produce a result for the partition (missing store state or a
// non-retriable store error), per the ISR updater's result contract.
var errISRUpdateFailed = errors.New("rsm: ISR update did not complete for partition")

// InvalidTransitionError records a rejected (current -> target) edge. The
// replica is logged and skipped rather than aborting the rest of the batch
// (per §7), but the error itself is still collected into the multierror
// HandleStateChanges returns to its caller, so tests and the log line share
// one message format.
type InvalidTransitionError struct {
	Replica ReplicaID
	From    State
	To      State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %+v: %s -> %s", e.Replica, e.From, e.To)
}

// FencedControllerError is produced by the partition-state reader when the
// store reveals a controller epoch higher than ours.
type FencedControllerError struct {
	Partition  types.TopicPartition
	StoreEpoch int64
	OurEpoch   int64
}

func (e *FencedControllerError) Error() string {
	return fmt.Sprintf("controller fenced for %s: store epoch %d > our epoch %d", e.Partition, e.StoreEpoch, e.OurEpoch)
}

// StoreError wraps any other coordination-store failure with the partition
// it applies to.
type StoreError struct {
	Partition types.TopicPartition
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error for %s: %v", e.Partition, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }
