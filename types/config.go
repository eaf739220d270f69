package types

import (
	"time"

	"github.com/hashicorp/serf/serf"
)

// Configuration holds every knob a broker/controller process needs at
// startup. It is populated once from flags/env and then treated as
// read-only for the lifetime of the process.
type Configuration struct {
	LogDir          string
	BrokerHost      string
	BrokerPort      uint32
	FlushIntervalMs int

	LogRetentionCheckIntervalMs int
	LogRetentionMs              int
	LogSegmentSizeBytes         int
	LogSegmentMs                int

	NodeID      uint32
	Bootstrap   bool
	RaftAddress string
	RaftID      string

	SerfAddress     string
	SerfJoinAddress string
	SerfConfig      *serf.Config

	// StoreBackend selects the coordination-store implementation the
	// controller's RSM talks to: "zk" or "raft".
	StoreBackend string
	ZkAddrs      string

	// ISRUpdateMaxRetries bounds the ISR-removal retry loop (0 = unbounded,
	// matching the source system's behavior). See removeReplicaFromISR in
	// rsm/isr_updater.go.
	ISRUpdateMaxRetries   int
	ISRUpdateRetryBackoff time.Duration
}
