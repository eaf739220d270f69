// Command controllerd starts one broker/controller node: it brings up the
// raft and serf layers via protocol.Broker, then attaches the replica
// state machine so this node runs the controller logic whenever raft
// elects it leader.
package main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hashicorp/serf/serf"

	"github.com/replicalog/controller/controller"
	"github.com/replicalog/controller/logging"
	"github.com/replicalog/controller/protocol"
	"github.com/replicalog/controller/types"
)

func main() {
	var (
		nodeID          = flag.Uint("node-id", 1, "unique broker/raft node id")
		logDir          = flag.String("log-dir", "/tmp/replicalog", "on-disk log directory")
		brokerHost      = flag.String("broker-host", "localhost", "client-facing broker host")
		brokerPort      = flag.Uint("broker-port", 9092, "client-facing broker port")
		raftAddress     = flag.String("raft-addr", "127.0.0.1:12000", "raft transport bind address")
		raftID          = flag.String("raft-id", "", "raft server id, defaults to node id")
		serfAddress     = flag.String("serf-addr", "127.0.0.1:13000", "serf gossip bind address")
		serfJoinAddress = flag.String("serf-join", "", "existing serf member address to join")
		bootstrap       = flag.Bool("bootstrap", false, "bootstrap a new raft cluster from this node")
		storeBackend    = flag.String("store-backend", "raft", "coordination store backend: raft or zk")
		zkAddrs         = flag.String("zk-addrs", "", "comma separated zookeeper hosts, when store-backend=zk")
		logLevel        = flag.String("log-level", logging.INFO, "log level: DEBUG, INFO, WARN, ERROR")
	)
	flag.Parse()

	logging.SetLogLevel(*logLevel)

	id := *raftID
	if id == "" {
		id = strconv.Itoa(int(*nodeID))
	}

	config := &types.Configuration{
		LogDir:                      *logDir,
		BrokerHost:                  *brokerHost,
		BrokerPort:                  uint32(*brokerPort),
		FlushIntervalMs:             5000,
		LogRetentionCheckIntervalMs: 30 * 1000,
		LogRetentionMs:              3 * 60 * 60 * 1000,
		LogSegmentSizeBytes:         104857600 * 5,
		LogSegmentMs:                1800000,
		NodeID:                      uint32(*nodeID),
		Bootstrap:                   *bootstrap,
		RaftAddress:                 *raftAddress,
		RaftID:                      id,
		SerfAddress:                 *serfAddress,
		SerfJoinAddress:             *serfJoinAddress,
		SerfConfig:                  serf.DefaultConfig(),
		StoreBackend:                *storeBackend,
		ZkAddrs:                     *zkAddrs,
		ISRUpdateMaxRetries:         0,
	}

	b := protocol.NewBroker(config)

	ctrl, err := controller.New(b)
	if err != nil {
		logging.Error("controllerd: failed to build controller: %v", err)
		os.Exit(1)
	}
	ctrl.Attach()

	go b.Startup()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Info("controllerd: shutting down")
	b.Shutdown()
}
