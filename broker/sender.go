package broker

import (
	"fmt"
	"net"
	"time"

	"github.com/replicalog/controller/compress"
	"github.com/replicalog/controller/serde"
)

// NodeResolver looks up a broker's dial address by node id, e.g. backed by
// protocol.Broker.GetClusterNodes.
type NodeResolver func(nodeID uint32) (addr string, ok bool)

// TCPSender is the default Sender: one short-lived TCP connection per
// request, length-prefixed the same way the broker's own client protocol
// frames requests (see protocol.Broker.HandleConnection). The request body
// is encoded with serde and snappy-compressed the same way a produced
// record batch is (see storage/record_batch.go), rather than the full
// Kafka control-RPC wire format (out of scope, §1).
type TCPSender struct {
	resolve    NodeResolver
	timeout    time.Duration
	compressor compress.Compressor
}

// NewTCPSender wires a TCPSender against a node resolver.
func NewTCPSender(resolve NodeResolver) *TCPSender {
	return &TCPSender{
		resolve:    resolve,
		timeout:    5 * time.Second,
		compressor: compress.GetCompressor(uint16(compress.SNAPPY)),
	}
}

func (s *TCPSender) Send(nodeID uint32, req any) error {
	addr, ok := s.resolve(nodeID)
	if !ok {
		return fmt.Errorf("broker: no known address for node %d", nodeID)
	}

	body, err := s.encode(req)
	if err != nil {
		return fmt.Errorf("broker: encode request for node %d: %w", nodeID, err)
	}

	compressed, err := s.compressor.Compress(body)
	if err != nil {
		return fmt.Errorf("broker: compress request for node %d: %w", nodeID, err)
	}

	conn, err := net.DialTimeout("tcp", addr, s.timeout)
	if err != nil {
		return fmt.Errorf("broker: dial node %d at %s: %w", nodeID, addr, err)
	}
	defer conn.Close()

	frame := make([]byte, 4+len(compressed))
	serde.Encoding.PutUint32(frame, uint32(len(compressed)))
	copy(frame[4:], compressed)

	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}

// encode turns a LeaderAndIsrRequest/StopReplicaRequest into wire bytes via
// serde, the same encoder the client protocol uses for its own requests.
func (s *TCPSender) encode(req any) ([]byte, error) {
	switch r := req.(type) {
	case LeaderAndIsrRequest:
		return serde.EncodeLeaderAndIsrRequest(r.Partition, r.Leadership.Leader, r.Leadership.ISR, r.Leadership.LeaderEpoch, r.Leadership.ControllerEpoch, r.Assignment, r.IsNew), nil
	case StopReplicaRequest:
		return serde.EncodeStopReplicaRequest(r.Partition, r.DeletePartition, r.ControllerEpoch), nil
	default:
		return nil, fmt.Errorf("broker: unsupported request type %T", req)
	}
}
