package types

import (
	"os"
	"sync"
)

type PartitionIndex uint32
type TopicName string
type Partition struct {
	LastOffset         uint32
	NextRecordPosition uint32
	IndexFile          *os.File
	IndexData          []byte // TODO: use mmap?
	SegmentFile        *os.File
	sync.RWMutex
}
type TopicsState map[TopicName]map[PartitionIndex]*Partition
