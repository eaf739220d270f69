package zkstore

import "fmt"

// Znode layout mirrors the classic Kafka controller's coordination-store
// tree: one leadership state node per partition, one shared controller
// epoch node.
const (
	brokersRoot    = "/brokers/topics"
	controllerRoot = "/controller_epoch"
)

func topicPartitionsPath(topic string) string {
	return fmt.Sprintf("%s/%s/partitions", brokersRoot, topic)
}

func partitionStatePath(topic string, partition uint32) string {
	return fmt.Sprintf("%s/%d/state", topicPartitionsPath(topic), partition)
}

func controllerEpochPath() string {
	return controllerRoot
}
