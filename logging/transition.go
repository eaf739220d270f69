package logging

import "fmt"

// Transition logs a single replica state change the way the controller's
// replica state machine is required to: successful transitions at DEBUG
// (the source's "trace" level has no equivalent in this package) carrying
// (broker, partition, from, to); invalid or failed transitions at ERROR
// carrying the cause.
func Transition(broker uint32, topic string, partition uint32, from, to fmt.Stringer, cause error) {
	if cause != nil {
		Error("replica (%s-%d, broker %d) %s -> %s failed: %v", topic, partition, broker, from, to, cause)
		return
	}
	Debug("replica (%s-%d, broker %d) %s -> %s", topic, partition, broker, from, to)
}
