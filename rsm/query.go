package rsm

// The query surface (§4.5) is exposed to the topic-deletion manager and
// other controller components. Every method here is a pure read over the
// state table; none materializes a default entry.

// ReplicasInState returns every replica of topic currently in state.
func (m *Machine) ReplicasInState(topic string, state State) []ReplicaID {
	var out []ReplicaID
	for r, s := range m.states.all() {
		if r.Topic == topic && s == state {
			out = append(out, r)
		}
	}
	return out
}

// AnyReplicaInState reports whether topic has at least one replica in state.
func (m *Machine) AnyReplicaInState(topic string, state State) bool {
	for r, s := range m.states.all() {
		if r.Topic == topic && s == state {
			return true
		}
	}
	return false
}

// AllReplicasForTopicAre reports whether every known replica of topic is in
// state. A topic with no known replicas vacuously satisfies this.
func (m *Machine) AllReplicasForTopicAre(topic string, state State) bool {
	for r, s := range m.states.all() {
		if r.Topic == topic && s != state {
			return false
		}
	}
	return true
}

// ExistsReplicaInDeletionStarted reports whether any replica of topic is
// currently mid-deletion.
func (m *Machine) ExistsReplicaInDeletionStarted(topic string) bool {
	return m.AnyReplicaInState(topic, DeletionStarted)
}
