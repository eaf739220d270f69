package rsm

import "testing"

func TestQuerySurface(t *testing.T) {
	m, _, _, _ := newTestMachine()

	a := ReplicaID{Topic: "t", Partition: 0, Broker: 1}
	b := ReplicaID{Topic: "t", Partition: 1, Broker: 2}
	c := ReplicaID{Topic: "other", Partition: 0, Broker: 3}

	m.states.set(a, Online)
	m.states.set(b, DeletionStarted)
	m.states.set(c, Online)

	if got := m.ReplicasInState("t", Online); len(got) != 1 || got[0] != a {
		t.Fatalf("ReplicasInState(t, Online) = %v, want [%v]", got, a)
	}

	if !m.AnyReplicaInState("t", DeletionStarted) {
		t.Fatalf("expected AnyReplicaInState(t, DeletionStarted) = true")
	}
	if m.AnyReplicaInState("other", DeletionStarted) {
		t.Fatalf("expected AnyReplicaInState(other, DeletionStarted) = false")
	}

	if m.AllReplicasForTopicAre("t", Online) {
		t.Fatalf("expected AllReplicasForTopicAre(t, Online) = false, topic t has a DeletionStarted replica")
	}
	if !m.AllReplicasForTopicAre("other", Online) {
		t.Fatalf("expected AllReplicasForTopicAre(other, Online) = true")
	}

	if !m.ExistsReplicaInDeletionStarted("t") {
		t.Fatalf("expected ExistsReplicaInDeletionStarted(t) = true")
	}
	if m.ExistsReplicaInDeletionStarted("other") {
		t.Fatalf("expected ExistsReplicaInDeletionStarted(other) = false")
	}
}
