package rsm

import "testing"

func TestValidTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{NonExistent, New, true},
		{New, Online, true},
		{Online, Online, true},
		{Offline, Online, true},
		{DeletionIneligible, Online, true},
		{New, Offline, true},
		{Offline, DeletionStarted, true},
		{DeletionStarted, DeletionSuccessful, true},
		{DeletionStarted, DeletionIneligible, true},
		{DeletionSuccessful, NonExistent, true},

		{NonExistent, Online, false},
		{Online, New, false},
		{DeletionStarted, Online, false},
		{DeletionSuccessful, Online, false},
		{NonExistent, NonExistent, false},
		{Online, DeletionStarted, false},
	}

	for _, c := range cases {
		if got := valid(c.from, c.to); got != c.want {
			t.Errorf("valid(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStateTableDefaultsToNonExistent(t *testing.T) {
	st := newStateTable()
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}

	if got := st.get(r); got != NonExistent {
		t.Fatalf("get on unseen replica = %s, want NonExistent", got)
	}

	if _, ok := st.peek(r); !ok {
		t.Fatalf("peek should observe the materialized default after get")
	}
}

func TestStateTablePeekDoesNotMaterialize(t *testing.T) {
	st := newStateTable()
	r := ReplicaID{Topic: "t", Partition: 0, Broker: 1}

	if _, ok := st.peek(r); ok {
		t.Fatalf("peek should not observe an entry before any get/set")
	}
}
