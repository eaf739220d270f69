package rsm

// validPrev is the compile-time-known edge set of the replica state graph:
// for each target state, the set of current states a replica may legally
// transition from. Encoded as a static table rather than per-state virtual
// dispatch, per the design notes.
var validPrev = map[State]map[State]bool{
	New: {
		NonExistent: true,
	},
	Online: {
		New:                true,
		Online:             true,
		Offline:            true,
		DeletionIneligible: true,
	},
	Offline: {
		New:                true,
		Online:             true,
		Offline:            true,
		DeletionIneligible: true,
	},
	DeletionStarted: {
		Offline: true,
	},
	DeletionSuccessful: {
		DeletionStarted: true,
	},
	DeletionIneligible: {
		DeletionStarted: true,
	},
	NonExistent: {
		DeletionSuccessful: true,
	},
}

// valid reports whether current -> target is a legal edge. A replica
// absent from the state table is treated as NonExistent, matching the
// state table's get-or-insert default.
func valid(current, target State) bool {
	return validPrev[target][current]
}
