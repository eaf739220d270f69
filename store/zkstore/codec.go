package zkstore

import "encoding/json"

// leaderIsrPayload is the JSON shape persisted at a partition's state
// znode. Field names match the classic controller's wire format closely
// enough for tooling built against that format to read this store's nodes.
type leaderIsrPayload struct {
	Leader          int64    `json:"leader"`
	ISR             []uint32 `json:"isr"`
	LeaderEpoch     int64    `json:"leader_epoch"`
	ControllerEpoch int64    `json:"controller_epoch"`
}

func encodeLeaderIsr(p leaderIsrPayload) ([]byte, error) {
	return json.Marshal(p)
}

// decodeLeaderIsr returns ok=false for an empty or malformed payload,
// which the caller classifies as "missing" per the partition-state reader
// design rather than as a store error.
func decodeLeaderIsr(data []byte) (leaderIsrPayload, bool) {
	if len(data) == 0 {
		return leaderIsrPayload{}, false
	}
	var p leaderIsrPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return leaderIsrPayload{}, false
	}
	return p, true
}
