package domain

// StatsSnapshot is a point-in-time copy of the streaming statistics.
// Counters are read independently, so a snapshot taken while the producer
// runs may be off by one between fields.
type StatsSnapshot struct {
	Captured      uint64 `json:"captured"`
	Sent          uint64 `json:"sent"`
	Dropped       uint64 `json:"dropped"`
	CaptureErrors uint64 `json:"capture_errors"`
	Running       bool   `json:"running"`
}
