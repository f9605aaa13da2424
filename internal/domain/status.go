package domain

import "time"

// StatusReport is the persisted view of the service for external monitors.
type StatusReport struct {
	StatsSnapshot

	Buffered  int       `json:"buffered"`
	TargetFPS int       `json:"target_fps"`
	UpdatedAt time.Time `json:"updated_at"`
}
