// Package models defines the core domain entities: snapshots, anomaly
// events, the market sentiment state, and user notifications.
package models

import "time"

// Snapshot is one timestamped reading of market-wide metrics, supplied by
// an external provider once per cycle. The pipeline never mutates it;
// metrics the provider could not fill stay at their zero values.
type Snapshot struct {
	Timestamp          time.Time `json:"timestamp"`
	Volume             float64   `json:"volume"`
	IndexChangePct     float64   `json:"index_change_pct"`
	NorthBoundFlow     float64   `json:"north_bound_flow"`
	LimitDownCount     int       `json:"limit_down_count"`
	BombRate           float64   `json:"bomb_rate"` // 0-100
	TopSector          string    `json:"top_sector"`
	TopSectorChangePct float64   `json:"top_sector_change_pct"`
}
