package models

import (
	"time"
)

// MarketStatus is the three-way classification derived from the sentiment
// score.
type MarketStatus string

const (
	StatusRed    MarketStatus = "red"    // risk / overheated
	StatusYellow MarketStatus = "yellow" // oscillating / observing
	StatusGreen  MarketStatus = "green"  // safe / positive
)

// MarketState is the single running sentiment state. The state manager
// replaces the live instance every cycle; a replaced instance is history
// and never mutated.
type MarketState struct {
	Timestamp      time.Time    `json:"timestamp"`
	Status         MarketStatus `json:"status"`
	SentimentScore float64      `json:"sentiment_score"` // 0-100
	MainDriver     string       `json:"main_driver"`
	Summary        string       `json:"summary"`
}
