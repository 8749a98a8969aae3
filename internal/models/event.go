package models

import (
	"errors"
	"time"
)

// EventType classifies the origin of an event. Anomaly detection is
// currently the only producer.
type EventType string

const (
	EventTypeAnomalyDetection EventType = "anomaly_detection"
)

// EventSubtype names the anomaly condition a rule detected.
type EventSubtype string

const (
	SubtypeSentimentTurningUp   EventSubtype = "sentiment_turning_up"
	SubtypeSentimentTurningDown EventSubtype = "sentiment_turning_down"
	SubtypeFlowReversal         EventSubtype = "flow_reversal"
	SubtypeFlowWithdrawal       EventSubtype = "flow_withdrawal"
	SubtypeThemeEmergence       EventSubtype = "theme_emergence"
	SubtypeThemeExhaustion      EventSubtype = "theme_exhaustion"
)

// EventLevel is the severity of a detected anomaly.
type EventLevel string

const (
	LevelLow    EventLevel = "low"
	LevelMedium EventLevel = "medium"
	LevelHigh   EventLevel = "high"
)

// Event is a detected anomaly condition. Created exclusively by rule
// evaluation and immutable afterwards.
type Event struct {
	ID          string         `json:"event_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        EventType      `json:"type"`
	Subtype     EventSubtype   `json:"subtype"`
	Level       EventLevel     `json:"level"`
	Data        map[string]any `json:"data"`
	Description string         `json:"description"`
}

var validSubtypes = map[EventSubtype]bool{
	SubtypeSentimentTurningUp:   true,
	SubtypeSentimentTurningDown: true,
	SubtypeFlowReversal:         true,
	SubtypeFlowWithdrawal:       true,
	SubtypeThemeEmergence:       true,
	SubtypeThemeExhaustion:      true,
}

// Validate checks event field constraints.
func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}
	if e.Type != EventTypeAnomalyDetection {
		return errors.New("event type must be anomaly_detection")
	}
	if !validSubtypes[e.Subtype] {
		return errors.New("unknown event subtype")
	}
	switch e.Level {
	case LevelLow, LevelMedium, LevelHigh:
	default:
		return errors.New("event level must be low, medium, or high")
	}
	if e.Description == "" {
		return errors.New("event description must not be empty")
	}
	return nil
}
