// Package state owns the single running market sentiment state and folds
// each cycle's anomaly events into it.
package state

import (
	"fmt"
	"time"

	"github.com/quantpulse/marketpulse/internal/models"
)

// DefaultRetention bounds the informational recent-events buffer.
const DefaultRetention = 30 * time.Minute

// Score thresholds for the three-way status classification. Both bounds
// are closed: exactly 70 is green, exactly 30 is red.
const (
	greenThreshold = 70
	redThreshold   = 30
)

// subtypeWeights are the fixed per-subtype score deltas. Subtypes not
// listed contribute nothing.
var subtypeWeights = map[models.EventSubtype]float64{
	models.SubtypeSentimentTurningUp:   +10,
	models.SubtypeFlowReversal:         +5,
	models.SubtypeThemeEmergence:       +5,
	models.SubtypeSentimentTurningDown: -10,
	models.SubtypeFlowWithdrawal:       -10,
	models.SubtypeThemeExhaustion:      -5,
}

// Manager holds the live MarketState and a rolling buffer of recent
// events. The live state is replaced every cycle, never mutated, so a
// returned state stays valid as history.
type Manager struct {
	current      models.MarketState
	recentEvents []models.Event
	retention    time.Duration

	now func() time.Time // overridable in tests
}

// NewManager creates a manager in the neutral starting state: yellow,
// score 50. A non-positive retention falls back to DefaultRetention.
func NewManager(retention time.Duration) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{
		current: models.MarketState{
			Timestamp:      time.Now(),
			Status:         models.StatusYellow,
			SentimentScore: 50,
			MainDriver:     "Initialization",
			Summary:        "System starting up...",
		},
		retention: retention,
		now:       time.Now,
	}
}

// StatusForScore maps a sentiment score to its status classification.
// Pure: the classification depends on nothing but the score.
func StatusForScore(score float64) models.MarketStatus {
	switch {
	case score >= greenThreshold:
		return models.StatusGreen
	case score <= redThreshold:
		return models.StatusRed
	default:
		return models.StatusYellow
	}
}

// UpdateState folds this cycle's events into a new MarketState and makes
// it current. Called once per cycle; a cycle with no events keeps the
// score, driver, and summary unchanged. The returned state's score is
// always within [0, 100].
func (m *Manager) UpdateState(events []models.Event) models.MarketState {
	now := m.now()

	cutoff := now.Add(-m.retention)
	kept := m.recentEvents[:0]
	for _, e := range m.recentEvents {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	m.recentEvents = append(kept, events...)

	var delta float64
	for _, e := range events {
		delta += subtypeWeights[e.Subtype]
	}
	score := clamp(m.current.SentimentScore+delta, 0, 100)

	driver := m.current.MainDriver
	summary := m.current.Summary
	if len(events) > 0 {
		last := events[len(events)-1]
		driver = last.Description
		summary = fmt.Sprintf("Updated by %s", last.Subtype)
	}

	m.current = models.MarketState{
		Timestamp:      now,
		Status:         StatusForScore(score),
		SentimentScore: score,
		MainDriver:     driver,
		Summary:        summary,
	}
	return m.current
}

// Current returns the live state.
func (m *Manager) Current() models.MarketState {
	return m.current
}

// RecentEvents returns the events retained from the last 30 minutes of
// cycles, oldest first. Informational only; scoring never reads it.
func (m *Manager) RecentEvents() []models.Event {
	return m.recentEvents
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
