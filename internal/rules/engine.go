// Package rules implements the anomaly detection engine: an ordered set of
// independent detectors evaluated once per cycle against the current
// snapshot and a bounded history window.
package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantpulse/marketpulse/internal/models"
)

// Rule inspects the current snapshot plus the history window (past
// snapshots only, oldest first) and reports at most one anomaly event.
// Rules hold no state between cycles and never fail: absent metrics are
// zero values and evaluate like any other reading.
type Rule interface {
	Name() string
	Evaluate(current models.Snapshot, history []models.Snapshot) *models.Event
}

// Engine evaluates a fixed, ordered list of rules. Registration order
// determines event order within a cycle; downstream consumers rely on it.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with the given rules, in order.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// DefaultEngine creates an engine with the six canonical detectors in
// their canonical order.
func DefaultEngine() *Engine {
	return NewEngine(
		SentimentTurningUpRule{},
		SentimentTurningDownRule{},
		FlowReversalRule{},
		FlowWithdrawalRule{},
		ThemeEmergenceRule{},
		ThemeExhaustionRule{},
	)
}

// Register appends a rule after the existing ones.
func (e *Engine) Register(r Rule) {
	e.rules = append(e.rules, r)
}

// Rules returns the registered rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// EvaluateAll runs every rule against the cycle inputs and collects the
// emitted events in registration order. History is read-only to the
// engine and excludes the current snapshot.
func (e *Engine) EvaluateAll(current models.Snapshot, history []models.Snapshot) []models.Event {
	var events []models.Event
	for _, rule := range e.rules {
		if event := rule.Evaluate(current, history); event != nil {
			events = append(events, *event)
		}
	}
	return events
}

// newEvent builds an anomaly event with a fresh id.
func newEvent(subtype models.EventSubtype, level models.EventLevel, data map[string]any, description string) *models.Event {
	id := uuid.New()
	return &models.Event{
		ID:          fmt.Sprintf("evt_%x", id[:4]),
		Timestamp:   time.Now(),
		Type:        models.EventTypeAnomalyDetection,
		Subtype:     subtype,
		Level:       level,
		Data:        data,
		Description: description,
	}
}
