// Package notify converts one cycle's anomaly events into at most one
// user notification, applying per-subtype throttling and severity-based
// formatting.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quantpulse/marketpulse/internal/models"
)

// DefaultThrottleWindow is the minimum gap before the same event subtype
// is surfaced again.
const DefaultThrottleWindow = 30 * time.Minute

const maxAlertLines = 3

// Notification titles per format tier.
const (
	titleAlert = "Critical Market Alert"
	titleCard  = "Market Signal Digest"
	titleFlash = "Market Flash"
)

// Service owns the per-subtype throttle map and the log of notifications
// it has emitted. One instance serves one pipeline; create fresh
// instances for independent pipelines or tests.
type Service struct {
	lastSent map[models.EventSubtype]time.Time
	sent     []models.Notification
	window   time.Duration

	now func() time.Time // overridable in tests
}

// NewService creates a service with an empty throttle map. A non-positive
// window falls back to DefaultThrottleWindow.
func NewService(window time.Duration) *Service {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	return &Service{
		lastSent: make(map[models.EventSubtype]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// Generate decides whether this cycle's events warrant a notification and
// returns zero or one. Admission through the throttle is immediate: once
// an event's subtype is admitted, later events of the same subtype are
// suppressed for the window, including later events in the same call.
func (s *Service) Generate(events []models.Event, state models.MarketState) []models.Notification {
	now := s.now()

	var admitted []models.Event
	for _, e := range events {
		last, seen := s.lastSent[e.Subtype]
		if seen && now.Sub(last) <= s.window {
			continue
		}
		admitted = append(admitted, e)
		s.lastSent[e.Subtype] = now
	}
	if len(admitted) == 0 {
		return nil
	}

	var high []models.Event
	for _, e := range admitted {
		if e.Level == models.LevelHigh {
			high = append(high, e)
		}
	}

	var n models.Notification
	switch {
	case len(high) > 0:
		// High severity escalates to a single alert; medium/low events
		// admitted this cycle stay consumed by the throttle.
		shown := high
		if len(shown) > maxAlertLines {
			shown = shown[:maxAlertLines]
		}
		lines := descriptions(shown)
		lines = append(lines, fmt.Sprintf("Market Status: %s", strings.ToUpper(string(state.Status))))
		n = s.newNotification(now, models.FormatAlert, titleAlert, lines, high)

	case len(admitted) >= 2:
		lines := descriptions(admitted[:2])
		lines = append(lines, fmt.Sprintf("Sentiment Score: %.1f", state.SentimentScore))
		n = s.newNotification(now, models.FormatCard, titleCard, lines, admitted)

	default:
		n = s.newNotification(now, models.FormatFlash, titleFlash, descriptions(admitted), admitted)
	}

	s.sent = append(s.sent, n)
	return []models.Notification{n}
}

// Sent returns every notification emitted so far, oldest first.
func (s *Service) Sent() []models.Notification {
	return s.sent
}

func (s *Service) newNotification(now time.Time, format models.NotificationFormat, title string, lines []string, related []models.Event) models.Notification {
	id := uuid.New()
	ids := make([]string, len(related))
	for i, e := range related {
		ids[i] = e.ID
	}
	return models.Notification{
		ID:            fmt.Sprintf("ntf_%x", id[:4]),
		Timestamp:     now,
		Format:        format,
		Title:         title,
		Lines:         lines,
		RelatedEvents: ids,
	}
}

func descriptions(events []models.Event) []string {
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.Description
	}
	return lines
}
