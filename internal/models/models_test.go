package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	valid := Event{
		ID:          "evt_a1b2c3d4",
		Timestamp:   time.Now(),
		Type:        EventTypeAnomalyDetection,
		Subtype:     SubtypeFlowReversal,
		Level:       LevelMedium,
		Data:        map[string]any{"current": 300000.0},
		Description: "Capital flow reversal: Northbound funds turning positive.",
	}

	tests := []struct {
		name    string
		mutate  func(e *Event)
		wantErr bool
	}{
		{"valid event", func(e *Event) {}, false},
		{"empty ID", func(e *Event) { e.ID = "" }, true},
		{"unknown type", func(e *Event) { e.Type = "telemetry" }, true},
		{"unknown subtype", func(e *Event) { e.Subtype = "volume_crash" }, true},
		{"unknown level", func(e *Event) { e.Level = "critical" }, true},
		{"empty description", func(e *Event) { e.Description = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Event.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventJSONRoundTrip(t *testing.T) {
	e := Event{
		ID:        "evt_deadbeef",
		Timestamp: time.Now().Truncate(time.Second),
		Type:      EventTypeAnomalyDetection,
		Subtype:   SubtypeSentimentTurningUp,
		Level:     LevelMedium,
		Data: map[string]any{
			"metric":   "volume_spike",
			"value":    1400000.0,
			"baseline": 1000000.0,
		},
		Description: "Market sentiment turning up: Volume spike with index rise.",
	}

	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Event
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.ID != e.ID || got.Type != e.Type || got.Subtype != e.Subtype || got.Level != e.Level {
		t.Errorf("identity fields lost: got %+v", got)
	}
	if !got.Timestamp.Equal(e.Timestamp) {
		t.Errorf("timestamp lost: got %v, want %v", got.Timestamp, e.Timestamp)
	}
	if got.Description != e.Description {
		t.Errorf("description lost: got %q", got.Description)
	}
	if got.Data["metric"] != "volume_spike" {
		t.Errorf("data payload lost: got %v", got.Data)
	}
}

func TestMarketStateJSONRoundTrip(t *testing.T) {
	s := MarketState{
		Timestamp:      time.Now().Truncate(time.Second),
		Status:         StatusGreen,
		SentimentScore: 75,
		MainDriver:     "Capital flow reversal: Northbound funds turning positive.",
		Summary:        "Updated by flow_reversal",
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got MarketState
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Status != s.Status || got.SentimentScore != s.SentimentScore {
		t.Errorf("score/status lost: got %+v", got)
	}
	if got.MainDriver != s.MainDriver || got.Summary != s.Summary {
		t.Errorf("driver/summary lost: got %+v", got)
	}
}

func TestNotificationJSONRoundTrip(t *testing.T) {
	n := Notification{
		ID:            "ntf_a1b2c3d4",
		Timestamp:     time.Now().Truncate(time.Second),
		Format:        FormatAlert,
		Title:         "Critical Market Alert",
		Lines:         []string{"Significant capital withdrawal detected.", "Market Status: RED"},
		RelatedEvents: []string{"evt_deadbeef"},
	}

	raw, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Notification
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Format != n.Format || got.Title != n.Title {
		t.Errorf("format/title lost: got %+v", got)
	}
	if len(got.Lines) != 2 || got.Lines[1] != "Market Status: RED" {
		t.Errorf("lines lost: got %v", got.Lines)
	}
	if len(got.RelatedEvents) != 1 || got.RelatedEvents[0] != "evt_deadbeef" {
		t.Errorf("related events lost: got %v", got.RelatedEvents)
	}
}
