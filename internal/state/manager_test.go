package state

import (
	"math/rand"
	"testing"
	"time"

	"github.com/quantpulse/marketpulse/internal/models"
)

func testEvent(subtype models.EventSubtype, level models.EventLevel, description string) models.Event {
	return models.Event{
		ID:          "evt_" + string(subtype)[:4],
		Timestamp:   time.Now(),
		Type:        models.EventTypeAnomalyDetection,
		Subtype:     subtype,
		Level:       level,
		Description: description,
	}
}

func TestStatusForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  models.MarketStatus
	}{
		{75, models.StatusGreen},
		{70, models.StatusGreen},
		{69, models.StatusYellow},
		{50, models.StatusYellow},
		{31, models.StatusYellow},
		{30, models.StatusRed},
		{0, models.StatusRed},
		{100, models.StatusGreen},
	}
	for _, tt := range tests {
		if got := StatusForScore(tt.score); got != tt.want {
			t.Errorf("StatusForScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestUpdateState_Weights(t *testing.T) {
	tests := []struct {
		subtype models.EventSubtype
		want    float64
	}{
		{models.SubtypeSentimentTurningUp, 60},
		{models.SubtypeFlowReversal, 55},
		{models.SubtypeThemeEmergence, 55},
		{models.SubtypeSentimentTurningDown, 40},
		{models.SubtypeFlowWithdrawal, 40},
		{models.SubtypeThemeExhaustion, 45},
	}
	for _, tt := range tests {
		t.Run(string(tt.subtype), func(t *testing.T) {
			m := NewManager(0)
			got := m.UpdateState([]models.Event{testEvent(tt.subtype, models.LevelMedium, "x")})
			if got.SentimentScore != tt.want {
				t.Errorf("score = %v, want %v", got.SentimentScore, tt.want)
			}
		})
	}
}

func TestUpdateState_UnknownSubtypeContributesZero(t *testing.T) {
	m := NewManager(0)
	e := testEvent("mystery_signal", models.LevelLow, "x")
	if got := m.UpdateState([]models.Event{e}); got.SentimentScore != 50 {
		t.Errorf("score = %v, want 50", got.SentimentScore)
	}
}

func TestUpdateState_ScoreAlwaysClamped(t *testing.T) {
	subtypes := []models.EventSubtype{
		models.SubtypeSentimentTurningUp,
		models.SubtypeSentimentTurningDown,
		models.SubtypeFlowReversal,
		models.SubtypeFlowWithdrawal,
		models.SubtypeThemeEmergence,
		models.SubtypeThemeExhaustion,
	}

	rng := rand.New(rand.NewSource(1))
	m := NewManager(0)
	for cycle := 0; cycle < 500; cycle++ {
		var events []models.Event
		for i := rng.Intn(4); i > 0; i-- {
			events = append(events, testEvent(subtypes[rng.Intn(len(subtypes))], models.LevelMedium, "x"))
		}
		got := m.UpdateState(events)
		if got.SentimentScore < 0 || got.SentimentScore > 100 {
			t.Fatalf("cycle %d: score %v out of [0,100]", cycle, got.SentimentScore)
		}
		if got.Status != StatusForScore(got.SentimentScore) {
			t.Fatalf("cycle %d: status %s inconsistent with score %v", cycle, got.Status, got.SentimentScore)
		}
	}
}

func TestUpdateState_SaturatesAtBounds(t *testing.T) {
	m := NewManager(0)
	down := testEvent(models.SubtypeSentimentTurningDown, models.LevelHigh, "down")
	for i := 0; i < 10; i++ {
		m.UpdateState([]models.Event{down})
	}
	if got := m.Current(); got.SentimentScore != 0 || got.Status != models.StatusRed {
		t.Errorf("after saturation: score=%v status=%s, want 0/red", got.SentimentScore, got.Status)
	}

	up := testEvent(models.SubtypeSentimentTurningUp, models.LevelMedium, "up")
	for i := 0; i < 20; i++ {
		m.UpdateState([]models.Event{up})
	}
	if got := m.Current(); got.SentimentScore != 100 || got.Status != models.StatusGreen {
		t.Errorf("after recovery: score=%v status=%s, want 100/green", got.SentimentScore, got.Status)
	}
}

func TestUpdateState_DriverFromLastEvent(t *testing.T) {
	m := NewManager(0)
	events := []models.Event{
		testEvent(models.SubtypeSentimentTurningDown, models.LevelHigh, "sentiment dropping"),
		testEvent(models.SubtypeThemeEmergence, models.LevelMedium, "new theme emerging"),
	}
	got := m.UpdateState(events)
	if got.MainDriver != "new theme emerging" {
		t.Errorf("driver = %q, want last event's description", got.MainDriver)
	}
	if got.Summary != "Updated by theme_emergence" {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestUpdateState_EmptyCycleCarriesForward(t *testing.T) {
	m := NewManager(0)
	m.UpdateState([]models.Event{testEvent(models.SubtypeFlowReversal, models.LevelMedium, "flow turned positive")})

	got := m.UpdateState(nil)
	if got.SentimentScore != 55 {
		t.Errorf("score = %v, want unchanged 55", got.SentimentScore)
	}
	if got.MainDriver != "flow turned positive" {
		t.Errorf("driver = %q, want carried forward", got.MainDriver)
	}
	if got.Summary != "Updated by flow_reversal" {
		t.Errorf("summary = %q, want carried forward", got.Summary)
	}
}

func TestUpdateState_InitialState(t *testing.T) {
	m := NewManager(0)
	got := m.Current()
	if got.Status != models.StatusYellow || got.SentimentScore != 50 {
		t.Errorf("initial state = %s/%v, want yellow/50", got.Status, got.SentimentScore)
	}
	if got.MainDriver != "Initialization" {
		t.Errorf("initial driver = %q", got.MainDriver)
	}
}

func TestUpdateState_ReturnsImmutableCopies(t *testing.T) {
	m := NewManager(0)
	before := m.UpdateState(nil)
	m.UpdateState([]models.Event{testEvent(models.SubtypeSentimentTurningUp, models.LevelMedium, "up")})
	if before.SentimentScore != 50 {
		t.Errorf("previously returned state mutated: score=%v", before.SentimentScore)
	}
}

func TestRecentEvents_PrunedByAge(t *testing.T) {
	m := NewManager(30 * time.Minute)

	base := time.Now()
	clock := base
	m.now = func() time.Time { return clock }

	old := testEvent(models.SubtypeFlowReversal, models.LevelMedium, "old")
	old.Timestamp = base
	m.UpdateState([]models.Event{old})

	// 31 minutes later the first event falls out of the window.
	clock = base.Add(31 * time.Minute)
	fresh := testEvent(models.SubtypeThemeEmergence, models.LevelMedium, "fresh")
	fresh.Timestamp = clock
	m.UpdateState([]models.Event{fresh})

	recent := m.RecentEvents()
	if len(recent) != 1 {
		t.Fatalf("got %d recent events, want 1", len(recent))
	}
	if recent[0].Description != "fresh" {
		t.Errorf("kept event = %q, want the fresh one", recent[0].Description)
	}
}
