package rules

import (
	"fmt"

	"github.com/quantpulse/marketpulse/internal/models"
)

// Detection thresholds. Fixed by design; these are rule constants, not
// fitted parameters, and deliberately not configurable.
const (
	volumeSpikeRatio    = 1.3
	volumeWindow        = 30
	limitDownThreshold  = 3
	bombRateThreshold   = 30.0
	withdrawalThreshold = -10_000_000
	themeLookback       = 15
	exhaustionThreshold = -2.0
)

// SentimentTurningUpRule fires when traded volume spikes above 1.3x the
// trailing average while the index is rising.
type SentimentTurningUpRule struct{}

func (SentimentTurningUpRule) Name() string { return "sentiment_turning_up" }

func (SentimentTurningUpRule) Evaluate(current models.Snapshot, history []models.Snapshot) *models.Event {
	if len(history) == 0 {
		return nil
	}

	window := history
	if len(window) > volumeWindow {
		window = window[len(window)-volumeWindow:]
	}
	var sum float64
	for _, s := range window {
		sum += s.Volume
	}
	avgVol := sum / float64(len(window))

	if avgVol <= 0 || current.Volume <= avgVol*volumeSpikeRatio || current.IndexChangePct <= 0 {
		return nil
	}
	return newEvent(
		models.SubtypeSentimentTurningUp,
		models.LevelMedium,
		map[string]any{
			"metric":     "volume_spike",
			"value":      current.Volume,
			"baseline":   avgVol,
			"change_pct": (current.Volume - avgVol) / avgVol,
		},
		"Market sentiment turning up: Volume spike with index rise.",
	)
}

// SentimentTurningDownRule fires on a falling index combined with
// widespread limit-downs and a high bomb rate.
type SentimentTurningDownRule struct{}

func (SentimentTurningDownRule) Name() string { return "sentiment_turning_down" }

func (SentimentTurningDownRule) Evaluate(current models.Snapshot, _ []models.Snapshot) *models.Event {
	if current.IndexChangePct >= 0 || current.LimitDownCount <= limitDownThreshold || current.BombRate <= bombRateThreshold {
		return nil
	}
	return newEvent(
		models.SubtypeSentimentTurningDown,
		models.LevelHigh,
		map[string]any{
			"metric":     "sentiment_drop",
			"limit_down": current.LimitDownCount,
			"bomb_rate":  current.BombRate,
		},
		"Market sentiment turning down: Limit downs increasing.",
	)
}

// FlowReversalRule fires when net cross-border flow turns positive right
// after a negative reading.
type FlowReversalRule struct{}

func (FlowReversalRule) Name() string { return "flow_reversal" }

func (FlowReversalRule) Evaluate(current models.Snapshot, history []models.Snapshot) *models.Event {
	if len(history) == 0 {
		return nil
	}
	prev := history[len(history)-1].NorthBoundFlow
	if current.NorthBoundFlow <= 0 || prev >= 0 {
		return nil
	}
	return newEvent(
		models.SubtypeFlowReversal,
		models.LevelMedium,
		map[string]any{
			"metric":   "flow_reversal",
			"current":  current.NorthBoundFlow,
			"previous": prev,
		},
		"Capital flow reversal: Northbound funds turning positive.",
	)
}

// FlowWithdrawalRule fires on a large net outflow in a single cycle.
type FlowWithdrawalRule struct{}

func (FlowWithdrawalRule) Name() string { return "flow_withdrawal" }

func (FlowWithdrawalRule) Evaluate(current models.Snapshot, _ []models.Snapshot) *models.Event {
	if current.NorthBoundFlow >= withdrawalThreshold {
		return nil
	}
	return newEvent(
		models.SubtypeFlowWithdrawal,
		models.LevelHigh,
		map[string]any{
			"metric": "rapid_outflow",
			"value":  current.NorthBoundFlow,
		},
		"Significant capital withdrawal detected.",
	)
}

// ThemeEmergenceRule fires when the leading sector differs from the leader
// 15 cycles back. Needs at least 15 history entries.
type ThemeEmergenceRule struct{}

func (ThemeEmergenceRule) Name() string { return "theme_emergence" }

func (ThemeEmergenceRule) Evaluate(current models.Snapshot, history []models.Snapshot) *models.Event {
	if len(history) < themeLookback {
		return nil
	}
	past := history[len(history)-themeLookback].TopSector
	if current.TopSector == past || current.TopSector == "" {
		return nil
	}
	return newEvent(
		models.SubtypeThemeEmergence,
		models.LevelMedium,
		map[string]any{
			"metric":     "new_leader",
			"sector":     current.TopSector,
			"old_leader": past,
		},
		fmt.Sprintf("New market theme emerging: %s.", current.TopSector),
	)
}

// ThemeExhaustionRule fires when the leading sector itself is dropping.
type ThemeExhaustionRule struct{}

func (ThemeExhaustionRule) Name() string { return "theme_exhaustion" }

func (ThemeExhaustionRule) Evaluate(current models.Snapshot, _ []models.Snapshot) *models.Event {
	if current.TopSectorChangePct >= exhaustionThreshold {
		return nil
	}
	return newEvent(
		models.SubtypeThemeExhaustion,
		models.LevelMedium,
		map[string]any{
			"metric": "sector_drop",
			"value":  current.TopSectorChangePct,
		},
		"Leading theme shows signs of exhaustion.",
	)
}
