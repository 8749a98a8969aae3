// Package provider supplies market snapshots to the driving loop. The
// detection pipeline never fetches data itself; a Provider is the external
// collaborator that does.
package provider

import (
	"context"
	"math/rand"
	"time"

	"github.com/quantpulse/marketpulse/internal/models"
)

// Provider returns the latest market snapshot, one per polling cycle.
type Provider interface {
	LatestSnapshot(ctx context.Context) (models.Snapshot, error)
}

var mockSectors = []string{"Semiconductor", "Banking", "Liquor", "New Energy", "Medicine"}

// Mock generates random-walk market data for simulation and testing. A
// slow-moving trend in [-1, 1] drives the index, flows, limit-downs, and
// bomb rate so the generated regimes look coherent.
type Mock struct {
	baseVolume float64
	trend      float64
	rng        *rand.Rand
}

// NewMock creates a mock provider. A zero seed derives one from the clock.
func NewMock(seed int64) *Mock {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Mock{
		baseVolume: 1_000_000,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// LatestSnapshot returns the next simulated reading. It never fails.
func (m *Mock) LatestSnapshot(_ context.Context) (models.Snapshot, error) {
	m.trend += m.rng.Float64()*0.2 - 0.1
	if m.trend > 1 {
		m.trend = 1
	}
	if m.trend < -1 {
		m.trend = -1
	}

	limitDown := int(5 - m.trend*5)
	limitDown += m.rng.Intn(4) - 1
	if limitDown < 0 {
		limitDown = 0
	}

	bombRate := 20 - m.trend*10 + (m.rng.Float64()*10 - 5)
	if bombRate < 0 {
		bombRate = 0
	}
	if bombRate > 100 {
		bombRate = 100
	}

	return models.Snapshot{
		Timestamp:          time.Now(),
		Volume:             m.baseVolume * (1 + m.rng.Float64()*0.7 - 0.2),
		IndexChangePct:     m.trend + (m.rng.Float64()*0.4 - 0.2),
		NorthBoundFlow:     (m.rng.Float64()*20_000_000 - 10_000_000) + m.trend*5_000_000,
		LimitDownCount:     limitDown,
		BombRate:           bombRate,
		TopSector:          mockSectors[m.rng.Intn(len(mockSectors))],
		TopSectorChangePct: m.trend*2 + (m.rng.Float64() - 0.5),
	}, nil
}
