package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quantpulse/marketpulse/internal/models"
)

// HTTP fetches snapshots from a JSON endpoint.
type HTTP struct {
	snapshotURL    string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// snapshotPayload is the wire form of a snapshot. The timestamp travels
// as Unix seconds; everything else maps straight onto the model.
type snapshotPayload struct {
	Timestamp          float64 `json:"timestamp"`
	Volume             float64 `json:"volume"`
	IndexChangePct     float64 `json:"index_change_pct"`
	NorthBoundFlow     float64 `json:"north_bound_flow"`
	LimitDownCount     int     `json:"limit_down_count"`
	BombRate           float64 `json:"bomb_rate"`
	TopSector          string  `json:"top_sector"`
	TopSectorChangePct float64 `json:"top_sector_change_pct"`
}

// NewHTTP creates an HTTP snapshot provider.
func NewHTTP(snapshotURL string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *HTTP {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &HTTP{
		snapshotURL: snapshotURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// LatestSnapshot fetches and decodes the current snapshot.
func (c *HTTP) LatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	resp, err := c.doRequest(ctx, c.snapshotURL)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	var payload snapshotPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	snapshot := models.Snapshot{
		Timestamp:          time.Unix(int64(payload.Timestamp), 0),
		Volume:             payload.Volume,
		IndexChangePct:     payload.IndexChangePct,
		NorthBoundFlow:     payload.NorthBoundFlow,
		LimitDownCount:     payload.LimitDownCount,
		BombRate:           payload.BombRate,
		TopSector:          payload.TopSector,
		TopSectorChangePct: payload.TopSectorChangePct,
	}
	if payload.Timestamp == 0 {
		snapshot.Timestamp = time.Now()
	}
	return snapshot, nil
}

// doRequest performs an HTTP GET with linear-backoff retry on transport
// failures and 5xx responses.
func (c *HTTP) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
