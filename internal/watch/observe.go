// Package watch is a read-only client of the authorsim HTTP API. It polls a
// running simulation and reports on it until the run finishes.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Status mirrors GET /api/v1/status.
type Status struct {
	RunID      uuid.UUID `json:"run_id"`
	Year       uint64    `json:"year"`
	Generation int       `json:"generation"`
	Limit      int       `json:"limit"`
	Population int       `json:"population"`
	NextID     uint64    `json:"next_id"`
	Finished   bool      `json:"finished"`
	Running    bool      `json:"running"`
	Speed      float64   `json:"speed"`
	Ticks      uint64    `json:"ticks"`
}

// Stats mirrors GET /api/v1/stats.
type Stats struct {
	Population         int            `json:"population"`
	MeanPower          float64        `json:"mean_power"`
	MinPower           float64        `json:"min_power"`
	MaxPower           float64        `json:"max_power"`
	MeanTalent         float64        `json:"mean_talent"`
	MeanResponsiveness float64        `json:"mean_responsiveness"`
	Classes            map[string]int `json:"classes"`
}

// Snapshot is everything collected in one poll.
type Snapshot struct {
	Status Status
	Stats  Stats
}

// Summary renders the snapshot as one log-friendly line.
func (s Snapshot) Summary() string {
	return fmt.Sprintf("year %s, %s generation of %d, %s authors, power %.2f..%.2f (mean %.2f), %d gifted / %d critics",
		humanize.Comma(int64(s.Status.Year)),
		humanize.Ordinal(s.Status.Generation),
		s.Status.Limit,
		humanize.Comma(int64(s.Stats.Population)),
		s.Stats.MinPower, s.Stats.MaxPower, s.Stats.MeanPower,
		s.Stats.Classes["gifted"], s.Stats.Classes["critic"],
	)
}

// Observer fetches simulation state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches status and stats.
func (o *Observer) Observe(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := o.fetchJSON(ctx, "/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/stats", &snap.Stats); err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	return snap, nil
}

// Ready reports whether the status endpoint answers 200.
func (o *Observer) Ready(ctx context.Context) bool {
	var st Status
	return o.fetchJSON(ctx, "/api/v1/status", &st) == nil
}

// Watch polls every interval, logging each snapshot, until the run is
// finished or ctx is done. It returns the last snapshot seen.
func (o *Observer) Watch(ctx context.Context, interval time.Duration) (*Snapshot, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *Snapshot
	for {
		snap, err := o.Observe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			slog.Error("observation failed", "error", err)
		} else {
			last = snap
			slog.Info(snap.Summary(), "run", snap.Status.RunID, "running", snap.Status.Running)
			if snap.Status.Finished {
				return last, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
