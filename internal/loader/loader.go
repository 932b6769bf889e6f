// Package loader fetches tile images asynchronously. It issues at most one
// outstanding fetch per key and surfaces completions through a non-blocking
// Poll, so the frame-driving goroutine never waits on the network.
//
// Two backends implement the same contract: "worker" runs one persistent
// fetch goroutine fed by a request channel, "spawn" starts a goroutine per
// request and buffers completions behind a mutex. Both are selected by New.
package loader

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mapview/internal/metrics"
	"mapview/internal/tile"
)

// Result is the terminal outcome of one tile fetch. Err is nil on success,
// in which case Data holds the raw encoded image bytes.
type Result struct {
	Key  tile.Key
	Data []byte
	Err  error
}

// Loader is the four-operation tile fetch contract shared by both backends.
type Loader interface {
	// Request dispatches a fetch for key unless one is already pending.
	// The key is marked pending before any network activity starts. The
	// worker backend's request queue is bounded: if it is full, the
	// request is dropped and the key left unmarked, so the next frame the
	// tile is visible re-issues it.
	Request(key tile.Key)

	// Poll returns at most one completed result, never blocking. A terminal
	// result removes its key from the pending set exactly once.
	Poll() (Result, bool)

	// IsLoading reports whether key has an outstanding fetch.
	IsLoading(key tile.Key) bool

	// PendingCount returns the number of outstanding fetches.
	PendingCount() int

	// ClearPending forgets all pending bookkeeping. Fetches already in
	// flight are not aborted: their results still surface through Poll and
	// the orchestrator will cache them even if the tile is no longer
	// visible. That is deliberate best-effort prefetch amortization, not a
	// cancellation guarantee.
	ClearPending()

	// Close stops accepting work and releases backend resources.
	Close()
}

// Config carries the fetch parameters shared by both backends.
type Config struct {
	// URLTemplate is the tile source with {z}, {x} and {y} placeholders.
	URLTemplate string

	// UserAgent identifies this client to the tile source.
	UserAgent string

	// QueueSize bounds the worker backend's request and result channels.
	QueueSize int

	// MaxConcurrent caps simultaneous fetches in the spawn backend.
	MaxConcurrent int64
}

// New creates a loader backend by name.
func New(mode string, cfg Config, log *zap.Logger) (Loader, error) {
	switch mode {
	case "worker":
		log.Info("Using worker loader", zap.Int("queue_size", cfg.QueueSize))
		return newWorkerLoader(cfg, log), nil
	case "spawn":
		log.Info("Using spawn loader", zap.Int64("max_concurrent", cfg.MaxConcurrent))
		return newSpawnLoader(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown loader mode: %s (supported: worker, spawn)", mode)
	}
}

// newHTTPClient builds the fetch client. No timeout is set: a hung fetch
// leaves its key pending indefinitely, an accepted limitation of the
// no-retry design.
func newHTTPClient() *http.Client {
	return &http.Client{}
}

// fetchTile performs one HTTP GET for a tile and returns the body bytes.
// Any non-2xx status or transport error is a failure.
func fetchTile(client *http.Client, key tile.Key, urlTemplate, userAgent string, log *zap.Logger) ([]byte, error) {
	fetchID := uuid.New().String()
	url := key.URL(urlTemplate)
	start := time.Now()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		metrics.TilesFailed.Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.TilesFailed.Inc()
		return nil, fmt.Errorf("HTTP %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TilesFailed.Inc()
		return nil, err
	}

	duration := time.Since(start)
	metrics.TilesLoaded.Inc()
	metrics.FetchDuration.Observe(duration.Seconds())

	log.Debug("tile fetched",
		zap.String("fetch_id", fetchID),
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Int64("duration_ms", duration.Milliseconds()),
	)

	return data, nil
}
