package loader

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"mapview/internal/metrics"
	"mapview/internal/tile"
)

// spawnLoader starts an independent goroutine per request, the shape a
// cooperative single-threaded host forces on the design. Completions are
// appended to a shared buffer whose mutex is held only for the append or
// pop, never across the network operation. A weighted semaphore caps how
// many fetches run at once; waiting happens inside the spawned goroutine so
// Request itself never blocks.
type spawnLoader struct {
	mu      sync.Mutex
	pending map[tile.Key]struct{}
	results []Result
	closed  bool

	sem    *semaphore.Weighted
	client *http.Client

	cfg Config
	log *zap.Logger
}

var _ Loader = (*spawnLoader)(nil)

func newSpawnLoader(cfg Config, log *zap.Logger) *spawnLoader {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 16
	}

	return &spawnLoader{
		pending: make(map[tile.Key]struct{}),
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		client:  newHTTPClient(),
		cfg:     cfg,
		log:     log,
	}
}

func (l *spawnLoader) Request(key tile.Key) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if _, ok := l.pending[key]; ok {
		l.mu.Unlock()
		return
	}
	l.pending[key] = struct{}{}
	metrics.TilesPending.Set(float64(len(l.pending)))
	l.mu.Unlock()

	go l.fetch(key)
}

func (l *spawnLoader) fetch(key tile.Key) {
	if err := l.sem.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer l.sem.Release(1)

	data, err := fetchTile(l.client, key, l.cfg.URLTemplate, l.cfg.UserAgent, l.log)

	l.mu.Lock()
	l.results = append(l.results, Result{Key: key, Data: data, Err: err})
	l.mu.Unlock()
}

func (l *spawnLoader) Poll() (Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.results) == 0 {
		return Result{}, false
	}

	// Pop from the front: results surface in arrival order.
	res := l.results[0]
	l.results = l.results[1:]

	delete(l.pending, res.Key)
	metrics.TilesPending.Set(float64(len(l.pending)))
	return res, true
}

func (l *spawnLoader) IsLoading(key tile.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.pending[key]
	return ok
}

func (l *spawnLoader) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.pending)
}

func (l *spawnLoader) ClearPending() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = make(map[tile.Key]struct{})
	metrics.TilesPending.Set(0)
}

func (l *spawnLoader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
}
