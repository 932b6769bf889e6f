package loader

import (
	"sync"

	"go.uber.org/zap"

	"mapview/internal/metrics"
	"mapview/internal/tile"
)

// workerLoader runs a single persistent goroutine that executes fetches
// sequentially from a request channel and publishes results to a result
// channel. The worker is the sole owner of the HTTP client; no lock is held
// across a network operation.
type workerLoader struct {
	mu      sync.Mutex
	pending map[tile.Key]struct{}
	closed  bool

	requests chan tile.Key
	results  chan Result
	done     chan struct{}

	cfg Config
	log *zap.Logger
}

var _ Loader = (*workerLoader)(nil)

func newWorkerLoader(cfg Config, log *zap.Logger) *workerLoader {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	l := &workerLoader{
		pending:  make(map[tile.Key]struct{}),
		requests: make(chan tile.Key, cfg.QueueSize),
		results:  make(chan Result, cfg.QueueSize),
		done:     make(chan struct{}),
		cfg:      cfg,
		log:      log,
	}

	go l.run()
	return l
}

func (l *workerLoader) run() {
	client := newHTTPClient()
	for key := range l.requests {
		data, err := fetchTile(client, key, l.cfg.URLTemplate, l.cfg.UserAgent, l.log)
		select {
		case l.results <- Result{Key: key, Data: data, Err: err}:
		case <-l.done:
			return
		}
	}
}

func (l *workerLoader) Request(key tile.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if _, ok := l.pending[key]; ok {
		return
	}

	// Mark pending before dispatch so a second caller cannot double-send.
	l.pending[key] = struct{}{}

	select {
	case l.requests <- key:
		metrics.TilesPending.Set(float64(len(l.pending)))
	default:
		// Queue full; forget the mark so a later frame retries.
		delete(l.pending, key)
		l.log.Warn("tile request queue full, dropping request",
			zap.Uint32("x", key.X), zap.Uint32("y", key.Y), zap.Uint8("z", key.Z))
	}
}

func (l *workerLoader) Poll() (Result, bool) {
	select {
	case res := <-l.results:
		l.mu.Lock()
		delete(l.pending, res.Key)
		metrics.TilesPending.Set(float64(len(l.pending)))
		l.mu.Unlock()
		return res, true
	default:
		return Result{}, false
	}
}

func (l *workerLoader) IsLoading(key tile.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.pending[key]
	return ok
}

func (l *workerLoader) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.pending)
}

func (l *workerLoader) ClearPending() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = make(map[tile.Key]struct{})
	metrics.TilesPending.Set(0)
}

func (l *workerLoader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
	close(l.requests)
}
