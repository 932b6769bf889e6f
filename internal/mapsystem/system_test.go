package mapsystem

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"mapview/internal/camera"
	"mapview/internal/loader"
	"mapview/internal/raster"
	"mapview/internal/tile"
	"mapview/internal/tilecache"
)

// scriptedLoader satisfies loader.Loader without any networking; results
// are queued by the test.
type scriptedLoader struct {
	pending  map[tile.Key]struct{}
	queued   []loader.Result
	requests []tile.Key
}

func newScriptedLoader() *scriptedLoader {
	return &scriptedLoader{pending: make(map[tile.Key]struct{})}
}

func (l *scriptedLoader) Request(key tile.Key) {
	if _, ok := l.pending[key]; ok {
		return
	}
	l.pending[key] = struct{}{}
	l.requests = append(l.requests, key)
}

func (l *scriptedLoader) Poll() (loader.Result, bool) {
	if len(l.queued) == 0 {
		return loader.Result{}, false
	}
	res := l.queued[0]
	l.queued = l.queued[1:]
	delete(l.pending, res.Key)
	return res, true
}

func (l *scriptedLoader) IsLoading(key tile.Key) bool {
	_, ok := l.pending[key]
	return ok
}

func (l *scriptedLoader) PendingCount() int { return len(l.pending) }

func (l *scriptedLoader) ClearPending() { l.pending = make(map[tile.Key]struct{}) }

func (l *scriptedLoader) Close() {}

type fakeResource struct{ released bool }

func (r *fakeResource) Release() { r.released = true }

type fakeUploader struct {
	uploads int
	fail    bool
}

func (u *fakeUploader) Upload(img *raster.Image) (tilecache.Resource, error) {
	if u.fail {
		return nil, errors.New("device lost")
	}
	u.uploads++
	return &fakeResource{}, nil
}

type recordingRenderer struct {
	tiles []RenderTile
	cache *tilecache.Cache
}

func (r *recordingRenderer) Draw(tiles []RenderTile, cache *tilecache.Cache) {
	r.tiles = tiles
	r.cache = cache
}

func okDecode(data []byte) (*raster.Image, error) {
	if string(data) == "bad" {
		return nil, errors.New("corrupt image")
	}
	return &raster.Image{Width: 2, Height: 2, Data: make([]uint8, 16)}, nil
}

func newTestSystem() (*System, *scriptedLoader, *fakeUploader, *tilecache.Cache) {
	cam := camera.New(126.9780, 37.5665, 12.0, 800, 600)
	cache := tilecache.New(256, 64*1024*1024)
	ldr := newScriptedLoader()
	up := &fakeUploader{}
	sys := New(cam, cache, ldr, okDecode, up, zap.NewNop())
	return sys, ldr, up, cache
}

func TestUpdateRequestsMissingTiles(t *testing.T) {
	sys, ldr, _, _ := newTestSystem()

	sys.Update()

	visible := sys.Camera().VisibleTiles(1)
	if len(ldr.requests) != len(visible) {
		t.Errorf("requested %d tiles, want %d", len(ldr.requests), len(visible))
	}
	if len(sys.RenderList()) != 0 {
		t.Error("nothing is resident yet, render list should be empty")
	}

	// A second frame with everything still pending issues no duplicates.
	before := len(ldr.requests)
	sys.Update()
	if len(ldr.requests) != before {
		t.Error("pending tiles were re-requested")
	}
}

func TestUpdateAbsorbsCompletions(t *testing.T) {
	sys, ldr, up, cache := newTestSystem()

	sys.Update()
	key := ldr.requests[0]
	ldr.queued = append(ldr.queued, loader.Result{Key: key, Data: []byte("ok")})

	sys.Update()

	if !cache.Contains(key) {
		t.Fatal("completed tile not inserted into cache")
	}
	if up.uploads != 1 {
		t.Errorf("uploads = %d, want 1", up.uploads)
	}

	found := false
	for _, rt := range sys.RenderList() {
		if rt.Key == key {
			found = true
			if rt.Size != sys.Camera().TileScreenSize() {
				t.Errorf("render size = %v, want %v", rt.Size, sys.Camera().TileScreenSize())
			}
		}
	}
	if !found {
		t.Error("resident visible tile missing from render list")
	}
}

func TestDecodeFailureIsRetriedNextFrame(t *testing.T) {
	sys, ldr, up, cache := newTestSystem()

	sys.Update()
	key := ldr.requests[0]
	ldr.queued = append(ldr.queued, loader.Result{Key: key, Data: []byte("bad")})

	sys.Update()

	if cache.Contains(key) {
		t.Fatal("undecodable tile must not be cached")
	}
	if up.uploads != 0 {
		t.Error("nothing should have been uploaded")
	}

	// Requests are issued before the poll drain, so the re-request shows
	// up on the following frame.
	sys.Update()
	if !ldr.IsLoading(key) {
		t.Error("failed tile was not re-requested")
	}
}

func TestFetchFailureIsRetriedNextFrame(t *testing.T) {
	sys, ldr, _, cache := newTestSystem()

	sys.Update()
	key := ldr.requests[0]
	ldr.queued = append(ldr.queued, loader.Result{Key: key, Err: errors.New("HTTP 503")})

	sys.Update()

	if cache.Contains(key) {
		t.Fatal("failed tile must not be cached")
	}

	sys.Update()
	if !ldr.IsLoading(key) {
		t.Error("failed tile was not re-requested")
	}
}

func TestUploadFailureDropsTile(t *testing.T) {
	sys, ldr, up, cache := newTestSystem()
	up.fail = true

	sys.Update()
	key := ldr.requests[0]
	ldr.queued = append(ldr.queued, loader.Result{Key: key, Data: []byte("ok")})

	sys.Update()

	if cache.Contains(key) {
		t.Fatal("tile with failed upload must not be cached")
	}
}

func TestRenderHandsOffListAndCache(t *testing.T) {
	sys, ldr, _, cache := newTestSystem()

	sys.Update()
	for _, key := range ldr.requests {
		ldr.queued = append(ldr.queued, loader.Result{Key: key, Data: []byte("ok")})
	}
	sys.Update()

	r := &recordingRenderer{}
	sys.Render(r)

	if r.cache != cache {
		t.Error("renderer did not receive the cache")
	}
	if len(r.tiles) != len(sys.Camera().VisibleTiles(1)) {
		t.Errorf("renderer got %d tiles, want all %d visible",
			len(r.tiles), len(sys.Camera().VisibleTiles(1)))
	}
}

func TestOrphanedCompletionStillCached(t *testing.T) {
	sys, ldr, _, cache := newTestSystem()

	sys.Update()
	key := ldr.requests[0]
	ldr.ClearPending()
	ldr.queued = append(ldr.queued, loader.Result{Key: key, Data: []byte("ok")})

	sys.Update()

	// Best-effort prefetch amortization: the orphaned result is kept.
	if !cache.Contains(key) {
		t.Error("orphaned completion should still land in the cache")
	}
}
