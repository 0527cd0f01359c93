package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/astei/anvilmesh/mesh"
	"github.com/astei/anvilmesh/pool"
	"github.com/astei/anvilmesh/voxel"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("world: closed")

// State is the lifecycle state of a chunk coordinate as seen by the handle table.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateResident
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateResident:
		return "resident"
	default:
		return "unloaded"
	}
}

type Options struct {
	// Workers sizes the load pool; values below one mean one worker.
	Workers int
	Catalog *voxel.Catalog
	Logger  *zap.Logger
	// Registerer receives the world's metrics when set.
	Registerer prometheus.Registerer
	// PanicOnCorrupt aborts the process when a chunk fails to decode with voxel.ErrCorrupt.
	// Otherwise the load fails like any other and the chunk is never resident.
	PanicOnCorrupt bool
}

// handle tracks a requested chunk. chunk is nil while the load is in flight.
type handle struct {
	chunk *Chunk
}

// World keeps the requested chunks of a Source resident and meshes them on demand.
type World struct {
	src     Source
	opts    Options
	log     *zap.Logger
	mesher  *mesh.Mesher
	pool    *pool.Pool
	metrics *metrics

	regionsMu      sync.Mutex
	regionsDrained *sync.Cond
	regions        map[Coord]*Region
	// regions taken out of the table whose source is still being closed
	draining int

	handlesMu sync.Mutex
	idle      *sync.Cond
	handles   map[Coord]*handle
	loading   int
	closing   bool
	closed    bool
}

func New(src Source, opts Options) *World {
	if opts.Catalog == nil {
		opts.Catalog = voxel.DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	w := &World{
		src:     src,
		opts:    opts,
		log:     opts.Logger,
		mesher:  mesh.NewMesher(opts.Catalog),
		pool:    pool.New(opts.Workers),
		regions: make(map[Coord]*Region),
		handles: make(map[Coord]*handle),
	}
	w.regionsDrained = sync.NewCond(&w.regionsMu)
	w.idle = sync.NewCond(&w.handlesMu)
	w.metrics = newMetrics(opts.Registerer, w.pool)
	return w
}

func (w *World) Mesher() *mesh.Mesher {
	return w.mesher
}

// Request makes chunk (cx, cz) resident in the background. It reports false when the chunk is
// already loading or resident, or when the world is closing.
func (w *World) Request(cx, cz int) bool {
	key := Coord{cx, cz}
	w.handlesMu.Lock()
	if w.closing {
		w.handlesMu.Unlock()
		return false
	}
	if _, ok := w.handles[key]; ok {
		w.handlesMu.Unlock()
		return false
	}
	h := &handle{}
	w.handles[key] = h
	w.loading++
	w.handlesMu.Unlock()

	w.metrics.requests.Inc()
	if err := w.pool.Schedule(func() { w.load(key, h) }); err != nil {
		w.finish(key, h, nil)
		return false
	}
	return true
}

func (w *World) load(key Coord, h *handle) {
	start := time.Now()
	c, err := w.decode(key)
	w.metrics.decode.Observe(time.Since(start).Seconds())
	if err != nil {
		w.metrics.loads.WithLabelValues("error").Inc()
		w.log.Error("chunk load failed", zap.Int("cx", key.X), zap.Int("cz", key.Z), zap.Error(err))
		w.finish(key, h, nil)
		if w.opts.PanicOnCorrupt && errors.Is(err, voxel.ErrCorrupt) {
			panic(err)
		}
		return
	}
	w.metrics.loads.WithLabelValues("ok").Inc()
	w.log.Debug("chunk loaded", zap.Int("cx", key.X), zap.Int("cz", key.Z), zap.Int("sections", c.grid.SectionCount()))
	w.finish(key, h, c)
}

// decode builds the chunk at key without holding any World lock during I/O.
func (w *World) decode(key Coord) (*Chunk, error) {
	r := w.pinRegion(RegionCoord(key.X), RegionCoord(key.Z))
	src, err := r.open(w.src)
	if err != nil {
		w.unpinRegion(r)
		return nil, fmt.Errorf("open region %d,%d: %w", r.X, r.Z, err)
	}

	c := newChunk(w, r, key.X, key.Z)
	if src != nil {
		if err := src.LoadChunk(LocalCoord(key.X), LocalCoord(key.Z), c.grid); err != nil {
			w.unpinRegion(r)
			return nil, fmt.Errorf("chunk %d,%d: %w", key.X, key.Z, err)
		}
	}
	w.metrics.chunks.Inc()
	return c, nil
}

// finish installs c into h, or discards it when h was released while the load was in flight.
// Only an installed chunk is recorded in its region, so a straggler never takes the slot of a
// newer load of the same coordinate.
func (w *World) finish(key Coord, h *handle, c *Chunk) {
	w.handlesMu.Lock()
	current := w.handles[key] == h
	switch {
	case current && c != nil:
		h.chunk = c
	case current:
		delete(w.handles, key)
	}
	w.handlesMu.Unlock()

	if c != nil {
		if current {
			w.attach(c)
		} else {
			c.Unref()
		}
	}

	w.handlesMu.Lock()
	w.loading--
	w.idle.Broadcast()
	w.handlesMu.Unlock()
}

// Release drops the world's hold on c. The chunk is destroyed once every other reference is
// dropped too.
func (w *World) Release(c *Chunk) {
	key := Coord{c.X, c.Z}
	w.handlesMu.Lock()
	h, ok := w.handles[key]
	if !ok || h.chunk != c {
		w.handlesMu.Unlock()
		return
	}
	delete(w.handles, key)
	w.handlesMu.Unlock()
	c.Unref()
}

// Unload drops the handle of (cx, cz) whatever its state. A load in flight still completes and
// then discards its chunk.
func (w *World) Unload(cx, cz int) {
	key := Coord{cx, cz}
	w.handlesMu.Lock()
	h, ok := w.handles[key]
	if ok {
		delete(w.handles, key)
	}
	w.handlesMu.Unlock()
	if ok && h.chunk != nil {
		h.chunk.Unref()
	}
}

// Resident returns chunk (cx, cz) if it is resident, with a reference the caller must Unref.
// It never waits for a load in flight.
func (w *World) Resident(cx, cz int) *Chunk {
	w.handlesMu.Lock()
	defer w.handlesMu.Unlock()
	h, ok := w.handles[Coord{cx, cz}]
	if !ok || h.chunk == nil {
		return nil
	}
	return h.chunk.Ref()
}

// Snapshot returns every resident chunk, each with a reference the caller must Unref.
func (w *World) Snapshot() []*Chunk {
	w.handlesMu.Lock()
	defer w.handlesMu.Unlock()
	out := make([]*Chunk, 0, len(w.handles))
	for _, h := range w.handles {
		if h.chunk != nil {
			out = append(out, h.chunk.Ref())
		}
	}
	return out
}

func (w *World) State(cx, cz int) State {
	w.handlesMu.Lock()
	defer w.handlesMu.Unlock()
	h, ok := w.handles[Coord{cx, cz}]
	switch {
	case !ok:
		return StateUnloaded
	case h.chunk == nil:
		return StateLoading
	}
	return StateResident
}

// WaitIdle blocks until no load is in flight or ctx is done.
func (w *World) WaitIdle(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		w.handlesMu.Lock()
		w.idle.Broadcast()
		w.handlesMu.Unlock()
	})
	defer stop()

	w.handlesMu.Lock()
	defer w.handlesMu.Unlock()
	for w.loading > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.idle.Wait()
	}
	return nil
}

type Stats struct {
	Regions  int
	Handles  int
	Loading  int
	Queued   int
	Resident int
}

func (w *World) Stats() Stats {
	var s Stats
	w.handlesMu.Lock()
	s.Handles = len(w.handles)
	s.Loading = w.loading
	for _, h := range w.handles {
		if h.chunk != nil {
			s.Resident++
		}
	}
	w.handlesMu.Unlock()

	w.regionsMu.Lock()
	s.Regions = len(w.regions)
	w.regionsMu.Unlock()
	s.Queued = w.pool.Len()
	return s
}

// Close releases every chunk, waits for background loads to finish and for all regions to
// drain, then closes the source. Chunks still referenced elsewhere keep their regions alive; if
// ctx ends first, Close gives up and leaves the source open, and a later Close resumes the wait.
func (w *World) Close(ctx context.Context) error {
	w.handlesMu.Lock()
	if w.closed {
		w.handlesMu.Unlock()
		return ErrClosed
	}
	w.closing = true
	var held []*Chunk
	for key, h := range w.handles {
		if h.chunk != nil {
			held = append(held, h.chunk)
		}
		delete(w.handles, key)
	}
	w.handlesMu.Unlock()

	for _, c := range held {
		c.Unref()
	}
	w.pool.Close()

	stop := context.AfterFunc(ctx, func() {
		w.regionsMu.Lock()
		w.regionsDrained.Broadcast()
		w.regionsMu.Unlock()
	})
	defer stop()

	w.regionsMu.Lock()
	if n := len(w.regions); n > 0 {
		w.log.Info("waiting for regions to drain", zap.Int("regions", n))
	}
	for (len(w.regions) > 0 || w.draining > 0) && ctx.Err() == nil {
		w.regionsDrained.Wait()
	}
	remaining := len(w.regions) + w.draining
	w.regionsMu.Unlock()

	if remaining > 0 {
		return fmt.Errorf("world: %d regions still in use: %w", remaining, ctx.Err())
	}

	w.handlesMu.Lock()
	if w.closed {
		w.handlesMu.Unlock()
		return ErrClosed
	}
	w.closed = true
	w.handlesMu.Unlock()
	return w.src.Close()
}
