package world

import (
	"sync"

	"go.uber.org/zap"
)

// Region groups the resident chunks of a 32x32 tile and owns the tile's backing data. It lives
// as long as it has users: resident chunks plus loads in flight for chunks inside it.
type Region struct {
	X, Z int

	once sync.Once
	src  RegionSource
	err  error

	// guarded by World.regionsMu
	users  int
	chunks map[Coord]*Chunk
}

func newRegion(rx, rz int) *Region {
	return &Region{
		X:      rx,
		Z:      rz,
		chunks: make(map[Coord]*Chunk),
	}
}

// open opens the backing data on first use. Concurrent loads in the same region wait on the
// first opener; none of them holds a World lock while doing so.
func (r *Region) open(s Source) (RegionSource, error) {
	r.once.Do(func() {
		r.src, r.err = s.OpenRegion(r.X, r.Z)
	})
	return r.src, r.err
}

func (r *Region) close(log *zap.Logger) {
	// wait out an opener that may still be running
	r.once.Do(func() {})
	if r.src == nil {
		return
	}
	if err := r.src.Close(); err != nil {
		log.Warn("closing region", zap.Int("rx", r.X), zap.Int("rz", r.Z), zap.Error(err))
	}
	r.src = nil
}

// pinRegion returns region (rx, rz), creating it if needed, with one more user.
func (w *World) pinRegion(rx, rz int) *Region {
	w.regionsMu.Lock()
	defer w.regionsMu.Unlock()

	key := Coord{rx, rz}
	r, ok := w.regions[key]
	if !ok {
		r = newRegion(rx, rz)
		w.regions[key] = r
		w.metrics.regions.Inc()
		w.log.Debug("region created", zap.Int("rx", rx), zap.Int("rz", rz))
	}
	r.users++
	return r
}

// unpinRegion drops a user taken by pinRegion.
func (w *World) unpinRegion(r *Region) {
	w.regionsMu.Lock()
	drained := w.dropUserLocked(r)
	w.regionsMu.Unlock()
	if drained {
		w.closeRegion(r)
	}
}

// attach records a resident chunk in its region. The chunk inherits the user pinned for its load.
// A chunk destroyed before it got here stays out of the region.
func (w *World) attach(c *Chunk) {
	w.regionsMu.Lock()
	defer w.regionsMu.Unlock()
	if c.dead {
		return
	}
	c.region.chunks[Coord{LocalCoord(c.X), LocalCoord(c.Z)}] = c
}

// destroy runs when the last reference to c is dropped.
func (w *World) destroy(c *Chunk) {
	w.metrics.chunks.Dec()

	w.regionsMu.Lock()
	c.dead = true
	r := c.region
	local := Coord{LocalCoord(c.X), LocalCoord(c.Z)}
	if r.chunks[local] == c {
		delete(r.chunks, local)
	}
	drained := w.dropUserLocked(r)
	w.regionsMu.Unlock()
	if drained {
		w.closeRegion(r)
	}
}

// dropUserLocked removes a user from r. It reports true when r lost its last user and was taken
// out of the table; the caller must then closeRegion it after unlocking.
func (w *World) dropUserLocked(r *Region) bool {
	r.users--
	if r.users > 0 {
		return false
	}
	delete(w.regions, Coord{r.X, r.Z})
	w.draining++
	w.metrics.regions.Dec()
	return true
}

func (w *World) closeRegion(r *Region) {
	r.close(w.log)
	w.log.Debug("region unloaded", zap.Int("rx", r.X), zap.Int("rz", r.Z))

	w.regionsMu.Lock()
	w.draining--
	w.regionsDrained.Broadcast()
	w.regionsMu.Unlock()
}

// RegionUsers reports the user count of region (rx, rz) and whether it is loaded.
func (w *World) RegionUsers(rx, rz int) (int, bool) {
	w.regionsMu.Lock()
	defer w.regionsMu.Unlock()
	r, ok := w.regions[Coord{rx, rz}]
	if !ok {
		return 0, false
	}
	return r.users, true
}

// RegionChunks reports how many chunks of region (rx, rz) are alive.
func (w *World) RegionChunks(rx, rz int) int {
	w.regionsMu.Lock()
	defer w.regionsMu.Unlock()
	r, ok := w.regions[Coord{rx, rz}]
	if !ok {
		return 0
	}
	return len(r.chunks)
}
