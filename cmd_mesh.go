package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/astei/anvilmesh/anvil"
	"github.com/astei/anvilmesh/gpu"
	"github.com/astei/anvilmesh/mesh"
	"github.com/astei/anvilmesh/terrain"
	"github.com/astei/anvilmesh/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func meshCommand() *cli.Command {
	return &cli.Command{
		Name:      "mesh",
		Usage:     "loads every chunk of a world and meshes it",
		ArgsUsage: "[world-dir]",
		Description: "Without a world directory the chunks come from the procedural generator, " +
			"using the generate seed and radius.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "archive uploads to this file"},
			&cli.StringFlag{Name: "format", Usage: "meshlet or flat"},
			&cli.IntFlag{Name: "workers", Usage: "load workers"},
			&cli.Int64Flag{Name: "seed", Usage: "generator seed when no world is given"},
			&cli.IntFlag{Name: "radius", Usage: "generator radius in chunks when no world is given"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address"},
		},
		Action: runMesh,
	}
}

type meshTotals struct {
	mu       sync.Mutex
	chunks   int
	empty    int
	meshlets int
	quads    int
	vertices int
	bytes    int
}

func (t *meshTotals) add(meshlets, quads, vertices, bytes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks++
	if quads == 0 {
		t.empty++
	}
	t.meshlets += meshlets
	t.quads += quads
	t.vertices += vertices
	t.bytes += bytes
}

func runMesh(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.log.Sync()
	cfg := e.cfg
	if c.IsSet("format") {
		cfg.Mesh.Format = c.String("format")
	}
	if c.IsSet("workers") {
		cfg.World.Workers = c.Int("workers")
	}
	if c.IsSet("seed") {
		cfg.Generate.Seed = c.Int64("seed")
	}
	if c.IsSet("radius") {
		cfg.Generate.Radius = c.Int("radius")
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, coords, err := openSource(c.Args().First(), cfg.Generate, e.log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, e.log)
		defer srv.Close()
	}

	w := world.New(src, world.Options{
		Workers:        cfg.World.Workers,
		Logger:         e.log.Named("world"),
		Registerer:     reg,
		PanicOnCorrupt: cfg.World.PanicOnCorrupt,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := w.Close(closeCtx); err != nil {
			e.log.Warn("closing world", zap.Error(err))
		}
	}()

	start := time.Now()
	for _, cc := range coords {
		w.Request(cc.X, cc.Z)
	}
	if err := w.WaitIdle(ctx); err != nil {
		return err
	}
	stats := w.Stats()
	e.log.Info("chunks loaded",
		zap.Int("requested", len(coords)),
		zap.Int("resident", stats.Resident),
		zap.Int("regions", stats.Regions),
		zap.Duration("took", time.Since(start)))

	dev, finish, err := openDevice(c.String("out"))
	if err != nil {
		return err
	}

	start = time.Now()
	var totals meshTotals
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Mesh.Concurrency)
	for _, ch := range w.Snapshot() {
		ch := ch
		g.Go(func() error {
			defer ch.Unref()
			if err := gctx.Err(); err != nil {
				return err
			}
			return meshChunk(w, ch, dev, cfg.Mesh.Format, &totals)
		})
	}
	err = g.Wait()
	if ferr := finish(); err == nil {
		err = ferr
	}
	if err != nil {
		return err
	}

	e.log.Info("chunks meshed",
		zap.String("format", cfg.Mesh.Format),
		zap.Int("chunks", totals.chunks),
		zap.Int("empty", totals.empty),
		zap.Int("meshlets", totals.meshlets),
		zap.Int("quads", totals.quads),
		zap.Int("vertices", totals.vertices),
		zap.Int("bytes", totals.bytes),
		zap.Duration("took", time.Since(start)))
	return nil
}

func meshChunk(w *world.World, ch *world.Chunk, dev gpu.Device, format string, totals *meshTotals) error {
	var buf gpu.Buffer
	var err error
	if format == "flat" {
		verts := w.Vertices(ch)
		buf, err = gpu.UploadVertices(dev, verts)
		totals.add(0, len(verts)/6, len(verts), len(verts)*mesh.VertexSize)
	} else {
		m := w.Mesh(ch)
		buf, err = gpu.UploadMesh(dev, m)
		totals.add(len(m.Meshlets), m.Quads, m.Vertices, len(m.Meshlets)*mesh.MeshletSize)
	}
	if err != nil {
		return fmt.Errorf("upload chunk %d,%d: %w", ch.X, ch.Z, err)
	}
	if buf != nil {
		return buf.Release()
	}
	return nil
}

// openSource picks the chunk source: the Anvil world in dir, or the generator when dir is empty.
func openSource(dir string, gen GenerateConfig, log *zap.Logger) (world.Source, []world.Coord, error) {
	if dir == "" {
		log.Info("meshing generated terrain", zap.Int64("seed", gen.Seed), zap.Int("radius", gen.Radius))
		return terrain.New(gen.Seed), square(gen.Radius), nil
	}
	aw, err := anvil.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	coords, err := aw.Chunks()
	if err != nil {
		return nil, nil, err
	}
	log.Info("opened world", zap.String("dir", dir), zap.Int("chunks", len(coords)))
	return aw, coords, nil
}

func square(radius int) []world.Coord {
	var out []world.Coord
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			out = append(out, world.Coord{X: x, Z: z})
		}
	}
	return out
}

// openDevice returns an archive device writing to path, or an in-memory device when path is
// empty. finish flushes and closes whatever was opened.
func openDevice(path string) (gpu.Device, func() error, error) {
	if path == "" {
		return gpu.NewMemoryDevice(), func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	dev, err := gpu.NewArchiveDevice(file)
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return dev, func() error {
		return errors.Join(dev.Close(), file.Close())
	}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}
