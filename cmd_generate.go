package main

import (
	"fmt"
	"os"
	"time"

	"github.com/astei/anvilmesh/anvil"
	"github.com/astei/anvilmesh/terrain"
	"github.com/astei/anvilmesh/voxel"
	"github.com/astei/anvilmesh/world"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "writes procedural terrain as Anvil region files",
		ArgsUsage: "<out-dir>",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "seed", Usage: "generator seed"},
			&cli.IntFlag{Name: "radius", Usage: "chunks around the origin"},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("generate needs exactly one output directory", 2)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.log.Sync()
	gen := e.cfg.Generate
	if c.IsSet("seed") {
		gen.Seed = c.Int64("seed")
	}
	if c.IsSet("radius") {
		gen.Radius = c.Int("radius")
	}
	if gen.Radius < 0 {
		return fmt.Errorf("radius must not be negative, got %d", gen.Radius)
	}

	dir := c.Args().First()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	byRegion := make(map[world.Coord][]world.Coord)
	for _, cc := range square(gen.Radius) {
		rc := world.Coord{X: world.RegionCoord(cc.X), Z: world.RegionCoord(cc.Z)}
		byRegion[rc] = append(byRegion[rc], cc)
	}

	start := time.Now()
	g := terrain.New(gen.Seed)
	var eg errgroup.Group
	eg.SetLimit(e.cfg.World.Workers)
	for rc, chunks := range byRegion {
		rc, chunks := rc, chunks
		eg.Go(func() error {
			w := anvil.NewWriter()
			for _, cc := range chunks {
				grid := voxel.NewGrid()
				g.Fill(cc.X, cc.Z, grid)
				if err := w.SetGrid(cc.X, cc.Z, grid); err != nil {
					return fmt.Errorf("chunk %d,%d: %w", cc.X, cc.Z, err)
				}
			}
			if err := w.WriteFile(dir, rc.X, rc.Z); err != nil {
				return err
			}
			e.log.Debug("region written", zap.Int("rx", rc.X), zap.Int("rz", rc.Z), zap.Int("chunks", w.Len()))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	e.log.Info("world generated",
		zap.String("dir", dir),
		zap.Int64("seed", gen.Seed),
		zap.Int("regions", len(byRegion)),
		zap.Int("chunks", (2*gen.Radius+1)*(2*gen.Radius+1)),
		zap.Duration("took", time.Since(start)))
	return nil
}
