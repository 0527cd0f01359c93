package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/astei/anvilmesh/anvil"
	"github.com/urfave/cli/v2"
)

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "lists the region files of a world and how many chunks each stores",
		ArgsUsage: "<world-dir>",
		Action:    runStats,
	}
}

func runStats(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("stats needs exactly one world directory", 2)
	}
	aw, err := anvil.Open(c.Args().First())
	if err != nil {
		return err
	}
	regions, err := aw.Regions()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tFILE\tCHUNKS")
	total := 0
	for _, rc := range regions {
		rs, err := aw.OpenRegion(rc.X, rc.Z)
		if err != nil {
			return err
		}
		r, ok := rs.(*anvil.Region)
		if !ok {
			continue
		}
		n := r.Reader().Count()
		total += n
		fmt.Fprintf(tw, "%d,%d\t%s\t%d\n", rc.X, rc.Z, anvil.RegionFileName(rc.X, rc.Z), n)
		if err := r.Close(); err != nil {
			return err
		}
	}
	fmt.Fprintf(tw, "total\t%d regions\t%d\n", len(regions), total)
	return tw.Flush()
}
