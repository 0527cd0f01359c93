package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "anvilmesh",
		Usage: "streams Anvil worlds and turns their chunks into GPU-ready meshes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "TOML config file"},
			&cli.StringFlag{Name: "log-level", Usage: "overrides logging.level"},
			&cli.StringFlag{Name: "log-format", Usage: "overrides logging.format (console or json)"},
		},
		Commands: []*cli.Command{
			meshCommand(),
			generateCommand(),
			statsCommand(),
		},
	}
}

// env is what every command starts from: the merged config and a logger built from it.
type env struct {
	cfg *Config
	log *zap.Logger
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: logger}, nil
}
