package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/idilsaglam/tasks/internal/cli"
	"github.com/idilsaglam/tasks/internal/config"
	"github.com/idilsaglam/tasks/internal/kv"
	"github.com/idilsaglam/tasks/internal/logging"
	"github.com/idilsaglam/tasks/internal/store"
	"github.com/idilsaglam/tasks/internal/tui"
	"github.com/idilsaglam/tasks/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Root flags (apply to every subcommand)
	cfgFile := flag.String("config", "", "config file (TOML)")
	backend := flag.String("backend", "", "storage backend: file, sqlite or memory")
	path := flag.String("path", "", "storage location")
	level := flag.String("log-level", "", "debug, info, warn or error")
	group := flag.Bool("group", false, "group output by pending/done")
	theme := flag.String("theme", "", "classic, neon or mono")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		return cli.ExitUsage
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return cli.ExitError
	}
	if *backend != "" {
		cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(*backend))
		if *path == "" {
			cfg.Storage.Path = config.DefaultPath(cfg.Storage.Backend)
		}
	}
	if *path != "" {
		cfg.Storage.Path = *path
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	if *group {
		cfg.UI.Group = true
	}
	if *theme != "" {
		cfg.UI.Theme = *theme
	}
	ui.SetTheme(cfg.UI.Theme)

	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return cli.ExitUsage
	}

	storage, err := kv.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return cli.ExitError
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Warn("close storage", "err", err)
		}
	}()
	logger.Debug("storage ready", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)

	st := store.New(storage, store.WithKey(cfg.Storage.Key), store.WithLogger(logger))

	code := cli.Run(args, st, cli.Options{
		Group:       cfg.UI.Group,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Log:         logger,
		Interactive: tui.Run,
	})
	if code != cli.ExitOK {
		fmt.Fprintln(os.Stderr)
	}
	return code
}
