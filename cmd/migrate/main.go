// Command migrate applies or rolls back the database schema.
//
//	migrate [up|down]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"homesync/internal/config"
	"homesync/internal/logging"
	"homesync/internal/repositories"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [up|down]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	direction := "up"
	if flag.NArg() > 0 {
		direction = flag.Arg(0)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		slog.Error("logger", "err", err)
		os.Exit(1)
	}

	if err := repositories.Migrate(cfg.Database.DSN, direction); err != nil {
		logger.Error("migration failed", "direction", direction, "err", err)
		os.Exit(1)
	}
	logger.Info("migration complete", "direction", direction)
}
