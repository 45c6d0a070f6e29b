package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	log "log/slog"

	"scribe/internal/app"
	"scribe/internal/shard"
)

func main() {
	var f app.Flags
	f.Register(cli.CommandLine)
	url := cli.StringP("url", "u", "ws://localhost:8092/ws", "Url of hub")
	name := cli.StringP("name", "n", shard.DefaultName, "Shard name on the bus")
	reconn := cli.Duration("reconnect", 5*time.Second, "Reconnect interval, 0 to exit when the bus closes")
	cli.Parse()

	if err := app.InitLogger(os.Stdout, f.LogLevel); err != nil {
		log.Error("Bad log level", "err", err)
		os.Exit(app.ExitUsage)
	}

	log.Info("Starting scribe shard")

	cfg, err := f.Load(cli.CommandLine)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(app.ExitUsage)
	}
	if u := os.Getenv("BUS_URL"); u != "" && !cli.CommandLine.Changed("url") {
		*url = u
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Error("Failed to set up recognizer", "provider", cfg.Provider, "err", err)
		os.Exit(app.ExitUsage)
	}
	defer a.Close()

	bus, err := shard.Dial(ctx, *url)
	if err != nil {
		log.Error("failed to connect to bus", "url", *url, "error", err)
		os.Exit(1)
	}

	err = shard.New(bus, a.Client, shard.Config{
		Name:      *name,
		Reconnect: *reconn,
		Timeout:   cfg.Timeout,
	}).Run(ctx)
	if err != nil {
		log.Error("Shard stopped", "err", err)
		os.Exit(1)
	}
}
