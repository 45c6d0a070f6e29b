package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	log "log/slog"

	"scribe/internal/app"
	"scribe/internal/ipc"
)

func main() {
	var f app.Flags
	f.Register(cli.CommandLine)
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	cli.Parse()

	if err := app.InitLogger(os.Stdout, f.LogLevel); err != nil {
		log.Error("Bad log level", "err", err)
		os.Exit(app.ExitUsage)
	}

	log.Info("Booting up")

	cfg, err := f.Load(cli.CommandLine)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(app.ExitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Error("Failed to set up recognizer", "provider", cfg.Provider, "err", err)
		os.Exit(app.ExitUsage)
	}
	defer a.Close()

	log.Debug("Loaded recognizer", "provider", a.Recognizer.Name(), "base", a.Client.BaseDir())

	srv, err := ipc.StartServer(*socket, ipc.TranscribeHandler(a.Client, cfg.Timeout))
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")

	<-ctx.Done()
	log.Info("Shutting down")
	srv.Close()
}
