package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	log "log/slog"

	"scribe/internal/app"
	"scribe/internal/transcribe"
)

func main() {
	os.Exit(run())
}

func run() int {
	var f app.Flags
	fs := cli.NewFlagSet("scribe", cli.ContinueOnError)
	f.Register(fs)
	output := fs.StringP("output", "o", "", "Write the transcript to this file instead of stdout")
	appendOut := fs.BoolP("append", "a", false, "Append to the output file instead of overwriting it")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scribe [flags] <audio | gs://bucket/object>\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		return app.ExitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return app.ExitUsage
	}

	if err := app.InitLogger(os.Stderr, f.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return app.ExitUsage
	}

	cfg, err := f.Load(fs)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		return app.ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, transcribe.WithAppend(*appendOut), transcribe.WithProgress(app.LogProgress))
	if err != nil {
		log.Error("Failed to set up recognizer", "provider", cfg.Provider, "err", err)
		return app.ExitUsage
	}
	defer a.Close()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	audio := fs.Arg(0)
	if *output != "" {
		err = a.Client.TranscribeToFile(ctx, audio, *output)
		return app.ExitCode(err)
	}

	text, err := a.Client.TranscribeToText(ctx, audio)
	if err != nil {
		return app.ExitCode(err)
	}
	fmt.Println(text)
	return app.ExitOK
}
