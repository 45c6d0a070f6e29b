package app

import (
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"time"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	"scribe/internal/config"
	"scribe/internal/transcribe"
)

// Exit codes shared by the binaries.
const (
	ExitOK = iota
	ExitNoMatch
	ExitServiceError
	ExitIOError
	ExitUsage
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Flags are the command line overrides common to every binary.
type Flags struct {
	EnvFile     string
	LogLevel    string
	Provider    string
	Language    string
	BaseDir     string
	Proxy       string
	Retries     int
	Timeout     time.Duration
	SkipSilence bool
}

func (f *Flags) Register(fs *cli.FlagSet) {
	fs.StringVarP(&f.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&f.LogLevel, "log", "l", "info", "Log level (debug|info|warn|error)")
	fs.StringVarP(&f.Provider, "provider", "P", "", "Recognizer (google|openai|whisper)")
	fs.StringVarP(&f.Language, "lang", "L", "", "Recognition language, e.g. en-US")
	fs.StringVarP(&f.BaseDir, "base-dir", "b", "", "Directory relative paths are resolved against (default: executable's directory)")
	fs.StringVarP(&f.Proxy, "proxy", "p", "", "Socks Proxy Address")
	fs.IntVarP(&f.Retries, "retries", "r", 0, "Extra attempts after a failed service request")
	fs.DurationVarP(&f.Timeout, "timeout", "t", 0, "Per transcription timeout")
	fs.BoolVar(&f.SkipSilence, "skip-silence", false, "Report silent recordings as no match without calling the service")
}

// Apply copies the flags that were set explicitly over cfg.
func (f *Flags) Apply(fs *cli.FlagSet, cfg *config.Config) {
	if fs.Changed("provider") {
		cfg.Provider = f.Provider
	}
	if fs.Changed("lang") {
		cfg.Language = f.Language
	}
	if fs.Changed("base-dir") {
		cfg.BaseDir = f.BaseDir
	}
	if fs.Changed("proxy") {
		cfg.ProxyAddr = f.Proxy
	}
	if fs.Changed("retries") {
		cfg.Retries = f.Retries
	}
	if fs.Changed("timeout") {
		cfg.Timeout = f.Timeout
	}
	if fs.Changed("skip-silence") {
		cfg.SkipSilence = f.SkipSilence
	}
}

// Load reads the env file named by the flags and applies the overrides.
func (f *Flags) Load(fs *cli.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(f.EnvFile)
	if err != nil {
		return nil, err
	}
	f.Apply(fs, cfg)
	return cfg, nil
}

// InitLogger installs a tint handler at the named level as the default logger.
func InitLogger(w io.Writer, level string) error {
	lvl, ok := logLevelMap[level]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	log.SetDefault(log.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
	})))
	return nil
}

// ExitCode maps a transcription error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, transcribe.ErrNoMatch):
		return ExitNoMatch
	case errors.Is(err, transcribe.ErrIO):
		return ExitIOError
	}
	return ExitServiceError
}
