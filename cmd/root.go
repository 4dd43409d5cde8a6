package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/maximbilan/hivecouncil/internal/config"
	"github.com/maximbilan/hivecouncil/internal/provider"
	"github.com/maximbilan/hivecouncil/internal/telemetry"
	"github.com/spf13/cobra"
)

const appName = "hivecouncil"

var (
	logLevelFlag string
	traceFlag    string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Ask several LLM backends the same question",
	Long: `hivecouncil talks to OpenAI, Anthropic, Google, Grok and a local Ollama
through one streaming interface. Backends are enabled by configuring their API keys.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error); overrides log_level")
	rootCmd.PersistentFlags().StringVar(&traceFlag, "trace", "", "trace exporter (none, stdout); overrides otel_exporter")
}

// app bundles the state shared by commands that talk to backends.
type app struct {
	cfg      *config.Config
	registry *provider.Registry
	shutdown func()
}

func (r *app) Close() {
	if r.shutdown != nil {
		r.shutdown()
	}
}

func bootstrap(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger, err := newLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	exporter := cfg.OTELExporter
	if traceFlag != "" {
		exporter = traceFlag
	}
	shutdown, err := telemetry.InitTracer(appName, exporter, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	registry, err := provider.NewRegistry(cfg, provider.WithRegistryLogger(logger))
	if err != nil {
		shutdown()
		return nil, err
	}

	return &app{cfg: cfg, registry: registry, shutdown: shutdown}, nil
}

// newLogger builds a text handler at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
