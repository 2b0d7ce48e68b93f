package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"coursecraft/internal/app"
	"coursecraft/internal/observability"
	"coursecraft/pkg/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "coursecraft",
	Short: "Generate narrated video courses from a topic",
	Long: `Coursecraft turns a topic into a structured course: an outline of chapters,
slides for every chapter, and narration audio for every slide, ready to be
rendered by a video player.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger()
	}
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// environment is what every command that talks to the pipeline needs.
type environment struct {
	cfg      *config.Config
	service  *app.Service
	shutdown observability.ShutdownFunc
}

func loadEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	shutdown, err := observability.Setup(ctx, observability.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, err
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	return &environment{cfg: cfg, service: service, shutdown: shutdown}, nil
}

func (e *environment) Close(ctx context.Context) {
	if err := e.service.Close(); err != nil {
		slog.Warn("Failed to close service", "error", err)
	}
	if err := e.shutdown(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("Failed to flush traces", "error", err)
	}
}
