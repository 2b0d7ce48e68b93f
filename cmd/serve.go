package cmd

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"coursecraft/internal/api"
	"coursecraft/internal/app"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the course API. Course creation returns as soon as the outline is
saved; chapter content is generated in the background.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close(ctx)

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	pipeline := app.NewPipeline(env.service, app.PipelineOptionsFromConfig(env.service))

	publicDir := ""
	if env.cfg.Storage.Provider == "local" {
		publicDir = env.cfg.Storage.PublicDir
	}
	router := api.NewRouter(env.service.Store(), pipeline, api.Options{
		CORSOrigins: env.cfg.Server.CORSOrigins,
		PublicDir:   publicDir,
		DefaultFPS:  env.cfg.Content.FPS,
		Tracing:     env.cfg.Tracing.Enabled,
		ServiceName: env.cfg.Tracing.ServiceName,
	})

	port := env.cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	err = api.NewServer(port, router).Run(ctx)

	slog.Info("Waiting for background chapter generation...")
	pipeline.Wait()
	return err
}
