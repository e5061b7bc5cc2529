package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-ingest/internal/config"
	"github.com/kozaktomas/photo-ingest/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gallery API server",
	Long: `Start the Photo Ingest web server. The API can trigger ingestion
runs, list stored images with label filtering, serve image content via
signed locators and refresh expiring locators.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	port := mustGetInt(cmd, "port")
	if env := os.Getenv("WEB_PORT"); env != "" && !cmd.Flags().Changed("port") {
		fmt.Sscanf(env, "%d", &port)
	}
	host := mustGetString(cmd, "host")
	if env := os.Getenv("WEB_HOST"); env != "" && !cmd.Flags().Changed("host") {
		host = env
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipe, blobStore, signer, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	server := web.NewServer(pipe, blobStore, signer, port, host, cfg.Pipeline.Concurrency)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
