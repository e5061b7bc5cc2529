package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-ingest/internal/config"
	"github.com/kozaktomas/photo-ingest/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder-url-or-id]",
	Short: "Ingest all images from a Google Drive folder",
	Long: `Ingest downloads every image under a shared Google Drive folder
(nested folders included), compresses oversized images, analyzes them
with the configured vision provider and stores bytes plus metadata in
the local store.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int("concurrency", 0, "Number of parallel workers (0 = use PIPELINE_CONCURRENCY)")
	ingestCmd.Flags().Bool("verbose", false, "Print per-image degradation details")
}

func runIngest(cmd *cobra.Command, args []string) error {
	folderRef := args[0]
	cfg := config.Load()

	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Pipeline.Concurrency
	}
	verbose := mustGetBool(cmd, "verbose")

	// Cancel the run on Ctrl+C, in-flight items finish on their own
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipe, _, _, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := pipe.Run(ctx, folderRef, pipeline.Options{Concurrency: concurrency})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrInvalidFolder):
			return fmt.Errorf("invalid folder reference %q", folderRef)
		case errors.Is(err, pipeline.ErrNoImages):
			return fmt.Errorf("no images found in folder %q", folderRef)
		default:
			return err
		}
	}

	fmt.Printf("\nProcessed %d images\n", result.ProcessedCount)

	var degraded int
	for _, outcome := range result.Outcomes {
		if outcome.CompressDegraded || outcome.AnalyzeDegraded {
			degraded++
			if verbose {
				fmt.Fprintf(os.Stderr, "  degraded: %s (compress=%v analyze=%v)\n",
					outcome.Record.Metadata.OriginalName, outcome.CompressDegraded, outcome.AnalyzeDegraded)
			}
		}
	}
	if degraded > 0 {
		fmt.Printf("%d images stored with degraded content\n", degraded)
	}

	return nil
}
