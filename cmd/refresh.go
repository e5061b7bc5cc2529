package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-ingest/internal/config"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Regenerate the time-limited locators of all stored images",
	Long: `Refresh rewrites every metadata record with a freshly signed image
locator. Labels and faces are untouched. Run it before locators expire,
for example from a weekly cron job.`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().Int("concurrency", 8, "Number of parallel locator rewrites")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	blobStore, _, err := buildStore(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	records, err := blobStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}

	var group errgroup.Group
	group.SetLimit(mustGetInt(cmd, "concurrency"))

	failed := make(chan string, len(records))
	for _, record := range records {
		group.Go(func() error {
			if _, err := blobStore.RefreshLocator(ctx, record.ID); err != nil {
				log.Printf("Warning: failed to refresh %s: %v", record.ID, err)
				failed <- record.ID
			}
			return nil
		})
	}
	group.Wait()
	close(failed)

	fmt.Printf("Refreshed %d of %d locators\n", len(records)-len(failed), len(records))
	if len(failed) > 0 {
		return fmt.Errorf("%d locators could not be refreshed", len(failed))
	}

	return nil
}
