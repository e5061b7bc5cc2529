package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-ingest/internal/compressor"
	"github.com/kozaktomas/photo-ingest/internal/config"
	"github.com/kozaktomas/photo-ingest/internal/gallery"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List stored images and their labels",
	RunE:  runImages,
}

func init() {
	rootCmd.AddCommand(imagesCmd)

	imagesCmd.Flags().String("label", "", "Only show images carrying this label")
	imagesCmd.Flags().Bool("faces", false, "Show face attributes per image")
}

func runImages(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	blobStore, _, err := buildStore(cfg)
	if err != nil {
		return err
	}

	records, err := blobStore.ListAll(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}

	records = gallery.FilterByLabel(records, mustGetString(cmd, "label"))
	gallery.SortByUploadTime(records)

	showFaces := mustGetBool(cmd, "faces")
	for _, record := range records {
		fmt.Printf("%s  %s  %s  (%s)\n", record.ID, record.Metadata.UploadedAt.Format("2006-01-02 15:04"),
			record.Metadata.OriginalName, compressor.FormatBytes(int(record.Metadata.Size)))
		if len(record.Labels) > 0 {
			fmt.Printf("    labels: %v\n", record.Labels)
		}
		if showFaces {
			for i, face := range record.Faces {
				fmt.Printf("    face %d: %s, age %d-%d", i+1, face.Gender, face.AgeRange.Low, face.AgeRange.High)
				if len(face.Emotions) > 0 {
					fmt.Printf(", %s", face.Emotions[0].Type)
				}
				fmt.Println()
			}
		}
	}
	fmt.Printf("\n%d images\n", len(records))

	return nil
}
