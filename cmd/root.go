package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-ingest",
	Short: "A CLI tool for ingesting photo folders into a searchable gallery",
	Long: `Photo Ingest fetches images from a shared Google Drive folder,
compresses oversized ones, extracts labels and face attributes with a
vision model and stores everything in a local metadata store that the
gallery API serves from.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
