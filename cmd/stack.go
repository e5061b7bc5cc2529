package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kozaktomas/photo-ingest/internal/compressor"
	"github.com/kozaktomas/photo-ingest/internal/config"
	"github.com/kozaktomas/photo-ingest/internal/drive"
	"github.com/kozaktomas/photo-ingest/internal/pipeline"
	"github.com/kozaktomas/photo-ingest/internal/store"
	"github.com/kozaktomas/photo-ingest/internal/vision"
)

// buildVisionService creates the configured vision provider plus the
// local face collection.
func buildVisionService(ctx context.Context, cfg *config.Config) (*vision.Service, error) {
	taxonomy := vision.Taxonomy{
		Emotions: cfg.Taxonomy.Emotions,
		Genders:  cfg.Taxonomy.Genders,
	}

	var provider vision.Provider
	switch cfg.Vision.Provider {
	case "gemini":
		if cfg.Vision.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		var err error
		provider, err = vision.NewGeminiProvider(ctx, cfg.Vision.GeminiAPIKey, taxonomy)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini provider: %w", err)
		}
	case "openai":
		if cfg.Vision.OpenAIToken == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		provider = vision.NewOpenAIProvider(cfg.Vision.OpenAIToken, taxonomy)
	default:
		return nil, fmt.Errorf("unknown vision provider: %s (supported: gemini, openai)", cfg.Vision.Provider)
	}

	collectionPath := cfg.Vision.CollectionPath
	if collectionPath == "" {
		collectionPath = filepath.Join(cfg.Store.Path, "faces.json")
	}

	return vision.NewService(provider, vision.NewFaceCollection(collectionPath)), nil
}

// buildStore creates the locator signer and the filesystem store.
func buildStore(cfg *config.Config) (*store.BlobStore, *store.Signer, error) {
	if cfg.Store.Secret == "" {
		return nil, nil, errors.New("STORE_SECRET environment variable is required")
	}

	baseURL := cfg.Store.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	signer := store.NewSigner(baseURL, cfg.Store.Secret, time.Duration(cfg.Store.LocatorTTL)*time.Second)
	blobStore, err := store.NewBlobStore(cfg.Store.Path, signer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	return blobStore, signer, nil
}

// buildPipeline wires the full ingestion stack from configuration.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, *store.BlobStore, *store.Signer, error) {
	if cfg.Drive.APIKey == "" {
		return nil, nil, nil, errors.New("DRIVE_API_KEY environment variable is required")
	}

	visionService, err := buildVisionService(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	blobStore, signer, err := buildStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	driveClient := drive.NewClient(cfg.Drive.APIKey)
	pipe := pipeline.New(driveClient, compressor.New(), visionService, blobStore)

	return pipe, blobStore, signer, nil
}
