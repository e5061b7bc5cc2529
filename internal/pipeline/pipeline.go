package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/photo-ingest/internal/compressor"
	"github.com/kozaktomas/photo-ingest/internal/constants"
	"github.com/kozaktomas/photo-ingest/internal/drive"
	"github.com/kozaktomas/photo-ingest/internal/store"
	"github.com/kozaktomas/photo-ingest/internal/vision"
)

var (
	// ErrInvalidFolder means the folder reference could not be resolved
	// at all. Nothing was fetched.
	ErrInvalidFolder = errors.New("invalid folder reference")
	// ErrNoImages means traversal succeeded but found zero images.
	ErrNoImages = errors.New("no images found in folder")
)

// StoreError marks a store-stage failure for one item. Unlike compress
// and analyze failures it fails the whole batch, because it means data
// loss for that item.
type StoreError struct {
	Name string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to store %s: %v", e.Name, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Source lists and downloads the raw images behind a folder reference.
type Source interface {
	FetchFolder(ctx context.Context, folderRef string) ([]drive.Asset, error)
}

// Analyzer extracts labels and faces and maintains the identity index.
type Analyzer interface {
	InitFaceCollection(ctx context.Context) error
	Analyze(ctx context.Context, imageData []byte, imageID string) (*vision.Analysis, error)
}

// ProgressInfo is passed to the optional progress callback once per
// finished item.
type ProgressInfo struct {
	Current int
	Total   int
	Name    string
}

// Options tune a single batch run.
type Options struct {
	Concurrency int
	Quiet       bool // suppress the terminal progress bar
	OnProgress  func(ProgressInfo)
}

// Outcome records what happened to one asset. Degradation flags are set
// when a stage failed but the item still went through.
type Outcome struct {
	Record           *store.Record
	CompressDegraded bool
	AnalyzeDegraded  bool
}

// BatchResult aggregates a whole run. ProcessedCount always equals
// len(Records).
type BatchResult struct {
	ProcessedCount int
	Records        []*store.Record
	Outcomes       []Outcome
}

type Pipeline struct {
	source     Source
	compressor *compressor.Compressor
	analyzer   Analyzer
	store      store.Store

	initOnce sync.Once
	initErr  error
}

func New(source Source, comp *compressor.Compressor, analyzer Analyzer, st store.Store) *Pipeline {
	return &Pipeline{
		source:     source,
		compressor: comp,
		analyzer:   analyzer,
		store:      st,
	}
}

// itemResult holds the outcome of processing a single asset.
type itemResult struct {
	index   int
	outcome Outcome
	err     error
}

// Run ingests every image under folderRef: fetch all assets, then per
// item compress, assign an id, analyze and store. Compress and analyze
// failures degrade the item without dropping it; a store failure fails
// the batch.
func (p *Pipeline) Run(ctx context.Context, folderRef string, opts Options) (*BatchResult, error) {
	// The identity index must be ready before any worker analyzes.
	p.initOnce.Do(func() {
		p.initErr = p.analyzer.InitFaceCollection(ctx)
	})
	if p.initErr != nil {
		return nil, fmt.Errorf("failed to initialize identity index: %w", p.initErr)
	}

	assets, err := p.source.FetchFolder(ctx, folderRef)
	if err != nil {
		if errors.Is(err, drive.ErrInvalidFolderRef) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFolder, err)
		}
		return nil, fmt.Errorf("failed to fetch folder: %w", err)
	}
	if len(assets) == 0 {
		return nil, ErrNoImages
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrency
	}
	if concurrency > len(assets) {
		concurrency = len(assets)
	}

	var bar *progressbar.ProgressBar
	if !opts.Quiet {
		bar = progressbar.NewOptions(len(assets),
			progressbar.OptionSetDescription(fmt.Sprintf("Ingesting images (%d workers)", concurrency)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
		)
	}

	resultsChan := make(chan itemResult, len(assets))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var finishedCount int
	var progressMu sync.Mutex

	reportProgress := func(name string) {
		progressMu.Lock()
		finishedCount++
		current := finishedCount
		progressMu.Unlock()
		if bar != nil {
			bar.Add(1)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressInfo{
				Current: current,
				Total:   len(assets),
				Name:    name,
			})
		}
	}

	for i := range assets {
		wg.Add(1)
		go func(idx int, asset drive.Asset) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			// A cancelled context skips the remaining unscheduled items
			if ctx.Err() != nil {
				resultsChan <- itemResult{index: idx, err: ctx.Err()}
				reportProgress(asset.Name)
				return
			}

			outcome, err := p.processAsset(ctx, asset)
			resultsChan <- itemResult{index: idx, outcome: outcome, err: err}
			reportProgress(asset.Name)
		}(i, assets[i])
	}

	wg.Wait()
	close(resultsChan)

	outcomes := make([]Outcome, len(assets))
	var firstErr error
	for res := range resultsChan {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		outcomes[res.index] = res.outcome
	}
	if firstErr != nil {
		return nil, firstErr
	}

	result := &BatchResult{Outcomes: outcomes}
	for _, outcome := range outcomes {
		result.Records = append(result.Records, outcome.Record)
	}
	result.ProcessedCount = len(result.Records)

	return result, nil
}

// processAsset runs compress, id assignment, analyze and store for one
// asset. Only a store failure is returned as an error.
func (p *Pipeline) processAsset(ctx context.Context, asset drive.Asset) (Outcome, error) {
	compressed := p.compressor.Compress(asset.Data, asset.MimeType)
	outcome := Outcome{CompressDegraded: compressed.Degraded}

	id := uuid.New().String()

	var labels []string
	var faces []vision.Face
	analysis, err := p.analyzer.Analyze(ctx, compressed.Data, id)
	if err != nil {
		// A bad image must not abort the batch, the record is just
		// stored without analysis content
		log.Printf("Warning: analysis failed for %s: %v", asset.Name, err)
		outcome.AnalyzeDegraded = true
	} else {
		labels = analysis.Labels
		faces = analysis.Faces
	}

	record, err := p.store.Put(ctx, store.PutRequest{
		ID:       id,
		Name:     asset.Name,
		MimeType: compressed.MimeType,
		Data:     compressed.Data,
		Labels:   labels,
		Faces:    faces,
	})
	if err != nil {
		return outcome, &StoreError{Name: asset.Name, Err: err}
	}

	outcome.Record = record
	return outcome, nil
}
