package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FaceCollection is a local identity index. Every face detected during
// ingestion gets a stable face ID correlated with the metadata record it
// came from, persisted as a single JSON file.
type FaceCollection struct {
	path string

	mu          sync.Mutex
	initialized bool
	entries     []collectionEntry
}

type collectionEntry struct {
	FaceID    string    `json:"faceId"`
	ImageID   string    `json:"imageId"`
	IndexedAt time.Time `json:"indexedAt"`
}

func NewFaceCollection(path string) *FaceCollection {
	return &FaceCollection{path: path}
}

// Init loads the collection from disk, creating an empty one on first
// use. Calling it again is a no-op.
func (c *FaceCollection) Init(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		c.entries = nil
		if err := c.persistLocked(); err != nil {
			return err
		}
		c.initialized = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read face collection: %w", err)
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		return fmt.Errorf("failed to parse face collection: %w", err)
	}

	c.initialized = true
	return nil
}

// Add indexes count faces for an image and returns their face IDs in
// detection order.
func (c *FaceCollection) Add(imageID string, count int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil, fmt.Errorf("face collection is not initialized")
	}

	now := time.Now().UTC()
	faceIDs := make([]string, 0, count)
	for range count {
		faceID := uuid.New().String()
		faceIDs = append(faceIDs, faceID)
		c.entries = append(c.entries, collectionEntry{
			FaceID:    faceID,
			ImageID:   imageID,
			IndexedAt: now,
		})
	}

	if err := c.persistLocked(); err != nil {
		// Roll back so a later Add does not persist ghosts
		c.entries = c.entries[:len(c.entries)-count]
		return nil, err
	}

	return faceIDs, nil
}

// Size returns the number of indexed faces.
func (c *FaceCollection) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// persistLocked writes the collection atomically via a temp file rename.
// Caller must hold c.mu.
func (c *FaceCollection) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create face collection directory: %w", err)
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal face collection: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write face collection: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace face collection: %w", err)
	}

	return nil
}
