package store

import (
	"context"
	"errors"
	"time"

	"github.com/kozaktomas/photo-ingest/internal/vision"
)

var (
	// ErrNotFound means no record exists under the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID means the id contains characters the store refuses
	// to map to a filesystem path.
	ErrInvalidID = errors.New("invalid record id")
)

// Record is the persistent metadata document for one stored image.
// Labels and faces are immutable after creation; only ImageURL may be
// rewritten by a locator refresh.
type Record struct {
	ID       string         `json:"id"`
	ImageURL string         `json:"imageUrl"`
	Labels   []string       `json:"labels"`
	Faces    []vision.Face  `json:"faces"`
	Metadata RecordMetadata `json:"metadata"`
}

type RecordMetadata struct {
	UploadedAt   time.Time `json:"uploadedAt"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
}

// PutRequest carries everything needed to persist one image.
type PutRequest struct {
	ID       string
	Name     string
	MimeType string
	Data     []byte
	Labels   []string
	Faces    []vision.Face
}

// Store persists image bytes and their metadata records. Bytes and
// record are two separate writes with no cross-write atomicity; a crash
// in between leaves an orphaned blob without a record.
type Store interface {
	// Put writes the image bytes, then the metadata record, and
	// returns the canonical record including a fresh locator.
	Put(ctx context.Context, req PutRequest) (*Record, error)
	// ListAll enumerates every stored record. Records that fail to
	// read or parse are skipped, never fatal to the listing.
	ListAll(ctx context.Context) ([]*Record, error)
	// RefreshLocator regenerates the time-limited image locator and
	// rewrites the record. Labels and faces are untouched.
	RefreshLocator(ctx context.Context, id string) (*Record, error)
	// GetRecord loads a single record by id.
	GetRecord(ctx context.Context, id string) (*Record, error)
	// GetImage loads the stored bytes and their MIME type.
	GetImage(ctx context.Context, id string) ([]byte, string, error)
}
