package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kozaktomas/photo-ingest/internal/constants"
	"github.com/kozaktomas/photo-ingest/internal/vision"
)

const (
	tempDirName    = ".tmp"
	metaFileSuffix = ".json.zst"
)

// BlobStore keeps image bytes and metadata records on the local
// filesystem under separate namespaces:
//
//	{root}/images/{id}        raw image bytes
//	{root}/metadata/{id}.json.zst  zstd-compressed JSON record
//
// Writes go through a temp file plus rename so a record is either fully
// present or absent.
type BlobStore struct {
	root   string
	signer *Signer

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewBlobStore(root string, signer *Signer) (*BlobStore, error) {
	root = filepath.Clean(root)
	for _, dir := range []string{
		filepath.Join(root, constants.ImageKeyPrefix),
		filepath.Join(root, constants.MetadataKeyPrefix),
		filepath.Join(root, tempDirName),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &BlobStore{
		root:    root,
		signer:  signer,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

func (s *BlobStore) Put(_ context.Context, req PutRequest) (*Record, error) {
	if err := validateID(req.ID); err != nil {
		return nil, err
	}

	if err := s.writeAtomic(s.imagePath(req.ID), req.Data); err != nil {
		return nil, fmt.Errorf("failed to write image %s: %w", req.ID, err)
	}

	record := &Record{
		ID:       req.ID,
		ImageURL: s.signer.Sign(req.ID),
		Labels:   req.Labels,
		Faces:    req.Faces,
		Metadata: RecordMetadata{
			UploadedAt:   time.Now().UTC(),
			OriginalName: req.Name,
			Size:         int64(len(req.Data)),
			MimeType:     req.MimeType,
		},
	}
	if record.Labels == nil {
		record.Labels = []string{}
	}
	if record.Faces == nil {
		record.Faces = []vision.Face{}
	}

	if err := s.writeRecord(record); err != nil {
		return nil, fmt.Errorf("failed to write metadata %s: %w", req.ID, err)
	}

	return record, nil
}

func (s *BlobStore) ListAll(_ context.Context) ([]*Record, error) {
	metaDir := filepath.Join(s.root, constants.MetadataKeyPrefix)
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaFileSuffix) {
			continue
		}

		record, err := s.readRecord(filepath.Join(metaDir, entry.Name()))
		if err != nil {
			// A bad record never breaks the listing
			log.Printf("Warning: skipping unreadable record %s: %v", entry.Name(), err)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (s *BlobStore) RefreshLocator(ctx context.Context, id string) (*Record, error) {
	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	record.ImageURL = s.signer.Sign(id)
	if err := s.writeRecord(record); err != nil {
		return nil, fmt.Errorf("failed to rewrite metadata %s: %w", id, err)
	}

	return record, nil
}

func (s *BlobStore) GetRecord(_ context.Context, id string) (*Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	record, err := s.readRecord(s.metaPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", id, err)
	}

	return record, nil
}

func (s *BlobStore) GetImage(ctx context.Context, id string) ([]byte, string, error) {
	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(s.imagePath(id))
	if os.IsNotExist(err) {
		return nil, "", fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image %s: %w", id, err)
	}

	return data, record.Metadata.MimeType, nil
}

func (s *BlobStore) imagePath(id string) string {
	return filepath.Join(s.root, constants.ImageKeyPrefix, id)
}

func (s *BlobStore) metaPath(id string) string {
	return filepath.Join(s.root, constants.MetadataKeyPrefix, id+metaFileSuffix)
}

func (s *BlobStore) writeRecord(record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	return s.writeAtomic(s.metaPath(record.ID), s.encoder.EncodeAll(data, nil))
}

func (s *BlobStore) readRecord(path string) (*Record, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &record, nil
}

// writeAtomic writes data to a temp file and renames it into place.
func (s *BlobStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Join(s.root, tempDirName), "put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	return nil
}

func validateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return fmt.Errorf("character %q not allowed: %w", r, ErrInvalidID)
		}
	}
	return nil
}
