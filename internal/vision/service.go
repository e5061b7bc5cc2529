package vision

import (
	"context"
	"fmt"
	"log"
)

// Service combines a vision provider with the local face collection.
// The collection is optional; without it faces are still detected but
// never get identity IDs.
type Service struct {
	provider   Provider
	collection *FaceCollection
}

func NewService(provider Provider, collection *FaceCollection) *Service {
	return &Service{
		provider:   provider,
		collection: collection,
	}
}

func (s *Service) Name() string {
	return s.provider.Name()
}

// InitFaceCollection prepares the identity index. Safe to call more
// than once; a no-op when no collection is configured.
func (s *Service) InitFaceCollection(ctx context.Context) error {
	if s.collection == nil {
		return nil
	}
	if err := s.collection.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize face collection: %w", err)
	}
	return nil
}

// Analyze runs the provider on the image and indexes detected faces
// under imageID. Indexing is best-effort: when it fails the faces come
// back without IDs and the analysis is returned unchanged otherwise.
func (s *Service) Analyze(ctx context.Context, imageData []byte, imageID string) (*Analysis, error) {
	analysis, err := s.provider.AnalyzeImage(ctx, imageData)
	if err != nil {
		return nil, err
	}

	if s.collection != nil && len(analysis.Faces) > 0 {
		faceIDs, err := s.collection.Add(imageID, len(analysis.Faces))
		if err != nil {
			log.Printf("Warning: failed to index faces for %s: %v", imageID, err)
		} else {
			for i := range analysis.Faces {
				analysis.Faces[i].FaceID = faceIDs[i]
			}
		}
	}

	return analysis, nil
}
