package vision

import "context"

// BoundingBox locates a face within the image. All four values are
// fractions of the image dimensions in [0,1].
type BoundingBox struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AgeRange is the estimated age interval for a face, low <= high,
// both in [0,100].
type AgeRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Emotion is one detected emotion with its confidence score (0-100).
type Emotion struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Face describes one detected face. Emotions are sorted by confidence,
// highest first. FaceID is set only when the face was indexed into the
// identity collection.
type Face struct {
	BoundingBox BoundingBox `json:"boundingBox"`
	AgeRange    AgeRange    `json:"ageRange"`
	Emotions    []Emotion   `json:"emotions"`
	Gender      string      `json:"gender"`
	FaceID      string      `json:"faceId,omitempty"`
}

// Analysis is the vision output for a single image: deduplicated labels
// and faces in the provider's detection order.
type Analysis struct {
	Labels []string `json:"labels"`
	Faces  []Face   `json:"faces"`
}

// Taxonomy constrains the face attribute vocabulary a provider may use.
type Taxonomy struct {
	Emotions []string
	Genders  []string
}

// Provider defines the interface for vision analysis backends.
type Provider interface {
	Name() string
	AnalyzeImage(ctx context.Context, imageData []byte) (*Analysis, error)
}
