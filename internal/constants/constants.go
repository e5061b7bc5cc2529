// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Compression constants
const (
	// SizeThreshold is the size above which an image gets compressed (40 MiB)
	SizeThreshold = 40 * 1024 * 1024

	// TargetSize is the byte budget compression aims for (10 MiB)
	TargetSize = 10 * 1024 * 1024

	// InitialQuality is the lossy quality of the first re-encode attempt
	InitialQuality = 80

	// MinQuality is the quality floor; below this we resize instead
	MinQuality = 30

	// QualityStep is how much quality drops between attempts
	QualityStep = 10

	// ResizeQuality is the fixed quality used for the final resize attempt
	ResizeQuality = 75
)

// Pipeline constants
const (
	// DefaultConcurrency is the default number of parallel ingestion workers.
	// Kept small to respect vision provider rate limits.
	DefaultConcurrency = 4
)

// Vision constants
const (
	// MaxAnalysisImageSize is the maximum dimension (width or height) of
	// images sent to vision providers
	MaxAnalysisImageSize = 1024

	// MaxLabels is the maximum number of labels requested per image
	MaxLabels = 10

	// MinLabelConfidence is the minimum confidence (0-100) for a label to be kept
	MinLabelConfidence = 70

	// AnalysisMaxRetries is the number of attempts to get parseable JSON
	// out of a vision provider
	AnalysisMaxRetries = 5
)

// Store constants
const (
	// ImageKeyPrefix is the namespace for stored image payloads
	ImageKeyPrefix = "images/"

	// MetadataKeyPrefix is the namespace for stored metadata records
	MetadataKeyPrefix = "metadata/"

	// DefaultLocatorTTL is the default lifetime of a signed image locator
	// in seconds (7 days)
	DefaultLocatorTTL = 604800
)

// Drive constants
const (
	// DrivePageSize is the number of files requested per listing page
	DrivePageSize = 1000
)
