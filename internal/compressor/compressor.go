// Package compressor reduces oversized images to a target byte budget.
//
// Images at or under the size threshold pass through untouched. Larger
// images are re-encoded at decreasing quality, always from the original
// pixels to avoid compounding generational loss, and resized once as a
// last resort when the quality floor is reached.
package compressor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/photo-ingest/internal/constants"
)

// Result describes the outcome of a compression attempt.
type Result struct {
	Data           []byte
	MimeType       string  // MIME type of Data; differs from input after PNG->JPEG conversion
	OriginalSize   int
	CompressedSize int
	Ratio          float64 // OriginalSize / CompressedSize
	WasCompressed  bool
	Degraded       bool // compression was attempted but failed; Data is the original
}

// Compressor re-encodes images that exceed SizeThreshold until they fit
// TargetSize. The zero value is not usable; use New or set both fields.
type Compressor struct {
	SizeThreshold int
	TargetSize    int
}

func New() *Compressor {
	return &Compressor{
		SizeThreshold: constants.SizeThreshold,
		TargetSize:    constants.TargetSize,
	}
}

// Compress never fails the caller: on any internal error it returns the
// original bytes unmodified with WasCompressed=false and Degraded=true.
func (c *Compressor) Compress(data []byte, mimeType string) Result {
	originalSize := len(data)

	if originalSize <= c.SizeThreshold {
		return passthrough(data, mimeType, false)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return passthrough(data, mimeType, true)
	}

	// WebP stays WebP; everything else (PNG included) becomes JPEG.
	// PNG->JPEG is a deliberate lossy format change for compression headroom.
	asWebP := strings.Contains(mimeType, "webp")
	outMime := "image/jpeg"
	if asWebP {
		outMime = "image/webp"
	}

	quality := constants.InitialQuality
	buf, err := encodeImage(img, asWebP, quality)
	if err != nil {
		return passthrough(data, mimeType, true)
	}

	// Walk quality down, re-encoding from the original pixels each time.
	for len(buf) > c.TargetSize && quality > constants.MinQuality {
		quality -= constants.QualityStep
		buf, err = encodeImage(img, asWebP, quality)
		if err != nil {
			return passthrough(data, mimeType, true)
		}
	}

	// Quality floor reached and still over budget: one resize attempt,
	// scaling both dimensions by sqrt(target/current). No further iteration
	// regardless of outcome.
	if len(buf) > c.TargetSize {
		if resized, err := c.resizeToTarget(img, len(buf), asWebP); err == nil {
			buf = resized
		}
	}

	// Re-encoding can in principle grow the payload; keep the invariant
	// compressedSize <= originalSize by falling back to the source bytes.
	if len(buf) >= originalSize {
		return passthrough(data, mimeType, true)
	}

	return Result{
		Data:           buf,
		MimeType:       outMime,
		OriginalSize:   originalSize,
		CompressedSize: len(buf),
		Ratio:          float64(originalSize) / float64(len(buf)),
		WasCompressed:  true,
	}
}

func (c *Compressor) resizeToTarget(img image.Image, currentSize int, asWebP bool) ([]byte, error) {
	bounds := img.Bounds()
	scale := math.Sqrt(float64(c.TargetSize) / float64(currentSize))

	newWidth := int(float64(bounds.Dx()) * scale)
	newHeight := int(float64(bounds.Dy()) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	return encodeImage(resized, asWebP, constants.ResizeQuality)
}

func encodeImage(img image.Image, asWebP bool, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if asWebP {
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, fmt.Errorf("failed to encode webp: %w", err)
		}
		return buf.Bytes(), nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func passthrough(data []byte, mimeType string, degraded bool) Result {
	return Result{
		Data:           data,
		MimeType:       mimeType,
		OriginalSize:   len(data),
		CompressedSize: len(data),
		Ratio:          1,
		WasCompressed:  false,
		Degraded:       degraded,
	}
}

// FormatBytes renders a byte count as a human-readable string.
func FormatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := int64(n) / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGT"[exp])
}
