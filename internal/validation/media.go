package validation

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// Upload limits are fixed constants, mirrored by the admin UI.
const (
	MaxImageBytes = 10 << 20  // 10MB
	MaxVideoBytes = 100 << 20 // 100MB

	PhotoLimit = 10
	VideoLimit = 4
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

// FileKind partitions accepted uploads into the two processing pipelines.
type FileKind int

const (
	KindImage FileKind = iota
	KindVideo
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
	"video/x-msvideo": true,
}

// SniffMediaType detects the real content type from the file bytes (the
// client-declared Content-Type cannot be trusted) and classifies it.
func SniffMediaType(data []byte) (string, FileKind, error) {
	mime := mimetype.Detect(data).String()

	switch {
	case allowedImageTypes[mime]:
		return mime, KindImage, nil
	case allowedVideoTypes[mime]:
		return mime, KindVideo, nil
	default:
		return mime, 0, fmt.Errorf("%w (detected: %s)", ErrUnsupportedType, mime)
	}
}

// CheckSize enforces the per-kind size ceiling.
func CheckSize(kind FileKind, size int64) error {
	limit := int64(MaxImageBytes)
	name := "image"
	if kind == KindVideo {
		limit = MaxVideoBytes
		name = "video"
	}

	if size > limit {
		return fmt.Errorf("%w: %s exceeds %dMB", ErrFileTooLarge, name, limit>>20)
	}
	return nil
}

// CountLimit returns the per-entity cap for a file kind.
func CountLimit(kind FileKind) int {
	if kind == KindVideo {
		return VideoLimit
	}
	return PhotoLimit
}
