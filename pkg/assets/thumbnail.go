package assets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MaxThumbnailBytes caps the decoded size of an uploaded thumbnail image.
const MaxThumbnailBytes = 2 << 20

var (
	// ErrNotImageDataURI means the thumbnail is not a base64 image data URI.
	ErrNotImageDataURI = errors.New("thumbnail must be a base64 image data URI")

	// ErrThumbnailTooLarge means the decoded thumbnail exceeds MaxThumbnailBytes.
	ErrThumbnailTooLarge = errors.New("thumbnail exceeds the size limit")
)

// ValidateThumbnail checks that dataURI is a well-formed base64 image data
// URI within the size limit. Thumbnails are stored as submitted and echoed
// back into <img> tags, so shape is enforced here and nowhere later.
func ValidateThumbnail(dataURI string) error {
	rest, ok := strings.CutPrefix(dataURI, "data:image/")
	if !ok {
		return ErrNotImageDataURI
	}
	_, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return ErrNotImageDataURI
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotImageDataURI, err)
	}
	if len(decoded) == 0 {
		return ErrNotImageDataURI
	}
	if len(decoded) > MaxThumbnailBytes {
		return ErrThumbnailTooLarge
	}
	return nil
}
