package imaging

import (
	"errors"
	"fmt"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// Supported MIME types. Anything else is rejected before upload.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

var (
	ErrNotFound    = errors.New("file does not exist")
	ErrNotRegular  = errors.New("not a regular file")
	ErrEmpty       = errors.New("file is empty")
	ErrUnsupported = errors.New("unsupported image format")
)

// Validate checks that path names a non-empty regular file whose content
// sniffs as JPEG or PNG, and returns the detected MIME type.
func Validate(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect type of %s: %w", path, err)
	}
	return checkMIME(path, mtype)
}

func checkMIME(path string, mtype *mimetype.MIME) (string, error) {
	switch {
	case mtype.Is(MIMEJPEG):
		return MIMEJPEG, nil
	case mtype.Is(MIMEPNG):
		return MIMEPNG, nil
	}
	return "", fmt.Errorf("%s is %s: %w", path, mtype.String(), ErrUnsupported)
}
