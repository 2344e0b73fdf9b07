package chat

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/sandevgo/cuuri/internal/core"
)

// MaxImageSize is the largest attachment accepted.
const MaxImageSize = 20 << 20

var (
	ErrNotImage      = errors.New("not an image")
	ErrImageTooLarge = errors.New("image too large")
)

// LoadImage reads an attachment and sniffs its MIME type from content.
func LoadImage(path string) (core.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return core.Image{}, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > MaxImageSize {
		return core.Image{}, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrImageTooLarge, path, info.Size(), MaxImageSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.Image{}, fmt.Errorf("read image: %w", err)
	}
	return NewImage(data)
}

// ReadImage reads an attachment from a stream, such as a download, and
// rejects it once it exceeds MaxImageSize.
func ReadImage(r io.Reader) (core.Image, error) {
	return readImage(r, MaxImageSize)
}

func readImage(r io.Reader, limit int64) (core.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return core.Image{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > limit {
		return core.Image{}, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, limit)
	}
	return NewImage(data)
}

// NewImage wraps raw bytes, rejecting anything that does not sniff as an
// image.
func NewImage(data []byte) (core.Image, error) {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return core.Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}
	return core.Image{MimeType: mime, Data: data}, nil
}
