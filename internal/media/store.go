// Package media stores uploaded images and videos and hands back the URL a
// post refers to. Posts never carry raw bytes.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"farmfeed/internal/models"
	"farmfeed/internal/observability"

	_ "golang.org/x/image/webp" // register WebP decoder
)

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/media/"

// maxImageSide bounds decoded image dimensions.
const maxImageSide = 8192

// Store persists a media asset and returns its reference.
type Store interface {
	Put(ctx context.Context, r io.Reader, kind models.MediaKind) (models.Media, error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

// DiskStore writes assets into a directory, named by the SHA-256 of their
// content, so identical uploads share one file.
type DiskStore struct {
	dir      string
	maxBytes int64
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskStore{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the directory files are written to.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Put validates and stores the asset. The sniffed content type must agree
// with kind.
func (s *DiskStore) Put(ctx context.Context, r io.Reader, kind models.MediaKind) (models.Media, error) {
	if !kind.Valid() {
		return models.Media{}, models.NewValidationError("Media kind must be \"image\" or \"video\"")
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return models.Media{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return models.Media{}, models.NewValidationError("No file uploaded")
	}
	if int64(len(data)) > s.maxBytes {
		return models.Media{}, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}
	if err := ctx.Err(); err != nil {
		return models.Media{}, err
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	major, _, _ := strings.Cut(contentType, "/")
	if !ok || models.MediaKind(major) != kind {
		return models.Media{}, models.NewValidationError(fmt.Sprintf("Content type %s is not a supported %s", contentType, kind))
	}
	if kind == models.MediaImage {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return models.Media{}, models.NewValidationError("Invalid image file")
		}
		if cfg.Width > maxImageSide || cfg.Height > maxImageSide {
			return models.Media{}, models.NewValidationError("Image dimensions too large")
		}
	}

	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:]) + ext
	if err := s.write(name, data); err != nil {
		observability.Logger.ErrorContext(ctx, "failed to store media", "name", name, "error", err)
		return models.Media{}, models.NewStorageError(err)
	}
	return models.Media{URL: URLPrefix + name, Kind: kind}, nil
}

// write stores data under name atomically; an existing file is kept.
func (s *DiskStore) write(name string, data []byte) error {
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
