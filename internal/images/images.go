// Package images stores normalised uploads on disk and hands out the public
// path each one is served under.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/trznica/internal/imaging"
)

// URLPrefix is the path prefix stored images are served under.
const URLPrefix = "/images/"

// Upload is one picture received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// ErrInvalidImage is returned for uploads that are not a usable picture.
var ErrInvalidImage = errors.New("invalid image")

// FileStore writes pictures into Dir, shrunk to MaxDimension.
type FileStore struct {
	Dir          string
	MaxDimension int
}

// NewFileStore creates dir if needed and returns a store writing into it.
func NewFileStore(dir string, maxDim int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &FileStore{Dir: dir, MaxDimension: maxDim}, nil
}

// Store normalises u, writes it under a fresh name and returns its public path.
func (s *FileStore) Store(ctx context.Context, u Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := imaging.Normalize(bytes.NewReader(u.Data), s.MaxDimension)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidImage, u.Filename, err)
	}

	name := uuid.NewString() + ".jpg"
	if err := writeFile(filepath.Join(s.Dir, name), data); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return URLPrefix + name, nil
}

// Release removes the file behind a path returned by Store. Paths that do not
// name a stored file are ignored.
func (s *FileStore) Release(p string) error {
	name, ok := strings.CutPrefix(p, URLPrefix)
	if !ok || name == "" || name != path.Base(name) {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing image: %w", err)
	}
	return nil
}

// writeFile writes via a temp file so readers never see a partial image.
func writeFile(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
