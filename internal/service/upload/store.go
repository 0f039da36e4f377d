package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("upload exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Allowed reports whether a sniffed media type is accepted as an image.
func Allowed(mediaType string) bool {
	return allowedTypes[mediaType]
}

// File is a temporary upload on disk.
type File struct {
	Path      string
	Name      string
	MediaType string
	Size      int64
}

// Read returns the file contents.
func (f *File) Read() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Remove deletes the file. Removing an already deleted file is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Store writes uploads into a single directory, bounded by maxBytes.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, maxBytes int64) *Store {
	return &Store{dir: dir, maxBytes: maxBytes}
}

// Dir returns the upload directory.
func (s *Store) Dir() string { return s.dir }

// MaxBytes returns the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save copies src into a new file. Oversized or non-image content is
// rejected and leaves nothing behind.
func (s *Store) Save(src io.Reader, name string) (*File, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	f := &File{
		Path: filepath.Join(s.dir, uuid.NewString()),
		Name: name,
	}

	dst, err := os.OpenFile(f.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	// Read one byte past the limit to detect oversize input.
	n, copyErr := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = f.Remove()
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if n > s.maxBytes {
		_ = f.Remove()
		return nil, ErrTooLarge
	}
	f.Size = n

	mediaType, err := sniff(f.Path)
	if err != nil {
		_ = f.Remove()
		return nil, err
	}
	if !Allowed(mediaType) {
		_ = f.Remove()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
	}
	f.MediaType = mediaType

	return f, nil
}

func sniff(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
