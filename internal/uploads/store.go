// Package uploads keeps each request's audio upload in its own temporary
// file, named by a fresh UUID, so concurrent requests never share storage.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the store's size limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// Store writes uploads below a single directory.
type Store struct {
	dir      string
	maxBytes int64
}

// File is one stored upload. Callers must Remove it when done.
type File struct {
	ID   string
	Path string
	Size int64
}

// NewStore creates the directory if needed. An empty dir means a
// "debate-coach" directory under os.TempDir. maxBytes <= 0 disables the limit.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "debate-coach")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// MaxBytes returns the per-file limit; 0 means unlimited.
func (s *Store) MaxBytes() int64 {
	if s.maxBytes < 0 {
		return 0
	}
	return s.maxBytes
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save copies r into a new uniquely named file. ext may be empty or carry a
// leading dot.
func (s *Store) Save(r io.Reader, ext string) (*File, error) {
	id := uuid.NewString()
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(s.dir, id+strings.ToLower(ext))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	if copyErr == nil && s.maxBytes > 0 && n > s.maxBytes {
		copyErr = ErrTooLarge
	}
	if copyErr == nil && closeErr != nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(path)
		if errors.Is(copyErr, ErrTooLarge) {
			return nil, copyErr
		}
		return nil, fmt.Errorf("failed to write upload: %w", copyErr)
	}

	return &File{ID: id, Path: path, Size: n}, nil
}

// Remove deletes the file. Removing an already removed file is not an error.
func (f *File) Remove() error {
	if f == nil {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
