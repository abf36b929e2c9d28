package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

// PhotoStore keeps ticket photos as flat files in one directory.
type PhotoStore struct {
	dir      string
	maxBytes int
	now      func() time.Time

	mu   sync.Mutex
	last string
}

// NewPhotoStore creates dir if needed.
func NewPhotoStore(dir string, maxBytes int) (*PhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &PhotoStore{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

// Store writes data under a name derived from the current time and the
// extension of suggestedName, and returns that name as the reference.
func (s *PhotoStore) Store(data []byte, suggestedName string) (string, error) {
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return "", apperrors.NewValidationError("photo is too large",
			map[string]any{"max_bytes": s.maxBytes, "size": len(data)})
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(suggestedName)))
	if !allowedExtensions[ext] {
		return "", apperrors.NewValidationError("unsupported photo type",
			map[string]any{"extension": ext})
	}

	ref := s.nextName(ext)
	f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create photo: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(filepath.Join(s.dir, ref))
		return "", fmt.Errorf("write photo: %w", err)
	}
	return ref, f.Close()
}

// Open returns the stored photo. References must be bare file names.
func (s *PhotoStore) Open(ref string) (io.ReadCloser, error) {
	if !validRef(ref) {
		return nil, apperrors.NewValidationError("invalid photo reference", map[string]any{"ref": ref})
	}
	f, err := os.Open(filepath.Join(s.dir, ref))
	if os.IsNotExist(err) {
		return nil, apperrors.NewNotFound("photo", map[string]any{"ref": ref})
	}
	return f, err
}

// Delete removes a stored photo. A missing file is not an error.
func (s *PhotoStore) Delete(ref string) error {
	if !validRef(ref) {
		return apperrors.NewValidationError("invalid photo reference", map[string]any{"ref": ref})
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

// nextName returns a timestamp name unique within this process.
func (s *PhotoStore) nextName(ext string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC()
	name := fmt.Sprintf("%s%06d%s", t.Format("20060102150405"), t.Nanosecond()/1000, ext)
	for name <= s.last {
		name = s.last[:len(s.last)-len(filepath.Ext(s.last))] + "0" + ext
	}
	s.last = name
	return name
}

func validRef(ref string) bool {
	if ref == "" || ref == "." || ref == ".." {
		return false
	}
	if strings.ContainsAny(ref, `/\`) || strings.Contains(ref, "..") {
		return false
	}
	return filepath.Base(ref) == ref
}
