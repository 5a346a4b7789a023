package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore writes uploads into a directory on disk. References are the
// slash-separated path of the written file, e.g. uploads/20250101-<uuid>.png.
type LocalStore struct {
	dir string
	now func() time.Time
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, now: time.Now}, nil
}

func (s *LocalStore) Put(ctx context.Context, filename, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(baseName(filename)))
	name := fmt.Sprintf("%s-%s%s", s.now().Format("20060102"), uuid.New().String(), ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return filepath.ToSlash(path), nil
}

// Delete removes the file behind ref. Only files inside the store directory
// are touched, and a file that is already gone is not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := baseName(ref)
	if name == "" {
		return fmt.Errorf("invalid blob reference %q", ref)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
