// Package blob stores uploaded media bytes and hands back an opaque reference
// that is saved on the media row.
package blob

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

type Store interface {
	Put(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// baseName strips any directory components a client put in the filename.
func baseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
