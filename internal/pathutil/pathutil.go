// Package pathutil derives file store references. It does no I/O.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/channel-music/channel/internal/models"
	"github.com/google/uuid"
)

const separator = string(os.PathSeparator)

// Relativize strips root and the separator that follows it from path.
// The remainder is returned unchanged, so "root/a/b" and "root/a/b/c.mp3"
// give "c.mp3". A trailing separator on root is ignored.
func Relativize(root, path string) (string, error) {
	prefix := strings.TrimRight(root, separator) + separator
	if len(path) <= len(prefix) || !strings.HasPrefix(path, prefix) {
		return "", fmt.Errorf("%w: path %q is not nested under root %q", models.ErrInvalidArgument, path, root)
	}
	return path[len(prefix):], nil
}

// GenerateFilename replaces the base name of originalName with a fresh token,
// keeping the final extension if there is one.
func GenerateFilename(originalName string) string {
	name := newToken()
	if ext := filepath.Ext(originalName); ext != "" {
		name += ext
	}
	return name
}

// newToken returns a UUIDv7: millisecond clock plus 74 random bits.
func newToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
