package content

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/channel-music/channel/internal/models"
	"github.com/h2non/filetype"
	"github.com/microcosm-cc/bluemonday"
)

// HeaderSize is the number of leading bytes DetectAudio needs.
const HeaderSize = 262

const (
	maxFieldLength = 256
	maxTrack       = 9999
)

var (
	ErrNotAudio = errors.New("file is not a supported audio format")

	policy = bluemonday.StrictPolicy()
)

// Sanitize strips all markup from a metadata field and trims surrounding space.
func Sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(input)))
}

// SanitizeMeta applies Sanitize to every text field of meta.
func SanitizeMeta(meta models.SongMeta) models.SongMeta {
	return models.SongMeta{
		Title:  Sanitize(meta.Title),
		Artist: Sanitize(meta.Artist),
		Album:  Sanitize(meta.Album),
		Track:  meta.Track,
	}
}

// ValidateMeta checks that a sanitized song has a title and sane field sizes.
func ValidateMeta(meta models.SongMeta) error {
	if meta.Title == "" {
		return fmt.Errorf("%w: title cannot be empty", models.ErrInvalidArgument)
	}
	fields := map[string]string{"title": meta.Title, "artist": meta.Artist, "album": meta.Album}
	for name, v := range fields {
		if utf8.RuneCountInString(v) > maxFieldLength {
			return fmt.Errorf("%w: %s is longer than %d characters", models.ErrInvalidArgument, name, maxFieldLength)
		}
	}
	if meta.Track < 0 || meta.Track > maxTrack {
		return fmt.Errorf("%w: track must be between 0 and %d", models.ErrInvalidArgument, maxTrack)
	}
	return nil
}

// DetectAudio sniffs the MIME type of an audio payload from its first bytes.
func DetectAudio(head []byte) (string, error) {
	kind, err := filetype.Audio(head)
	if err != nil || kind == filetype.Unknown {
		return "", ErrNotAudio
	}
	return kind.MIME.Value, nil
}
