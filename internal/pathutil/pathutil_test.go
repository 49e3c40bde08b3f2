package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/channel-music/channel/internal/models"
)

func TestRelativize(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want string
	}{
		{"Single segment", "root", filepath.Join("root", "c.mp3"), "c.mp3"},
		{"Nested root", filepath.Join("root", "a", "b"), filepath.Join("root", "a", "b", "c.mp3"), "c.mp3"},
		{"Trailing separator", "root" + separator, filepath.Join("root", "c.mp3"), "c.mp3"},
		{"Keeps inner separators", "root", filepath.Join("root", "a", "b", "c.mp3"), filepath.Join("a", "b", "c.mp3")},
		{"Absolute root", separator + "srv", filepath.Join(separator+"srv", "x.ogg"), "x.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Relativize(tt.root, tt.path)
			if err != nil {
				t.Fatalf("Relativize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Relativize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRelativize_RoundTrip(t *testing.T) {
	roots := []string{"root", "root" + separator, filepath.Join("var", "lib", "channel")}
	suffixes := []string{"a.wav", filepath.Join("x", "y.flac"), "noext"}

	for _, r := range roots {
		for _, s := range suffixes {
			got, err := Relativize(r, filepath.Join(r, s))
			if err != nil {
				t.Fatalf("Relativize(%q, join(%q)) error = %v", r, s, err)
			}
			if got != s {
				t.Errorf("Relativize(%q, join(%q)) = %q", r, s, got)
			}
		}
	}
}

func TestRelativize_NotNested(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
	}{
		{"Other tree", "root", filepath.Join("a", "b.wav")},
		{"Root itself", "root", "root"},
		{"Root with separator only", "root", "root" + separator},
		{"Shared prefix", "root", "rooted" + separator + "b.wav"},
		{"Empty path", "root", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Relativize(tt.root, tt.path)
			if !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("Relativize() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestGenerateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantExt string
	}{
		{"Mp3", "song.mp3", ".mp3"},
		{"Multi dot", "live.at.wembley.flac", ".flac"},
		{"Upper case", "Track01.WAV", ".WAV"},
		{"No extension", "README", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateFilename(tt.input)
			if filepath.Ext(got) != tt.wantExt {
				t.Errorf("GenerateFilename(%q) = %q, want extension %q", tt.input, got, tt.wantExt)
			}
			if strings.TrimSuffix(got, tt.wantExt) == strings.TrimSuffix(tt.input, tt.wantExt) {
				t.Errorf("GenerateFilename(%q) kept the original base name", tt.input)
			}
			if strings.Contains(got, separator) {
				t.Errorf("GenerateFilename(%q) = %q contains a separator", tt.input, got)
			}
		})
	}
}

func TestGenerateFilename_Unique(t *testing.T) {
	const trials = 1000
	seen := make(map[string]struct{}, trials*2)
	collisions := 0
	for i := 0; i < trials; i++ {
		a := GenerateFilename("song.mp3")
		b := GenerateFilename("song.mp3")
		if a == b {
			collisions++
		}
		seen[a] = struct{}{}
		seen[b] = struct{}{}
	}
	if collisions > 1 {
		t.Errorf("got %d equal pairs in %d trials", collisions, trials)
	}
	if len(seen) < trials*2-1 {
		t.Errorf("expected %d distinct names, got %d", trials*2, len(seen))
	}
}
