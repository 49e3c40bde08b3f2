package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/channel-music/channel/internal/models"
	"github.com/channel-music/channel/internal/pathutil"
)

// ErrRootNotFound is returned when the storage root is missing or is not a
// directory. It matches models.ErrNotFound.
var ErrRootNotFound = fmt.Errorf("storage root %w", models.ErrNotFound)

// tempPrefix marks in-flight uploads. List skips files carrying it and Store
// refuses names that carry it.
const tempPrefix = ".upload-"

// Local implements FileStore on a directory of the local filesystem.
//
// The root is never created and never cached as valid: every call checks
// that it exists, so removing it while the process runs surfaces as
// ErrNotFound instead of writes landing in a recreated directory.
type Local struct {
	root   string
	copier Copier
	opener Opener
}

type Option func(*Local)

// WithCopier replaces the stream copy used by Store.
func WithCopier(c Copier) Option {
	return func(s *Local) { s.copier = c }
}

// WithOpener replaces the stream open used by Retrieve.
func WithOpener(o Opener) Option {
	return func(s *Local) { s.opener = o }
}

func New(root string, opts ...Option) *Local {
	root = filepath.Clean(root)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	s := &Local{
		root:   root,
		copier: defaultCopier,
		opener: defaultOpener,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the absolute storage root.
func (s *Local) Root() string {
	return s.root
}

func (s *Local) checkRoot() error {
	info, err := os.Stat(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %q does not exist", ErrRootNotFound, s.root)
		}
		return fmt.Errorf("%w: stat storage root %q: %w", models.ErrIO, s.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %q is not a directory", ErrRootNotFound, s.root)
	}
	return nil
}

// resolve turns ref into its canonical root-relative form and the file path
// it designates. Absolute refs must be nested under the root.
func (s *Local) resolve(ref string) (rel string, path string, err error) {
	rel = ref
	if filepath.IsAbs(ref) {
		if rel, err = pathutil.Relativize(s.root, filepath.Clean(ref)); err != nil {
			return "", "", err
		}
	}
	rel = filepath.Clean(filepath.FromSlash(rel))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", "", fmt.Errorf("%w: reference %q escapes storage root", models.ErrInvalidArgument, ref)
	}
	return rel, filepath.Join(s.root, rel), nil
}

func ioError(op, ref string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", models.ErrIO, op, ref, err)
}

func (s *Local) Store(content io.Reader, suggestedName string) (string, error) {
	if c, ok := content.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	if err := s.checkRoot(); err != nil {
		return "", err
	}
	rel, path, err := s.resolve(suggestedName)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(filepath.Base(rel), tempPrefix) {
		return "", fmt.Errorf("%w: name %q uses the reserved prefix %q", models.ErrInvalidArgument, suggestedName, tempPrefix)
	}

	if _, err := os.Lstat(path); err == nil {
		return "", fmt.Errorf("%w: %s", models.ErrAlreadyExists, rel)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", ioError("stat", rel, err)
	}

	dir := filepath.Dir(path)
	if dir != s.root {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", ioError("create directory for", rel, err)
		}
	}

	// Write to temporary file first
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", ioError("create temp file for", rel, err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := s.copier.Copy(tmp, content); err != nil {
		return "", ioError("write", rel, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", ioError("sync", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return "", ioError("close", rel, err)
	}

	// Link fails when the target appeared meanwhile, unlike rename.
	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", models.ErrAlreadyExists, rel)
		}
		return "", ioError("link", rel, err)
	}

	return rel, nil
}

func (s *Local) Retrieve(ref string) (io.ReadCloser, bool, error) {
	if err := s.checkRoot(); err != nil {
		return nil, false, err
	}
	rel, path, err := s.resolve(ref)
	if err != nil {
		return nil, false, err
	}

	rc, err := s.opener.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, ioError("open", rel, err)
	}
	return rc, true, nil
}

func (s *Local) Dispose(ref string) (bool, error) {
	if err := s.checkRoot(); err != nil {
		return false, err
	}
	rel, path, err := s.resolve(ref)
	if err != nil {
		return false, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, ioError("stat", rel, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: %s is a directory", models.ErrInvalidArgument, rel)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, ioError("remove", rel, err)
	}
	return true, nil
}

func (s *Local) List(ctx context.Context) ([]string, error) {
	if err := s.checkRoot(); err != nil {
		return nil, err
	}

	var refs []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := pathutil.Relativize(s.root, path)
		if err != nil {
			return err
		}
		refs = append(refs, rel)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, ioError("walk", s.root, err)
	}
	return refs, nil
}

// SweepTemp removes temp files of uploads that were abandoned before cutoff,
// for example by a crash, and returns how many it removed.
func (s *Local) SweepTemp(ctx context.Context, cutoff time.Time) (int, error) {
	if err := s.checkRoot(); err != nil {
		return 0, err
	}

	removed := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return removed, ctxErr
		}
		return removed, ioError("sweep", s.root, err)
	}
	return removed, nil
}
