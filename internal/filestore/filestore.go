package filestore

import (
	"context"
	"io"
	"os"
	"time"
)

// FileStore persists uploaded payloads under root-relative references.
type FileStore interface {
	// Store copies content to a new file named suggestedName and returns its
	// reference. It never overwrites: an existing target is ErrAlreadyExists.
	// content is closed before Store returns if it is an io.Closer.
	Store(content io.Reader, suggestedName string) (string, error)

	// Retrieve opens a stored file. found is false, with a nil error, when
	// nothing is stored under ref. The caller must close the stream.
	Retrieve(ref string) (rc io.ReadCloser, found bool, err error)

	// Dispose deletes a stored file. It reports false, with a nil error,
	// when nothing is stored under ref.
	Dispose(ref string) (bool, error)

	// List returns the references of all stored files.
	List(ctx context.Context) ([]string, error)

	// SweepTemp removes leftovers of uploads abandoned before cutoff.
	SweepTemp(ctx context.Context, cutoff time.Time) (int, error)
}

// Copier copies a byte stream.
type Copier interface {
	Copy(dst io.Writer, src io.Reader) (int64, error)
}

// Opener opens a byte stream for reading.
type Opener interface {
	Open(name string) (io.ReadCloser, error)
}

type CopierFunc func(dst io.Writer, src io.Reader) (int64, error)

func (f CopierFunc) Copy(dst io.Writer, src io.Reader) (int64, error) {
	return f(dst, src)
}

type OpenerFunc func(name string) (io.ReadCloser, error)

func (f OpenerFunc) Open(name string) (io.ReadCloser, error) {
	return f(name)
}

var (
	defaultCopier = CopierFunc(io.Copy)
	defaultOpener = OpenerFunc(func(name string) (io.ReadCloser, error) {
		return os.Open(name)
	})
)
