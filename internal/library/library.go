// Package library ties the file store, the song metadata store and the live
// feed together. It owns naming policy: the file store never picks names.
package library

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/c-pro/geche"
	"github.com/channel-music/channel/internal/content"
	"github.com/channel-music/channel/internal/filestore"
	"github.com/channel-music/channel/internal/models"
	"github.com/channel-music/channel/internal/pathutil"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// MaxNameAttempts bounds how often Upload regenerates a filename after a
// collision.
const MaxNameAttempts = 3

// StaleUploadAge is how old an abandoned temp upload must be before Prune
// removes it.
const StaleUploadAge = time.Hour

// SongRepository persists song metadata.
type SongRepository interface {
	UpsertSong(song models.Song) error
	GetSong(id string) (models.Song, error)
	ListSongs() ([]models.Song, error)
	DeleteSong(id string) error
	ListFileRefs() (map[string]string, error)
}

// Notifier receives library changes.
type Notifier interface {
	Publish(eventType models.EventType, song models.Song)
}

type UploadRequest struct {
	Filename string
	Content  io.Reader
	Meta     models.SongMeta
}

type Library struct {
	files    filestore.FileStore
	songs    SongRepository
	notifier Notifier
	cache    geche.Geche[string, models.Song]
	now      func() time.Time
	newName  func(originalName string) string

	// Uploads hold the read side between storing a file and recording its
	// song, so Prune never sees a stored file without its song.
	pruneMu sync.RWMutex
}

func New(files filestore.FileStore, songs SongRepository, notifier Notifier) *Library {
	return &Library{
		files:    files,
		songs:    songs,
		notifier: notifier,
		cache:    geche.NewMapCache[string, models.Song](),
		now:      time.Now,
		newName:  pathutil.GenerateFilename,
	}
}

// countingReader counts the bytes handed out, so Upload knows whether a
// failed Store consumed any of the stream.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Upload stores an audio file under a generated name and records its metadata.
// The caller keeps ownership of req.Content.
func (l *Library) Upload(req UploadRequest) (models.Song, error) {
	meta := content.SanitizeMeta(req.Meta)
	if err := content.ValidateMeta(meta); err != nil {
		return models.Song{}, err
	}

	br := bufio.NewReaderSize(req.Content, content.HeaderSize)
	head, err := br.Peek(content.HeaderSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return models.Song{}, fmt.Errorf("failed to read upload: %w", err)
	}
	mimeType, err := content.DetectAudio(head)
	if err != nil {
		return models.Song{}, err
	}

	l.pruneMu.RLock()
	defer l.pruneMu.RUnlock()

	body := &countingReader{r: br}
	ref, err := l.store(body, filepath.Base(req.Filename))
	if err != nil {
		return models.Song{}, err
	}

	song := models.Song{
		ID:        uuid.NewString(),
		Title:     meta.Title,
		Artist:    meta.Artist,
		Album:     meta.Album,
		Track:     meta.Track,
		File:      ref,
		MimeType:  mimeType,
		Size:      body.n,
		CreatedAt: l.now().Unix(),
	}

	if err := l.songs.UpsertSong(song); err != nil {
		if _, derr := l.files.Dispose(ref); derr != nil {
			slog.Error("failed to dispose orphaned upload", "file", ref, "error", derr)
		}
		return models.Song{}, fmt.Errorf("failed to save song metadata: %w", err)
	}

	l.cache.Set(song.ID, song)
	l.notifier.Publish(models.EventTypeSongAdded, song)
	slog.Info("song uploaded", "song_id", song.ID, "file", ref, "mime", mimeType, "size", humanize.Bytes(uint64(song.Size)))

	return song, nil
}

// store retries with a fresh name while a collision left the stream unread.
func (l *Library) store(body *countingReader, originalName string) (string, error) {
	var err error
	for attempt := 0; attempt < MaxNameAttempts; attempt++ {
		var ref string
		ref, err = l.files.Store(body, l.newName(originalName))
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, models.ErrAlreadyExists) || body.n > 0 {
			break
		}
		slog.Warn("generated filename collided, retrying", "attempt", attempt+1)
	}
	return "", fmt.Errorf("failed to store upload: %w", err)
}

func (l *Library) Get(id string) (models.Song, error) {
	if song, err := l.cache.Get(id); err == nil {
		return song, nil
	}
	song, err := l.songs.GetSong(id)
	if err != nil {
		return models.Song{}, err
	}
	l.cache.Set(id, song)
	return song, nil
}

func (l *Library) List() ([]models.Song, error) {
	return l.songs.ListSongs()
}

// Open returns a song with a stream of its audio. The caller must close the
// stream. A song whose file disappeared is ErrNotFound.
func (l *Library) Open(id string) (models.Song, io.ReadCloser, error) {
	song, err := l.Get(id)
	if err != nil {
		return models.Song{}, nil, err
	}
	rc, found, err := l.files.Retrieve(song.File)
	if err != nil {
		return models.Song{}, nil, err
	}
	if !found {
		return models.Song{}, nil, fmt.Errorf("file %s of song %s: %w", song.File, id, models.ErrNotFound)
	}
	return song, rc, nil
}

// Delete removes a song's metadata, then its file. A file that cannot be
// disposed is left for Prune.
func (l *Library) Delete(id string) error {
	song, err := l.Get(id)
	if err != nil {
		return err
	}

	if err := l.songs.DeleteSong(id); err != nil {
		return err
	}
	_ = l.cache.Del(id)
	l.notifier.Publish(models.EventTypeSongRemoved, song)

	disposed, err := l.files.Dispose(song.File)
	switch {
	case err != nil:
		slog.Error("failed to dispose song file", "song_id", id, "file", song.File, "error", err)
	case !disposed:
		slog.Warn("song file already gone", "song_id", id, "file", song.File)
	}

	slog.Info("song deleted", "song_id", id, "file", song.File)
	return nil
}

// Prune disposes stored files that no song refers to, plus temp uploads older
// than StaleUploadAge, and returns how many were removed.
func (l *Library) Prune(ctx context.Context) (int, error) {
	l.pruneMu.Lock()
	defer l.pruneMu.Unlock()

	removed, err := l.files.SweepTemp(ctx, l.now().Add(-StaleUploadAge))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep temp uploads: %w", err)
	}
	if removed > 0 {
		slog.Info("removed stale temp uploads", "count", removed)
	}

	refs, err := l.files.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored files: %w", err)
	}
	used, err := l.songs.ListFileRefs()
	if err != nil {
		return 0, fmt.Errorf("failed to list song files: %w", err)
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, ok := used[ref]; ok {
			continue
		}
		disposed, err := l.files.Dispose(ref)
		if err != nil {
			return removed, fmt.Errorf("failed to dispose %s: %w", ref, err)
		}
		if disposed {
			removed++
			slog.Info("pruned orphaned file", "file", ref)
		}
	}
	return removed, nil
}
