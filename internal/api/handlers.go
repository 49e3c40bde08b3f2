package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/channel-music/channel/internal/content"
	"github.com/channel-music/channel/internal/filestore"
	"github.com/channel-music/channel/internal/library"
	"github.com/channel-music/channel/internal/models"
)

// memoryLimit is how much of a multipart upload is kept in memory before
// the rest spills to temporary files.
const memoryLimit = 8 << 20

// Library is the song library the handlers serve.
type Library interface {
	Upload(req library.UploadRequest) (models.Song, error)
	Get(id string) (models.Song, error)
	List() ([]models.Song, error)
	Open(id string) (models.Song, io.ReadCloser, error)
	Delete(id string) error
	Prune(ctx context.Context) (int, error)
}

type API struct {
	lib           Library
	maxUploadSize int64
}

func New(lib Library, maxUploadSize int64) *API {
	return &API{lib: lib, maxUploadSize: maxUploadSize}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeError maps library errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		status = http.StatusRequestEntityTooLarge
		message = fmt.Sprintf("Upload exceeds %d bytes", maxBytes.Limit)
	case errors.Is(err, filestore.ErrRootNotFound):
		// Misconfiguration, not a missing resource.
	case errors.Is(err, content.ErrNotAudio):
		status = http.StatusUnsupportedMediaType
		message = err.Error()
	case errors.Is(err, models.ErrInvalidArgument):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = "Song not found"
	case errors.Is(err, models.ErrAlreadyExists):
		status = http.StatusConflict
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	writeJSON(w, status, models.APIResponse{Success: false, Message: message})
}

func (a *API) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadSize)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, err)
			return
		}
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	var track int
	if v := strings.TrimSpace(r.FormValue("track")); v != "" {
		if track, err = strconv.Atoi(v); err != nil {
			http.Error(w, "Track must be a number", http.StatusBadRequest)
			return
		}
	}

	song, err := a.lib.Upload(library.UploadRequest{
		Filename: header.Filename,
		Content:  file,
		Meta: models.SongMeta{
			Title:  r.FormValue("title"),
			Artist: r.FormValue("artist"),
			Album:  r.FormValue("album"),
			Track:  track,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, song)
}

func (a *API) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := a.lib.List()
	if err != nil {
		writeError(w, err)
		return
	}
	if songs == nil {
		songs = []models.Song{}
	}
	writeJSON(w, http.StatusOK, songs)
}

func (a *API) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	song, err := a.lib.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// StreamSongHandler serves the audio of a song. Seekable files support
// range requests; ?download=1 asks the browser to save the file.
func (a *API) StreamSongHandler(w http.ResponseWriter, r *http.Request) {
	song, rc, err := a.lib.Open(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", song.MimeType)
	if r.URL.Query().Get("download") == "1" {
		name := song.Title + filepath.Ext(song.File)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, song.File, time.Unix(song.CreatedAt, 0), rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(song.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		slog.Debug("stream interrupted", "song_id", song.ID, "error", err)
	}
}

func (a *API) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.lib.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: fmt.Sprintf("Song %s deleted", id),
	})
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Message: "ok"})
}
