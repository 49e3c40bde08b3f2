package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/channel-music/channel/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type AdminHandler struct {
	lib          Library
	user         string
	passwordHash []byte
}

// NewAdminHandler guards admin routes with basic auth. passwordHash is a
// bcrypt hash of the admin password.
func NewAdminHandler(lib Library, user string, passwordHash []byte) *AdminHandler {
	return &AdminHandler{lib: lib, user: user, passwordHash: passwordHash}
}

// HashPassword returns the bcrypt hash NewAdminHandler expects.
func HashPassword(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return hash, nil
}

func (h *AdminHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(h.user)) != 1 ||
			bcrypt.CompareHashAndPassword(h.passwordHash, []byte(password)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="channel admin"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) PruneHandler(w http.ResponseWriter, r *http.Request) {
	removed, err := h.lib.Prune(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("prune finished", "removed", removed)
	writeJSON(w, http.StatusOK, models.PruneResponse{
		APIResponse: models.APIResponse{
			Success: true,
			Message: fmt.Sprintf("Removed %d orphaned files", removed),
		},
		Removed: removed,
	})
}

func (h *AdminHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.lib.Delete(id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: fmt.Sprintf("Song %s deleted", id),
	})
}
