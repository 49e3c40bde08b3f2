package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/channel-music/channel/internal/models"
)

func TestStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewBboltStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	now := time.Now().Unix()
	songs := []models.Song{
		{ID: "s3", Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera", Track: 11, File: "c.mp3", MimeType: "audio/mpeg", Size: 30, CreatedAt: now},
		{ID: "s1", Title: "Come Together", Artist: "The Beatles", Album: "Abbey Road", Track: 1, File: "a.mp3", MimeType: "audio/mpeg", Size: 10, CreatedAt: now},
		{ID: "s2", Title: "Something", Artist: "the beatles", Album: "Abbey Road", Track: 2, File: "b.flac", MimeType: "audio/x-flac", Size: 20, CreatedAt: now},
	}

	t.Run("Upsert", func(t *testing.T) {
		for _, s := range songs {
			if err := store.UpsertSong(s); err != nil {
				t.Fatalf("UpsertSong(%s) failed: %v", s.ID, err)
			}
		}
		if err := store.UpsertSong(models.Song{Title: "no id"}); err == nil {
			t.Error("expected error for song without id")
		}
	})

	t.Run("Get", func(t *testing.T) {
		got, err := store.GetSong("s2")
		if err != nil {
			t.Fatalf("GetSong failed: %v", err)
		}
		if got != songs[2] {
			t.Errorf("expected %+v, got %+v", songs[2], got)
		}

		if _, err := store.GetSong("missing"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		list, err := store.ListSongs()
		if err != nil {
			t.Fatalf("ListSongs failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 songs, got %d", len(list))
		}
		wantOrder := []string{"s3", "s1", "s2"}
		for i, id := range wantOrder {
			if list[i].ID != id {
				t.Errorf("position %d: expected %s, got %s", i, id, list[i].ID)
			}
		}
	})

	t.Run("Update", func(t *testing.T) {
		updated := songs[0]
		updated.Title = "Bohemian Rhapsody (Remastered)"
		if err := store.UpsertSong(updated); err != nil {
			t.Fatalf("UpsertSong failed: %v", err)
		}
		got, err := store.GetSong(updated.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != updated.Title {
			t.Errorf("expected title %q, got %q", updated.Title, got.Title)
		}
	})

	t.Run("FileRefs", func(t *testing.T) {
		refs, err := store.ListFileRefs()
		if err != nil {
			t.Fatalf("ListFileRefs failed: %v", err)
		}
		if len(refs) != 3 {
			t.Errorf("expected 3 refs, got %d", len(refs))
		}
		if refs["b.flac"] != "s2" {
			t.Errorf("expected b.flac to belong to s2, got %q", refs["b.flac"])
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.DeleteSong("s1"); err != nil {
			t.Fatalf("DeleteSong failed: %v", err)
		}
		if _, err := store.GetSong("s1"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteSong("s1"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})
}

func TestStorage_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	store, err := NewBboltStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	song := models.Song{ID: "s1", Title: "Persisted", File: "p.ogg"}
	if err := store.UpsertSong(song); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewBboltStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	got, err := store.GetSong("s1")
	if err != nil {
		t.Fatalf("GetSong after reopen failed: %v", err)
	}
	if got.File != "p.ogg" {
		t.Errorf("expected file p.ogg, got %s", got.File)
	}
}
