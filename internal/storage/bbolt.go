package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/channel-music/channel/internal/models"

	"go.etcd.io/bbolt"
)

var (
	bucketSongs = []byte("songs")
)

type BboltStorage struct {
	db *bbolt.DB
}

func NewBboltStorage(path string) (*BboltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSongs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

// UpsertSong stores a new or updated song record.
func (s *BboltStorage) UpsertSong(song models.Song) error {
	if song.ID == "" {
		return errors.New("song missing id")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSongs)
		dbSong := newDBSong(song)
		data, err := dbSong.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal song: %w", err)
		}
		return b.Put(dbSong.Key(), data)
	})
}

func (s *BboltStorage) GetSong(id string) (models.Song, error) {
	var dbSong DBSong
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSongs)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("song %s: %w", id, models.ErrNotFound)
		}
		return dbSong.UnmarshalBinary(data)
	})
	if err != nil {
		return models.Song{}, err
	}
	return dbSong.Song(), nil
}

// ListSongs returns all songs ordered by artist, album, track and title.
func (s *BboltStorage) ListSongs() ([]models.Song, error) {
	songs := []models.Song{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSongs)
		return b.ForEach(func(k, v []byte) error {
			var dbSong DBSong
			if err := dbSong.UnmarshalBinary(v); err != nil {
				return fmt.Errorf("corrupt song %s: %w", string(k), err)
			}
			songs = append(songs, dbSong.Song())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(songs, func(i, j int) bool {
		a, b := songs[i], songs[j]
		if c := strings.Compare(strings.ToLower(a.Artist), strings.ToLower(b.Artist)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(a.Album), strings.ToLower(b.Album)); c != 0 {
			return c < 0
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
	return songs, nil
}

func (s *BboltStorage) DeleteSong(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSongs)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("song %s: %w", id, models.ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}

// ListFileRefs returns the file store references used by all songs.
func (s *BboltStorage) ListFileRefs() (map[string]string, error) {
	refs := make(map[string]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSongs)
		return b.ForEach(func(k, v []byte) error {
			var dbSong DBSong
			if err := dbSong.UnmarshalBinary(v); err != nil {
				return fmt.Errorf("corrupt song %s: %w", string(k), err)
			}
			refs[dbSong.File] = dbSong.ID
			return nil
		})
	})
	return refs, err
}
