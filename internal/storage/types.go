package storage

import (
	"encoding"

	"github.com/channel-music/channel/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type DBSong struct {
	ID        string `msgpack:"id"`
	Title     string `msgpack:"title"`
	Artist    string `msgpack:"artist"`
	Album     string `msgpack:"album"`
	Track     int    `msgpack:"track"`
	File      string `msgpack:"file"`
	MimeType  string `msgpack:"mimeType"`
	Size      int64  `msgpack:"size"`
	CreatedAt int64  `msgpack:"createdAt"`
}

var _ Storeable = (*DBSong)(nil)

func newDBSong(s models.Song) *DBSong {
	return &DBSong{
		ID:        s.ID,
		Title:     s.Title,
		Artist:    s.Artist,
		Album:     s.Album,
		Track:     s.Track,
		File:      s.File,
		MimeType:  s.MimeType,
		Size:      s.Size,
		CreatedAt: s.CreatedAt,
	}
}

func (s *DBSong) Song() models.Song {
	return models.Song{
		ID:        s.ID,
		Title:     s.Title,
		Artist:    s.Artist,
		Album:     s.Album,
		Track:     s.Track,
		File:      s.File,
		MimeType:  s.MimeType,
		Size:      s.Size,
		CreatedAt: s.CreatedAt,
	}
}

func (s *DBSong) Key() []byte {
	return []byte(s.ID)
}

func (s *DBSong) MarshalBinary() (data []byte, err error) {
	type alias DBSong
	return msgpack.Marshal((*alias)(s))
}

func (s *DBSong) UnmarshalBinary(data []byte) error {
	type alias DBSong
	return msgpack.Unmarshal(data, (*alias)(s))
}
