package tables

import (
	"time"

	"songlake/internal/schema"
)

// songKey is the exact-equality join key between a playback event and a song
// record: (song title, artist name, duration in seconds).
type songKey struct {
	title    string
	artist   string
	duration float64
}

type songRef struct {
	songID   string
	artistID string
}

// BuildSongplays derives the fact table from playback events, resolving
// song_id/artist_id by exact match against the song records. Events with no
// match keep null ids. Exact duplicate plays collapse to one row. Events
// must already be filtered and sorted (FilterPlays); songplay_id is a
// sequential counter starting at 1 assigned in that order.
func BuildSongplays(plays []schema.LogEvent, songs []schema.SongRecord) []SongplayRow {
	lookup := make(map[songKey]songRef, len(songs))
	for _, s := range songs {
		if s.SongID == "" {
			continue
		}
		key := songKey{title: s.Title, artist: s.ArtistName, duration: s.Duration}
		if _, ok := lookup[key]; !ok {
			lookup[key] = songRef{songID: string(s.SongID), artistID: string(s.ArtistID)}
		}
	}

	type playKey struct {
		ts        int64
		userID    string
		level     string
		sessionID int64
		location  string
		userAgent string
		song      string
		artist    string
	}
	seen := make(map[playKey]struct{}, len(plays))

	var rows []SongplayRow
	var nextID int64
	for _, e := range plays {
		pk := playKey{
			ts:        e.TS,
			userID:    string(e.UserID),
			level:     e.Level,
			sessionID: e.SessionID,
			location:  e.Location,
			userAgent: e.UserAgent,
		}
		if e.Song != nil {
			pk.song = *e.Song
		}
		if e.Artist != nil {
			pk.artist = *e.Artist
		}
		if _, ok := seen[pk]; ok {
			continue
		}
		seen[pk] = struct{}{}

		var songID, artistID *string
		if e.Song != nil && e.Artist != nil && e.Length != nil {
			if ref, ok := lookup[songKey{title: *e.Song, artist: *e.Artist, duration: *e.Length}]; ok {
				songID = &ref.songID
				artistID = &ref.artistID
			}
		}

		t := time.UnixMilli(e.TS).UTC()
		nextID++
		rows = append(rows, SongplayRow{
			SongplayID: nextID,
			StartTime:  e.TS,
			UserID:     string(e.UserID),
			Level:      e.Level,
			SongID:     songID,
			ArtistID:   artistID,
			SessionID:  e.SessionID,
			Location:   e.Location,
			UserAgent:  e.UserAgent,
			Year:       int32(t.Year()),
			Month:      int32(t.Month()),
		})
	}
	return rows
}
