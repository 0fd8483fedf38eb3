// Package schema declares the input record shapes and their tolerant JSON
// decoding. Schemas are explicit rather than inferred: every field the
// pipeline consumes is named here with its type, and a record missing a
// field decodes with that field null rather than failing the run.
package schema

import (
	"bufio"
	"bytes"
	"encoding/json"
)

// ID decodes an identifier that source files carry inconsistently as either
// a JSON string or a bare number. Null decodes to the empty ID.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// SongRecord is one raw song-metadata record. Latitude and longitude are
// frequently null in the source data.
type SongRecord struct {
	SongID          ID       `json:"song_id"`
	Title           string   `json:"title"`
	ArtistID        ID       `json:"artist_id"`
	ArtistName      string   `json:"artist_name"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	Year            int32    `json:"year"`
	Duration        float64  `json:"duration"`
}

// LogEvent is one raw activity-log record. Song, artist and length are only
// populated on playback events; ts is epoch milliseconds.
type LogEvent struct {
	UserID    ID       `json:"userId"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Gender    string   `json:"gender"`
	Level     string   `json:"level"`
	TS        int64    `json:"ts"`
	Song      *string  `json:"song"`
	Artist    *string  `json:"artist"`
	Length    *float64 `json:"length"`
	Page      string   `json:"page"`
	SessionID int64    `json:"sessionId"`
	Location  string   `json:"location"`
	UserAgent string   `json:"userAgent"`
}

// DecodeSongs parses a song-data file and returns the records it holds plus
// the number of malformed entries that were dropped.
func DecodeSongs(data []byte) ([]SongRecord, int) {
	return decodeFile[SongRecord](data)
}

// DecodeEvents parses a log-data file and returns the events it holds plus
// the number of malformed entries that were dropped.
func DecodeEvents(data []byte) ([]LogEvent, int) {
	return decodeFile[LogEvent](data)
}

// decodeFile handles both layouts the source data uses: one JSON object per
// line, or a single (possibly multi-line) object per file. Lines that fail
// to parse are dropped, never fatal.
func decodeFile[T any](data []byte) ([]T, int) {
	var records []T
	dropped := 0

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lines := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines++
		var rec T
		if err := json.Unmarshal(line, &rec); err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	// Every line failed: the file may be one pretty-printed object.
	if len(records) == 0 && lines > 1 {
		var rec T
		if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err == nil {
			return []T{rec}, 0
		}
	}

	return records, dropped
}
