package tables

import (
	"sort"

	"songlake/internal/schema"
)

// BuildSongs projects song records into the songs dimension, one row per
// song_id. The first record seen for an id wins; records without a song_id
// are dropped. Output is sorted by song_id.
func BuildSongs(records []schema.SongRecord) []SongRow {
	seen := make(map[string]struct{}, len(records))
	var rows []SongRow
	for _, r := range records {
		id := string(r.SongID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, SongRow{
			SongID:   id,
			Title:    r.Title,
			ArtistID: string(r.ArtistID),
			Year:     r.Year,
			Duration: r.Duration,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SongID < rows[j].SongID })
	return rows
}

// BuildArtists projects song records into the artists dimension, one row per
// artist_id, first record wins. Output is sorted by artist_id.
func BuildArtists(records []schema.SongRecord) []ArtistRow {
	seen := make(map[string]struct{}, len(records))
	var rows []ArtistRow
	for _, r := range records {
		id := string(r.ArtistID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, ArtistRow{
			ArtistID:  id,
			Name:      r.ArtistName,
			Location:  r.ArtistLocation,
			Latitude:  r.ArtistLatitude,
			Longitude: r.ArtistLongitude,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ArtistID < rows[j].ArtistID })
	return rows
}
