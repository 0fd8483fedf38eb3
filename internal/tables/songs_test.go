package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songlake/internal/schema"
)

func songRecord(songID, title, artistID, artistName string, year int32, duration float64) schema.SongRecord {
	return schema.SongRecord{
		SongID:     schema.ID(songID),
		Title:      title,
		ArtistID:   schema.ID(artistID),
		ArtistName: artistName,
		Year:       year,
		Duration:   duration,
	}
}

func TestBuildSongsDedupBySongID(t *testing.T) {
	records := []schema.SongRecord{
		songRecord("SOB", "Second", "AR2", "Two", 2001, 120.0),
		songRecord("SOA", "First", "AR1", "One", 1999, 100.0),
		songRecord("SOB", "Second duplicate", "AR2", "Two", 2001, 120.0),
	}

	rows := BuildSongs(records)
	require.Len(t, rows, 2)
	assert.Equal(t, "SOA", rows[0].SongID)
	assert.Equal(t, "SOB", rows[1].SongID)
	// first occurrence wins
	assert.Equal(t, "Second", rows[1].Title)
}

func TestBuildSongsDropsMissingID(t *testing.T) {
	records := []schema.SongRecord{
		songRecord("", "No id", "AR1", "One", 0, 10),
		songRecord("SOA", "Has id", "AR1", "One", 0, 10),
	}
	rows := BuildSongs(records)
	require.Len(t, rows, 1)
	assert.Equal(t, "SOA", rows[0].SongID)
}

func TestBuildSongsIdempotent(t *testing.T) {
	records := []schema.SongRecord{
		songRecord("SOB", "B", "AR2", "Two", 2001, 120.0),
		songRecord("SOA", "A", "AR1", "One", 1999, 100.0),
	}
	first := BuildSongs(records)
	second := BuildSongs(records)
	assert.Equal(t, first, second)
}

func TestBuildArtistsDedupByArtistID(t *testing.T) {
	lat, lon := 55.86, -4.25
	records := []schema.SongRecord{
		{SongID: "SOA", ArtistID: "AR1", ArtistName: "One", ArtistLocation: "Glasgow", ArtistLatitude: &lat, ArtistLongitude: &lon},
		{SongID: "SOB", ArtistID: "AR1", ArtistName: "One again"},
		{SongID: "SOC", ArtistID: "AR2", ArtistName: "Two"},
	}

	rows := BuildArtists(records)
	require.Len(t, rows, 2)
	assert.Equal(t, "AR1", rows[0].ArtistID)
	assert.Equal(t, "One", rows[0].Name)
	require.NotNil(t, rows[0].Latitude)
	assert.InDelta(t, 55.86, *rows[0].Latitude, 1e-9)
	assert.Equal(t, "AR2", rows[1].ArtistID)
	assert.Nil(t, rows[1].Latitude)
}

func TestBuildTablesEmptyInput(t *testing.T) {
	assert.Empty(t, BuildSongs(nil))
	assert.Empty(t, BuildArtists(nil))
}
