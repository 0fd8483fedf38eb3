package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songlake/internal/schema"
)

func nextSongEvent(userID string, ts, sessionID int64, song, artist string, length float64) schema.LogEvent {
	return schema.LogEvent{
		UserID:    schema.ID(userID),
		Level:     "paid",
		TS:        ts,
		Page:      PageNextSong,
		SessionID: sessionID,
		Song:      &song,
		Artist:    &artist,
		Length:    &length,
		Location:  "San Jose-Sunnyvale-Santa Clara, CA",
		UserAgent: "Mozilla/5.0",
	}
}

func TestBuildSongplaysJoinMatch(t *testing.T) {
	songs := []schema.SongRecord{
		songRecord("SOSVNA1", "Loaded", "ARNF1", "Primal Scream", 1991, 286.12),
	}
	plays := FilterPlays([]schema.LogEvent{
		nextSongEvent("26", 1541990258796, 583, "Loaded", "Primal Scream", 286.12),
	})

	rows := BuildSongplays(plays, songs)
	require.Len(t, rows, 1)
	r := rows[0]
	require.NotNil(t, r.SongID)
	require.NotNil(t, r.ArtistID)
	assert.Equal(t, "SOSVNA1", *r.SongID)
	assert.Equal(t, "ARNF1", *r.ArtistID)
	assert.Equal(t, int64(1), r.SongplayID)
	assert.Equal(t, int32(2018), r.Year)
	assert.Equal(t, int32(11), r.Month)
}

func TestBuildSongplaysJoinMissKeepsRow(t *testing.T) {
	songs := []schema.SongRecord{
		songRecord("SOSVNA1", "Loaded", "ARNF1", "Primal Scream", 1991, 286.12),
	}
	plays := FilterPlays([]schema.LogEvent{
		// same title, different duration: exact-equality join must miss
		nextSongEvent("26", 1541990258796, 583, "Loaded", "Primal Scream", 286.13),
		nextSongEvent("26", 1541990260000, 583, "Unknown Song", "Nobody", 100.0),
	})

	rows := BuildSongplays(plays, songs)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Nil(t, r.SongID)
		assert.Nil(t, r.ArtistID)
	}
}

func TestBuildSongplaysIDsUniqueAndMonotonic(t *testing.T) {
	var events []schema.LogEvent
	for i := int64(0); i < 50; i++ {
		events = append(events, nextSongEvent("26", 1000+i, i, "Song", "Artist", float64(i)))
	}
	rows := BuildSongplays(FilterPlays(events), nil)
	require.Len(t, rows, 50)

	seen := make(map[int64]struct{})
	var prev int64
	for _, r := range rows {
		_, dup := seen[r.SongplayID]
		assert.False(t, dup, "duplicate songplay_id %d", r.SongplayID)
		seen[r.SongplayID] = struct{}{}
		assert.Greater(t, r.SongplayID, prev)
		prev = r.SongplayID
	}
}

func TestBuildSongplaysCollapsesExactDuplicates(t *testing.T) {
	e := nextSongEvent("26", 1541990258796, 583, "Loaded", "Primal Scream", 286.12)
	rows := BuildSongplays(FilterPlays([]schema.LogEvent{e, e}), nil)
	assert.Len(t, rows, 1)
}

func TestBuildSongplaysEmptyInputs(t *testing.T) {
	assert.Empty(t, BuildSongplays(nil, nil))

	// songs without matching plays still yield an empty fact table
	songs := []schema.SongRecord{songRecord("SOA", "A", "AR1", "One", 0, 1)}
	assert.Empty(t, BuildSongplays(nil, songs))
}

func TestBuildSongplaysNullSongFieldsNeverMatch(t *testing.T) {
	songs := []schema.SongRecord{songRecord("SOA", "", "AR1", "", 0, 0)}
	plays := FilterPlays([]schema.LogEvent{{
		UserID:    "26",
		TS:        1000,
		Page:      PageNextSong,
		SessionID: 1,
	}})

	rows := BuildSongplays(plays, songs)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].SongID)
}
