package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"go.uber.org/zap"

	"songlake/internal/tables"
)

func newLocalWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewWriter(dir, nil, "testrun", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w, dir
}

func readSongRows(t *testing.T, path string) []tables.SongRow {
	t.Helper()
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(tables.SongRow), parquetParallelism)
	require.NoError(t, err)
	defer pr.ReadStop()

	rows := make([]tables.SongRow, pr.GetNumRows())
	require.NoError(t, pr.Read(&rows))
	return rows
}

func TestWriteTablePartitionLayout(t *testing.T) {
	w, dir := newLocalWriter(t)

	rows := []tables.SongRow{
		{SongID: "SOA", Title: "A", ArtistID: "AR1", Year: 1999, Duration: 100},
		{SongID: "SOB", Title: "B", ArtistID: "AR1", Year: 1999, Duration: 120},
		{SongID: "SOC", Title: "C", ArtistID: "AR2", Year: 2001, Duration: 90},
	}
	err := WriteTable(context.Background(), w, "songs", rows, func(r tables.SongRow) []Partition {
		year := "1999"
		if r.Year != 1999 {
			year = "2001"
		}
		return []Partition{{Key: "year", Value: year}, {Key: "artist_id", Value: r.ArtistID}}
	})
	require.NoError(t, err)

	got := readSongRows(t, filepath.Join(dir, "songs", "year=1999", "artist_id=AR1", "part-00000-testrun.parquet"))
	require.Len(t, got, 2)
	assert.Equal(t, "SOA", got[0].SongID)
	assert.Equal(t, 100.0, got[0].Duration)

	got = readSongRows(t, filepath.Join(dir, "songs", "year=2001", "artist_id=AR2", "part-00000-testrun.parquet"))
	require.Len(t, got, 1)
	assert.Equal(t, "SOC", got[0].SongID)
}

func TestWriteTableUnpartitioned(t *testing.T) {
	w, dir := newLocalWriter(t)

	lat := 55.86
	rows := []tables.ArtistRow{
		{ArtistID: "AR1", Name: "One", Location: "Glasgow", Latitude: &lat},
		{ArtistID: "AR2", Name: "Two"},
	}
	require.NoError(t, WriteTable[tables.ArtistRow](context.Background(), w, "artists", rows, nil))

	path := filepath.Join(dir, "artists", "part-00000-testrun.parquet")
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(tables.ArtistRow), parquetParallelism)
	require.NoError(t, err)
	defer pr.ReadStop()

	got := make([]tables.ArtistRow, pr.GetNumRows())
	require.NoError(t, pr.Read(&got))
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Latitude)
	assert.InDelta(t, 55.86, *got[0].Latitude, 1e-9)
	assert.Nil(t, got[1].Latitude)
}

func TestWriteTableOverwritesPriorRun(t *testing.T) {
	w, dir := newLocalWriter(t)
	ctx := context.Background()

	first := []tables.SongRow{{SongID: "SOA", ArtistID: "AR1", Year: 1999}}
	require.NoError(t, WriteTable(ctx, w, "songs", first, func(r tables.SongRow) []Partition {
		return []Partition{{Key: "year", Value: "1999"}, {Key: "artist_id", Value: r.ArtistID}}
	}))

	// second run lands in a different partition; the first must be gone
	second := []tables.SongRow{{SongID: "SOB", ArtistID: "AR2", Year: 2001}}
	require.NoError(t, WriteTable(ctx, w, "songs", second, func(r tables.SongRow) []Partition {
		return []Partition{{Key: "year", Value: "2001"}, {Key: "artist_id", Value: r.ArtistID}}
	}))

	_, err := os.Stat(filepath.Join(dir, "songs", "year=1999"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "songs", "year=2001", "artist_id=AR2", "part-00000-testrun.parquet"))
	assert.NoError(t, err)
}

func TestWriteTableEmptyRows(t *testing.T) {
	w, dir := newLocalWriter(t)

	require.NoError(t, WriteTable[tables.SongRow](context.Background(), w, "songs", nil, nil))

	entries, err := os.ReadDir(filepath.Join(dir, "songs"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPartitionDir(t *testing.T) {
	assert.Equal(t, "", partitionDir(nil))
	assert.Equal(t, "year=2018/month=11", partitionDir([]Partition{
		{Key: "year", Value: "2018"},
		{Key: "month", Value: "11"},
	}))
}
