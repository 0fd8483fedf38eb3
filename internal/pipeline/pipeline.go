// Package pipeline runs the full ETL: song-data transform, then log-data
// transform. Execution is strictly sequential and a run has no retry or
// checkpoint semantics; the first error aborts and propagates to the caller.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"songlake/internal/config"
	"songlake/internal/schema"
	"songlake/internal/sink"
	"songlake/internal/source"
	"songlake/internal/tables"
)

// Input data lives under fixed prefixes of the input base path, mirroring
// the source dataset layout.
const (
	songDataPrefix = "song_data"
	logDataPrefix  = "log_data"
)

// Pipeline holds everything one run needs. It is constructed explicitly and
// carries no ambient global state, so tests can point it at temp
// directories.
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
	sess   *session.Session
}

// New builds a Pipeline. An AWS session is only created when a configured
// path addresses S3; credential validation already happened at config load.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg, logger: logger}

	if cfg.NeedsCredentials() {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
		if err != nil {
			return nil, fmt.Errorf("failed to create aws session: %w", err)
		}
		p.sess = sess
	}
	return p, nil
}

// Run executes the full pipeline: song transform, then log transform (whose
// join re-reads the song data, keeping the two phases independent).
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC().Format(time.RFC3339),
	}
	p.logger.Info("starting run",
		zap.String("run_id", stats.RunID),
		zap.String("input", p.cfg.InputPath),
		zap.String("output", p.cfg.OutputPath))

	w, err := sink.NewWriter(p.cfg.OutputPath, p.sess, stats.RunID, p.logger)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	if err := p.processSongData(ctx, w, stats); err != nil {
		return nil, fmt.Errorf("song data transform failed: %w", err)
	}
	if err := p.processLogData(ctx, w, stats); err != nil {
		return nil, fmt.Errorf("log data transform failed: %w", err)
	}

	stats.Duration = time.Since(start).String()
	p.logger.Info("run complete",
		zap.String("run_id", stats.RunID),
		zap.String("duration", stats.Duration))
	return stats, nil
}

// inputPath joins a data prefix onto the input base, for either URL-style s3
// paths or local filesystem paths.
func (p *Pipeline) inputPath(prefix string) string {
	if config.IsS3(p.cfg.InputPath) {
		return p.cfg.InputPath + "/" + prefix
	}
	return filepath.Join(p.cfg.InputPath, prefix)
}

func (p *Pipeline) readSongRecords(ctx context.Context) ([]schema.SongRecord, source.ReadStats, error) {
	store, err := source.Open(p.inputPath(songDataPrefix), p.sess)
	if err != nil {
		return nil, source.ReadStats{}, err
	}
	records, rs, err := source.ReadSongs(ctx, store, p.cfg.Workers, p.logger)
	if err != nil {
		return nil, rs, err
	}
	return records, rs, nil
}

// processSongData builds and writes the songs and artists dimensions.
func (p *Pipeline) processSongData(ctx context.Context, w *sink.Writer, stats *RunStats) error {
	p.logger.Info("processing song data")
	records, rs, err := p.readSongRecords(ctx)
	if err != nil {
		return err
	}
	stats.SongFilesRead = rs.FilesRead
	stats.FilesSkipped += rs.FilesSkipped
	stats.LinesDropped += rs.LinesDropped

	songs := tables.BuildSongs(records)
	if err := sink.WriteTable(ctx, w, "songs", songs, func(r tables.SongRow) []sink.Partition {
		return []sink.Partition{
			{Key: "year", Value: strconv.Itoa(int(r.Year))},
			{Key: "artist_id", Value: r.ArtistID},
		}
	}); err != nil {
		return err
	}
	stats.Songs = len(songs)

	artists := tables.BuildArtists(records)
	if err := sink.WriteTable(ctx, w, "artists", artists, nil); err != nil {
		return err
	}
	stats.Artists = len(artists)
	return nil
}

// processLogData builds and writes users, time and songplays. Song records
// are re-read from the input for the join rather than passed from the song
// phase, matching the phase independence of the original design.
func (p *Pipeline) processLogData(ctx context.Context, w *sink.Writer, stats *RunStats) error {
	p.logger.Info("processing log data")
	store, err := source.Open(p.inputPath(logDataPrefix), p.sess)
	if err != nil {
		return err
	}
	events, rs, err := source.ReadEvents(ctx, store, p.cfg.Workers, p.logger)
	if err != nil {
		return err
	}
	stats.LogFilesRead = rs.FilesRead
	stats.FilesSkipped += rs.FilesSkipped
	stats.LinesDropped += rs.LinesDropped

	plays := tables.FilterPlays(events)
	p.logger.Info("filtered playback events",
		zap.Int("events", len(events)), zap.Int("plays", len(plays)))

	users := tables.BuildUsers(plays)
	if err := sink.WriteTable(ctx, w, "users", users, nil); err != nil {
		return err
	}
	stats.Users = len(users)

	timeRows := tables.BuildTime(plays)
	if err := sink.WriteTable(ctx, w, "time", timeRows, func(r tables.TimeRow) []sink.Partition {
		return []sink.Partition{
			{Key: "year", Value: strconv.Itoa(int(r.Year))},
			{Key: "month", Value: strconv.Itoa(int(r.Month))},
		}
	}); err != nil {
		return err
	}
	stats.TimeRows = len(timeRows)

	songRecords, srs, err := p.readSongRecords(ctx)
	if err != nil {
		return err
	}
	stats.FilesSkipped += srs.FilesSkipped

	songplays := tables.BuildSongplays(plays, songRecords)
	if err := sink.WriteTable(ctx, w, "songplays", songplays, func(r tables.SongplayRow) []sink.Partition {
		return []sink.Partition{
			{Key: "year", Value: strconv.Itoa(int(r.Year))},
			{Key: "month", Value: strconv.Itoa(int(r.Month))},
		}
	}); err != nil {
		return err
	}
	stats.Songplays = len(songplays)
	return nil
}
