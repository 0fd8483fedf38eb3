package source

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"songlake/internal/schema"
)

// ReadStats reports what a bulk read touched.
type ReadStats struct {
	FilesFound   int
	FilesRead    int
	FilesSkipped int
	LinesDropped int
}

// ReadSongs lists and decodes every song-data file under the store.
func ReadSongs(ctx context.Context, store Store, workers int, logger *zap.Logger) ([]schema.SongRecord, ReadStats, error) {
	return readAll(ctx, store, workers, logger, schema.DecodeSongs)
}

// ReadEvents lists and decodes every log-data file under the store.
func ReadEvents(ctx context.Context, store Store, workers int, logger *zap.Logger) ([]schema.LogEvent, ReadStats, error) {
	return readAll(ctx, store, workers, logger, schema.DecodeEvents)
}

// readAll fans file reads out over a bounded worker pool. A file that cannot
// be read or holds no parseable records is skipped with a warning; the run
// only fails if listing itself fails. Results keep listing order so repeated
// runs over identical input produce identical record order.
func readAll[T any](ctx context.Context, store Store, workers int, logger *zap.Logger, decode func([]byte) ([]T, int)) ([]T, ReadStats, error) {
	keys, err := store.List(ctx)
	if err != nil {
		return nil, ReadStats{}, err
	}

	stats := ReadStats{FilesFound: len(keys)}
	if len(keys) == 0 {
		return nil, stats, nil
	}
	if workers < 1 {
		workers = 1
	}

	perFile := make([][]T, len(keys))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			data, err := store.Read(ctx, key)
			if err != nil {
				logger.Warn("skipping unreadable file", zap.String("key", key), zap.Error(err))
				mu.Lock()
				stats.FilesSkipped++
				mu.Unlock()
				return
			}

			records, dropped := decode(data)
			if dropped > 0 {
				logger.Warn("dropped malformed records",
					zap.String("key", key), zap.Int("dropped", dropped))
			}

			mu.Lock()
			stats.FilesRead++
			stats.LinesDropped += dropped
			mu.Unlock()
			perFile[i] = records
		}(i, key)
	}
	wg.Wait()

	var all []T
	for _, records := range perFile {
		all = append(all, records...)
	}
	return all, stats, nil
}
