package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"songlake/internal/config"
	"songlake/internal/pipeline"
)

const runTimeout = 6 * time.Hour

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to pipeline config")
	statsPath := flag.String("stats", "etl_stats.json", "path for the run stats artifact")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := cfg.LoadCredentials(); err != nil {
		logger.Fatal("failed to load credentials", zap.Error(err))
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	stats, err := p.Run(ctx)
	if err != nil {
		logger.Fatal("pipeline failed", zap.Error(err))
	}

	if err := stats.WriteFile(*statsPath); err != nil {
		logger.Warn("failed to write run stats", zap.Error(err))
	}
	logger.Info("done",
		zap.Int("songs", stats.Songs),
		zap.Int("artists", stats.Artists),
		zap.Int("users", stats.Users),
		zap.Int("time_rows", stats.TimeRows),
		zap.Int("songplays", stats.Songplays))
}
