package main

import (
	"log/slog"

	"github.com/zfsmirror/zfsync/internal/config"
	"github.com/zfsmirror/zfsync/internal/logging"
)

func setupLogging(cfg *config.RunConfig) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logger, err := logging.New(logging.Options{
		Level: level,
		Human: true,
		Sink:  &logging.FileSink{Dir: cfg.LogDir},
	})
	if err != nil {
		return nil, func() {}, err
	}
	slog.SetDefault(logger)
	return logger, func() {}, nil
}
