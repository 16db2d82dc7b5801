package analysis

import (
	"io"
	"log/slog"
)

type settings struct {
	logger        *slog.Logger
	maxLength     int
	batchSize     int
	progressEvery int
}

type Option func(*settings)

// WithLogger sets the logger used for progress and classifier failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMaxLength(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

func WithBatchSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithProgressEvery logs a progress line every n articles.
func WithProgressEvery(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.progressEvery = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxLength:     MaxTextLength,
		batchSize:     DefaultBatchSize,
		progressEvery: 25,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
