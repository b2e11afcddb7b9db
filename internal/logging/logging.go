// Package logging configures the process-wide zerolog logger and an
// asynchronous sink that persists entries to the application_logs table,
// which backs the admin log viewer.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"parking_reserve/internal/domain"
	"parking_reserve/internal/repository"

	"github.com/rs/zerolog"
)

// Setup builds the root logger. When store is non-nil every entry is also
// queued for persistence; the returned closer drains the queue.
func Setup(level string, store repository.ApplicationLogRepository) (zerolog.Logger, func()) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}
	closer := func() {}
	if store != nil {
		sink := newStoreSink(store)
		writers = append(writers, sink)
		closer = sink.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().Timestamp().Logger()
	return logger, closer
}

// storeSink decodes zerolog's JSON lines and inserts them off the hot path.
// The queue drops entries when full rather than blocking request handling.
type storeSink struct {
	store   repository.ApplicationLogRepository
	entries chan domain.ApplicationLog
	done    chan struct{}
}

func newStoreSink(store repository.ApplicationLogRepository) *storeSink {
	s := &storeSink{
		store:   store,
		entries: make(chan domain.ApplicationLog, 256),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

type logLine struct {
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
}

func (s *storeSink) Write(p []byte) (int, error) {
	var line logLine
	if err := json.Unmarshal(p, &line); err != nil {
		return len(p), nil
	}
	entry := domain.ApplicationLog{
		Level:     line.Level,
		Component: line.Component,
		Message:   line.Message,
		CreatedAt: time.Now().UTC(),
	}
	select {
	case s.entries <- entry:
	default:
		// queue full, drop
	}
	return len(p), nil
}

func (s *storeSink) run() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.store.Create(ctx, &entry)
		cancel()
	}
}

func (s *storeSink) Close() {
	close(s.entries)
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
	}
}
