package songbook

import (
	"context"
	"errors"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) SongCreated(ctx context.Context, song *Song) error {
	return nil
}

func (n *NoopEventSink) SongUpdated(ctx context.Context, song *Song) error {
	return nil
}

func (n *NoopEventSink) SongDeleted(ctx context.Context, id string) error {
	return nil
}

// LogEventSink is an event sink that logs events but takes no other action.
// Useful for development and debugging.
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink creates a logging event sink. A nil logger uses slog.Default().
func NewLogEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger}
}

// SongCreated logs the song creation event
func (l *LogEventSink) SongCreated(ctx context.Context, song *Song) error {
	l.logger.InfoContext(ctx, "Song created", "song_id", song.ID, "title", song.Title)
	return nil
}

// SongUpdated logs the song update event
func (l *LogEventSink) SongUpdated(ctx context.Context, song *Song) error {
	l.logger.InfoContext(ctx, "Song updated", "song_id", song.ID, "updated_at", song.UpdatedAt)
	return nil
}

// SongDeleted logs the song deletion event
func (l *LogEventSink) SongDeleted(ctx context.Context, id string) error {
	l.logger.InfoContext(ctx, "Song deleted", "song_id", id)
	return nil
}

// MultiEventSink delivers every event to each sink in order. All sinks see
// the event even when an earlier one fails; the errors are joined.
type MultiEventSink []EventSink

func (m MultiEventSink) SongCreated(ctx context.Context, song *Song) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.SongCreated(ctx, song))
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) SongUpdated(ctx context.Context, song *Song) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.SongUpdated(ctx, song))
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) SongDeleted(ctx context.Context, id string) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.SongDeleted(ctx, id))
	}
	return errors.Join(errs...)
}
