package event

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
)

type ProgressStore interface {
	SetProgress(ctx context.Context, event entity.ProgressEvent) error
}

// SnapshotSink writes the latest event per run into the store so status
// polling can report live progress.
type SnapshotSink struct {
	store ProgressStore
}

func NewSnapshotSink(store ProgressStore) *SnapshotSink {
	return &SnapshotSink{store: store}
}

func (s *SnapshotSink) Consume(event entity.ProgressEvent) {
	if event.RunID == "" {
		return
	}

	if err := s.store.SetProgress(context.Background(), event); err != nil {
		slog.Warn("failed to snapshot progress", "event_id", event.EventID, "run_id", event.RunID, "error", err)
	}
}
