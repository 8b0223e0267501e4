package event

import (
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
)

// LogSink records stage transitions as structured logs. Per-chunk downloading
// events keep the same stage and are not repeated.
type LogSink struct {
	stages map[string]entity.Stage
}

func NewLogSink() *LogSink {
	return &LogSink{stages: make(map[string]entity.Stage)}
}

func (s *LogSink) Consume(event entity.ProgressEvent) {
	key := barKey(event)
	if s.stages[key] == event.Stage {
		return
	}
	s.stages[key] = event.Stage

	attrs := []any{
		"run_id", event.RunID,
		"source", event.Source,
		"stage", event.Stage,
	}
	if event.Filename != "" {
		attrs = append(attrs, "filename", event.Filename)
	}
	if event.ItemIdx > 0 && event.ItemCount > 0 {
		attrs = append(attrs, "item", fmt.Sprintf("%d/%d", event.ItemIdx, event.ItemCount))
	}
	if event.Total > 0 {
		attrs = append(attrs, "total_bytes", event.Total)
	}
	if event.Message != "" {
		attrs = append(attrs, "message", event.Message)
	}

	slog.Info("transfer progress", attrs...)

	if event.Stage == entity.StageDone || event.Stage == entity.StageError {
		delete(s.stages, key)
	}
}
