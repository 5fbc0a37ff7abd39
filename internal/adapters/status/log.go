package status

import (
	"context"
	"log/slog"

	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/model"
)

var _ core.StatusReporter = (*Log)(nil)

// Log writes status updates as structured log entries. Per-record progress is
// logged at debug level; everything else at info.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a reporter writing to logger, or slog.Default when nil.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "status")}
}

// Report logs st.
func (l *Log) Report(ctx context.Context, st model.Status) {
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("course_id", st.CourseID),
		slog.String("phase", string(st.Phase)),
		slog.Duration("elapsed", st.Elapsed),
	}
	if st.Total > 0 {
		level = slog.LevelDebug
		attrs = append(attrs, slog.Int("done", st.Done), slog.Int("total", st.Total))
	}
	l.logger.LogAttrs(ctx, level, st.Message, attrs...)
}

// Multi fans a status update out to several reporters.
type Multi []core.StatusReporter

var _ core.StatusReporter = Multi(nil)

// Report forwards st to every non-nil reporter.
func (m Multi) Report(ctx context.Context, st model.Status) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, st)
		}
	}
}
