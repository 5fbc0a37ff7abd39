package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/model"
)

var _ core.SummaryExporter = (*Exporter)(nil)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options groups dependencies for Exporter.
type Options struct {
	Formats []config.ExportFormat
	Store   ArtifactStore
	Clock   core.TimeProvider
	Logger  *slog.Logger
}

// Exporter renders a run summary in every configured format and stores each file.
type Exporter struct {
	renderers []Renderer
	store     ArtifactStore
	clock     core.TimeProvider
	logger    *slog.Logger
}

// New constructs an Exporter. Formats default to CSV.
func New(opts Options) (*Exporter, error) {
	if opts.Store == nil {
		return nil, errors.New("ArtifactStore is required")
	}
	formats := opts.Formats
	if len(formats) == 0 {
		formats = []config.ExportFormat{config.ExportCSV}
	}
	renderers := make([]Renderer, 0, len(formats))
	for _, f := range formats {
		r, err := RendererFor(f)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, r)
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		renderers: renderers,
		store:     opts.Store,
		clock:     clock,
		logger:    logger.With("component", "export"),
	}, nil
}

// NewFromConfig picks S3 storage when a bucket is configured and the local
// export directory otherwise.
func NewFromConfig(cfg config.ExportConfig, logger *slog.Logger) (*Exporter, error) {
	var store ArtifactStore = NewLocalStore(cfg.Dir)
	if cfg.UseS3() {
		s3, err := NewS3Store(cfg)
		if err != nil {
			return nil, err
		}
		store = s3
	}
	return New(Options{Formats: cfg.Formats, Store: store, Logger: logger})
}

// Export stores the summary once per format and returns the URL of the first
// format. An empty summary produces nothing.
func (e *Exporter) Export(ctx context.Context, summary model.RunSummary) (string, error) {
	if summary.Empty() {
		return "", nil
	}
	stamp := e.clock.Now().UTC().Format("20060102T150405Z")
	var first string
	for _, r := range e.renderers {
		var buf bytes.Buffer
		if err := r.Render(&buf, summary); err != nil {
			return "", fmt.Errorf("render %s summary: %w", r.Format(), err)
		}
		key := fmt.Sprintf("%s/gradesync-%s-%s.%s", summary.CourseID, summary.CourseID, stamp, r.Format())
		u, err := e.store.Put(ctx, key, r.ContentType(), buf.Bytes())
		if err != nil {
			return "", fmt.Errorf("store %s summary: %w", r.Format(), err)
		}
		e.logger.InfoContext(ctx, "run summary exported",
			"course_id", summary.CourseID,
			"format", r.Format(),
			"failures", len(summary.Failures),
			"retries", len(summary.Retries),
			"url", u,
		)
		if first == "" {
			first = u
		}
	}
	return first, nil
}
