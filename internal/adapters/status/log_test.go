package status

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/gradesync/internal/domain/model"
)

func TestLog_Report(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	rep := NewLog(logger)

	rep.Report(context.Background(), model.Status{
		CourseID: "c1",
		Phase:    model.PhaseVerifying,
		Message:  "Verifying 3 records",
		Elapsed:  2 * time.Second,
	})
	// Per-record progress is debug and filtered out here.
	rep.Report(context.Background(), model.Status{CourseID: "c1", Message: "Processed 1 of 3 records", Done: 1, Total: 3})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Verifying 3 records", entry["msg"])
	assert.Equal(t, "c1", entry["course_id"])
	assert.Equal(t, "verifying", entry["phase"])
	assert.Equal(t, "status", entry["component"])
}

type recordingReporter struct {
	mu  sync.Mutex
	got []string
}

func (r *recordingReporter) Report(_ context.Context, st model.Status) {
	r.mu.Lock()
	r.got = append(r.got, st.Message)
	r.mu.Unlock()
}

func TestMulti_FansOutAndSkipsNil(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	Multi{a, nil, b}.Report(context.Background(), model.Status{Message: "hello"})
	assert.Equal(t, []string{"hello"}, a.got)
	assert.Equal(t, []string{"hello"}, b.got)
}
