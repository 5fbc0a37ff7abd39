package status

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/gradesync/internal/domain/model"
)

func TestTerminal_WritesOneLinePerUpdate(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(TerminalOptions{Out: &buf})

	term.Report(context.Background(), model.Status{Phase: model.PhasePolling, Message: "Bulk job running (5m30s elapsed)"})
	term.Report(context.Background(), model.Status{Phase: model.PhaseWritingPerRecord, Message: "Processed 5 of 10 records", Done: 5, Total: 10})
	term.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "polling")
	assert.Contains(t, lines[0], "Bulk job running (5m30s elapsed)")
	assert.Contains(t, lines[1], "Processed 5 of 10 records")
	assert.Contains(t, lines[1], "[##########----------] 5/10")
}

func TestTerminal_ReportNeverBlocks(t *testing.T) {
	pr, pw := io.Pipe()
	term := NewTerminal(TerminalOptions{Out: pw, Buffer: 2})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for range 10 {
			term.Report(context.Background(), model.Status{Message: "tick"})
		}
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Report blocked on a stalled terminal")
	}
	assert.Positive(t, term.Dropped())

	require.NoError(t, pr.Close())
	term.Close()
	term.Report(context.Background(), model.Status{Message: "after close"})
}

func TestTerminal_CloseIsIdempotent(t *testing.T) {
	term := NewTerminal(TerminalOptions{Out: io.Discard})
	term.Close()
	term.Close()
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		done, total int
		want        string
	}{
		{done: 0, total: 4, want: "[--------------------] 0/4"},
		{done: 1, total: 4, want: "[#####---------------] 1/4"},
		{done: 4, total: 4, want: "[####################] 4/4"},
		{done: 9, total: 4, want: "[####################] 4/4"},
		{done: 1, total: 0, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, progressBar(tt.done, tt.total))
	}
}
