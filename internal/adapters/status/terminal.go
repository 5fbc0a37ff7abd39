// Package status holds the StatusReporter implementations: a styled terminal
// line writer, a structured log reporter and a fan-out.
package status

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/model"
)

const (
	defaultTerminalBuffer = 64
	progressWidth         = 20
)

var _ core.StatusReporter = (*Terminal)(nil)

// TerminalOptions configures a Terminal reporter.
type TerminalOptions struct {
	Out    io.Writer
	Buffer int
	Logger *slog.Logger
}

// Terminal writes one styled line per status update. Updates are handed to a
// writer goroutine through a buffered channel; when the buffer is full the
// update is dropped so the workflow never waits on the terminal.
type Terminal struct {
	out     io.Writer
	styles  terminalStyles
	updates chan model.Status
	done    chan struct{}
	logger  *slog.Logger
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

type terminalStyles struct {
	stamp    lipgloss.Style
	phase    lipgloss.Style
	ok       lipgloss.Style
	bad      lipgloss.Style
	warn     lipgloss.Style
	message  lipgloss.Style
	progress lipgloss.Style
}

func newTerminalStyles(r *lipgloss.Renderer) terminalStyles {
	return terminalStyles{
		stamp:    r.NewStyle().Foreground(lipgloss.Color("#888888")),
		phase:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		ok:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950")),
		bad:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		warn:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#E3B341")),
		message:  r.NewStyle().Foreground(lipgloss.Color("#DDDDDD")),
		progress: r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	}
}

// NewTerminal starts the writer goroutine. Call Close to flush and stop it.
func NewTerminal(opts TerminalOptions) *Terminal {
	size := opts.Buffer
	if size <= 0 {
		size = defaultTerminalBuffer
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &Terminal{
		out:     out,
		styles:  newTerminalStyles(lipgloss.NewRenderer(out)),
		updates: make(chan model.Status, size),
		done:    make(chan struct{}),
		logger:  logger.With("component", "status_terminal"),
	}
	go t.loop()
	return t
}

// Report queues st for printing without blocking.
func (t *Terminal) Report(_ context.Context, st model.Status) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.updates <- st:
	default:
		t.dropped.Add(1)
	}
}

// Dropped returns how many updates were discarded because the buffer was full.
func (t *Terminal) Dropped() int64 {
	return t.dropped.Load()
}

// Close stops accepting updates and waits until the queued ones are written.
func (t *Terminal) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return
	}
	t.closed = true
	close(t.updates)
	t.mu.Unlock()
	<-t.done
}

func (t *Terminal) loop() {
	defer close(t.done)
	broken := false
	for st := range t.updates {
		if broken {
			continue
		}
		if _, err := fmt.Fprintln(t.out, t.render(st, time.Now())); err != nil {
			// Keep draining so Close returns; stop writing to a dead terminal.
			t.logger.Warn("status output failed", "error", err)
			broken = true
		}
	}
}

func (t *Terminal) render(st model.Status, now time.Time) string {
	var b strings.Builder
	b.WriteString(t.styles.stamp.Render(now.Format("15:04:05")))
	b.WriteByte(' ')
	b.WriteString(t.phaseStyle(st.Phase).Render(fmt.Sprintf("%-18s", st.Phase)))
	b.WriteByte(' ')
	b.WriteString(t.styles.message.Render(st.Message))
	if st.Total > 0 {
		b.WriteByte(' ')
		b.WriteString(t.styles.progress.Render(progressBar(st.Done, st.Total)))
	}
	return b.String()
}

func (t *Terminal) phaseStyle(p model.RunPhase) lipgloss.Style {
	switch p {
	case model.PhaseCompleted:
		return t.styles.ok
	case model.PhaseFailed:
		return t.styles.bad
	case model.PhaseCancelled:
		return t.styles.warn
	default:
		return t.styles.phase
	}
}

// progressBar renders done/total as "[#####-----] 5/10".
func progressBar(done, total int) string {
	if total <= 0 {
		return ""
	}
	done = min(max(done, 0), total)
	filled := done * progressWidth / total
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat("#", filled),
		strings.Repeat("-", progressWidth-filled),
		done, total)
}
