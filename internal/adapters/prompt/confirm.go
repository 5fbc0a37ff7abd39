// Package prompt asks an operator to confirm the one-time setup a course
// target needs before its first synchronization.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/model"
)

// ErrDeclined is returned when the operator does not confirm.
var ErrDeclined = errors.New("operator declined the target setup")

var _ core.Prerequisite = (*Confirm)(nil)

// Confirm asks once per course and target on an interactive terminal.
// AssumeYes skips the question.
type Confirm struct {
	In        io.Reader
	Out       io.Writer
	AssumeYes bool

	mu        sync.Mutex
	confirmed map[string]bool
	reader    *bufio.Reader
}

// Ensure asks the operator to confirm that the target outcome is aligned to
// the assignment's rubric criterion.
func (c *Confirm) Ensure(ctx context.Context, courseID string, target model.Target) error {
	if c.AssumeYes {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := courseID + "/" + target.MetricID
	if c.confirmed[key] {
		return nil
	}
	if c.reader == nil {
		c.reader = bufio.NewReader(c.In)
	}

	fmt.Fprintf(c.Out,
		"Course %s: outcome %s must be aligned to assignment %s through rubric criterion %s.\nProceed? [y/N] ",
		courseID, target.MetricID, target.AssignmentID, target.CriterionID)

	answer := make(chan string, 1)
	go func() {
		line, _ := c.reader.ReadString('\n')
		answer <- line
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			if c.confirmed == nil {
				c.confirmed = make(map[string]bool)
			}
			c.confirmed[key] = true
			return nil
		default:
			return ErrDeclined
		}
	}
}
