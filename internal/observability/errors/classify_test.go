package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	apperrors "github.com/target/gradesync/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "job failed", err: fmt.Errorf("poll: %w", apperrors.JobFailed("9", "")), want: "job_failed"},
		{name: "remote 5xx", err: apperrors.Remote(502, "bad gateway"), want: "remote_5xx"},
		{name: "remote 4xx", err: apperrors.Remote(404, "missing"), want: "remote_4xx"},
		{name: "deadline", err: fmt.Errorf("wrap: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "plain", err: errors.New("boom"), want: "errors_errorstring"},
		{name: "net op", err: fmt.Errorf("dial: %w", &net.OpError{Op: "dial"}), want: "net_operror"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
