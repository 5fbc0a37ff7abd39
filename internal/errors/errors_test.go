package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "run state not found"},
			want: "run state not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to persist",
				Cause:   errors.New("connection reset"),
			},
			want: "failed to persist: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_UnwrapThroughFmt(t *testing.T) {
	cause := errors.New("underlying error")
	err := fmt.Errorf("poll job: %w", Wrap(cause, ErrCodeRemote, "progress lookup failed"))

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is() lost the cause through wrapping")
	}
	if GetCode(err) != ErrCodeRemote {
		t.Errorf("GetCode() = %v, want %v", GetCode(err), ErrCodeRemote)
	}
}

func TestWrap_NilIsNil(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "ignored") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
}

func TestJobFailed(t *testing.T) {
	err := JobFailed("77", "")
	if err.Message != "Bulk update failed" {
		t.Errorf("JobFailed().Message = %q", err.Message)
	}
	if !IsJobFailed(err) || GetField(err) != "77" {
		t.Errorf("JobFailed() code/field = %v/%v", err.Code, err.Field)
	}

	withRemote := JobFailed("77", "rubric locked")
	if withRemote.Message != "Bulk update failed: rubric locked" {
		t.Errorf("JobFailed().Message = %q", withRemote.Message)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "plain error", err: errors.New("eof"), want: true},
		{name: "server error", err: Remote(503, "unavailable"), want: true},
		{name: "rate limited", err: Remote(429, "slow down"), want: true},
		{name: "request timeout", err: Remote(408, "timeout"), want: true},
		{name: "bad request", err: Remote(400, "bad score"), want: false},
		{name: "forbidden", err: Remote(403, "no access"), want: false},
		{name: "validation", err: Validation("bad"), want: false},
		{name: "canceled", err: Canceled("stop"), want: false},
		{name: "timeout", err: Timeoutf("poll exceeded %s", "20m"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "not found", err: NotFoundf("course %s", "1"), check: IsNotFound},
		{name: "conflict", err: Conflictf("lease held by %s", "x"), check: IsConflict},
		{name: "validation", err: ValidationField("target", "required"), check: IsValidation},
		{name: "internal", err: Internalf("boom %d", 1), check: IsInternal},
		{name: "timeout", err: Timeoutf("late"), check: IsTimeout},
		{name: "canceled", err: Canceled("declined"), check: IsCanceled},
		{name: "fatal submission", err: Wrap(errors.New("x"), ErrCodeFatalSubmission, "submit"), check: IsFatalSubmission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("check(%v) = false, want true", tt.err)
			}
			if tt.check(errors.New("plain")) {
				t.Errorf("check(plain) = true, want false")
			}
		})
	}
}
