package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/data/pgxutil"
	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
)

// PropagationFailureRepo is the Postgres failure log for override writes.
type PropagationFailureRepo struct {
	DB           *sql.DB
	timeProvider core.TimeProvider
}

// NewPropagationFailureRepo creates a new PropagationFailureRepo.
func NewPropagationFailureRepo(db *sql.DB) *PropagationFailureRepo {
	return &PropagationFailureRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Record appends one failure.
func (r *PropagationFailureRepo) Record(ctx context.Context, f *model.PropagationFailure) error {
	if f == nil || f.CourseID == "" || f.UserID == "" {
		return apperrors.Validation("course id and user id are required")
	}
	if f.OccurredAt.IsZero() {
		f.OccurredAt = r.timeProvider.Now()
	}
	if f.Attempts < 1 {
		f.Attempts = 1
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO propagation_failures (course_id, user_id, scaled_score, attempts, error, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.CourseID, f.UserID, f.Scaled, f.Attempts, f.Error, f.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record propagation failure: %w", apperrors.MapDBError(err))
	}
	return nil
}

// ListByCourse returns the newest failures for a course.
func (r *PropagationFailureRepo) ListByCourse(
	ctx context.Context,
	courseID string,
	limit int,
) ([]*model.PropagationFailure, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var out []*model.PropagationFailure
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT course_id, user_id, scaled_score, attempts, error, occurred_at
			FROM propagation_failures
			WHERE course_id = $1
			ORDER BY occurred_at DESC, id DESC
			LIMIT $2`, courseID, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.PropagationFailure])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list propagation failures: %w", apperrors.MapDBError(err))
	}
	return out, nil
}
