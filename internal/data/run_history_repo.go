package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/data/pgxutil"
	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
)

const runHistoryColumns = `id::text AS id, course_id, target_id, strategy, outcome,
	updated_count, failed_count, retried_count, message, started_at, finished_at`

// RunHistoryRepo implements core.RunHistoryRepository using PostgreSQL.
type RunHistoryRepo struct {
	DB           *sql.DB
	timeProvider core.TimeProvider
}

// NewRunHistoryRepo creates a new RunHistoryRepo with the given database connection.
func NewRunHistoryRepo(db *sql.DB) *RunHistoryRepo {
	return &RunHistoryRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// RecordRun inserts a terminal run record. A missing ID is generated and a
// zero FinishedAt is stamped with the current time.
func (r *RunHistoryRepo) RecordRun(ctx context.Context, rec *model.RunRecord) error {
	if rec == nil {
		return apperrors.Validation("run record is required")
	}
	if strings.TrimSpace(rec.CourseID) == "" {
		return apperrors.ValidationField("course_id", "course id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = r.timeProvider.Now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.FinishedAt
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO run_history (id, course_id, target_id, strategy, outcome,
			updated_count, failed_count, retried_count, message, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.CourseID, rec.TargetID, string(rec.Strategy), string(rec.Outcome),
		rec.Updated, rec.Failed, rec.Retried, rec.Message, rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", apperrors.MapDBError(err))
	}
	return nil
}

// LastSuccessful returns the most recent completed or unconfirmed run for a course.
func (r *RunHistoryRepo) LastSuccessful(ctx context.Context, courseID string) (*model.RunRecord, error) {
	var out model.RunRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+runHistoryColumns+`
			FROM run_history
			WHERE course_id = $1 AND outcome IN ('completed', 'unconfirmed')
			ORDER BY finished_at DESC
			LIMIT 1`, courseID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.RunRecord])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("no successful run for course %s", courseID)
		}
		return nil, fmt.Errorf("last successful run: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// List returns the newest runs for a course, newest first.
func (r *RunHistoryRepo) List(ctx context.Context, courseID string, limit int) ([]*model.RunRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []*model.RunRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+runHistoryColumns+`
			FROM run_history
			WHERE course_id = $1
			ORDER BY finished_at DESC
			LIMIT $2`, courseID, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.RunRecord])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", apperrors.MapDBError(err))
	}
	return out, nil
}
