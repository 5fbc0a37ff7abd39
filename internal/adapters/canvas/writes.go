package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
)

type rubricPoints struct {
	Points float64 `json:"points"`
}

type submissionUpdate struct {
	RubricAssessment map[string]rubricPoints `json:"rubric_assessment"`
	Comment          struct {
		TextComment string `json:"text_comment"`
	} `json:"comment"`
}

type bulkGrade struct {
	RubricAssessment map[string]rubricPoints `json:"rubric_assessment"`
	TextComment      string                  `json:"text_comment"`
}

// annotation is the informational comment stored alongside a written score.
func (c *Client) annotation(w model.ScoreWrite) string {
	if w.Comment != "" {
		return w.Comment
	}
	return fmt.Sprintf("Outcome average %.2f synced at %s", w.Score, c.clock.Now().UTC().Format(time.RFC3339))
}

// WriteScore sets one student's rubric score for the target and attaches an
// annotation. Repeating the call with the same arguments is harmless.
func (c *Client) WriteScore(ctx context.Context, w model.ScoreWrite) error {
	if err := validateWrite(w); err != nil {
		return err
	}
	req := submissionUpdate{
		RubricAssessment: map[string]rubricPoints{w.Target.CriterionID: {Points: w.Score}},
	}
	req.Comment.TextComment = c.annotation(w)

	target := c.endpoint(nil, "api", "v1", "courses", w.CourseID,
		"assignments", w.Target.AssignmentID, "submissions", w.UserID)
	if _, err := c.do(ctx, http.MethodPut, target, req, nil); err != nil {
		return fmt.Errorf("write score for user %s: %w", w.UserID, err)
	}
	return nil
}

// SubmitBulk posts every write as one asynchronous grade update and returns
// the job handle the remote system created for it.
func (c *Client) SubmitBulk(ctx context.Context, courseID string, writes []model.ScoreWrite) (*model.JobHandle, error) {
	if len(writes) == 0 {
		return nil, apperrors.Validation("bulk submission requires at least one write")
	}
	assignment := writes[0].Target.AssignmentID
	gradeData := make(map[string]bulkGrade, len(writes))
	for _, w := range writes {
		if w.CourseID == "" {
			w.CourseID = courseID
		}
		if err := validateWrite(w); err != nil {
			return nil, err
		}
		if w.Target.AssignmentID != assignment {
			return nil, apperrors.Validationf("bulk writes span assignments %s and %s", assignment, w.Target.AssignmentID)
		}
		gradeData[w.UserID] = bulkGrade{
			RubricAssessment: map[string]rubricPoints{w.Target.CriterionID: {Points: w.Score}},
			TextComment:      c.annotation(w),
		}
	}

	target := c.endpoint(nil, "api", "v1", "courses", courseID,
		"assignments", assignment, "submissions", "update_grades")
	var doc any
	if _, err := c.do(ctx, http.MethodPost, target, map[string]any{"grade_data": gradeData}, &doc); err != nil {
		return nil, fmt.Errorf("submit bulk update: %w", err)
	}
	h, err := c.paths.jobHandle(doc)
	if err != nil {
		return nil, fmt.Errorf("submit bulk update: %w", err)
	}
	c.logger.InfoContext(ctx, "bulk update submitted", "course_id", courseID, "job_id", h.ID, "count", len(writes))
	return h, nil
}

// GetJob reads the progress document of a bulk job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*model.JobHandle, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}
	var raw json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, c.endpoint(nil, "api", "v1", "progress", jobID), nil, &raw); err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return c.paths.jobHandle(doc)
}

func validateWrite(w model.ScoreWrite) error {
	if w.CourseID == "" {
		return apperrors.ValidationField("course_id", "course id is required")
	}
	if w.UserID == "" {
		return apperrors.ValidationField("user_id", "user id is required")
	}
	if err := w.Target.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid target")
	}
	return nil
}
