package canvas

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/target/gradesync/internal/errors"
)

const setOverrideScoreMutation = `mutation SetOverrideScore($enrollmentId: ID!, $overrideScore: Float) {
  setOverrideScore(input: {enrollmentId: $enrollmentId, overrideScore: $overrideScore}) {
    grades { overrideScore }
    errors { message }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// SetOverrideScore writes the rescaled override score on an enrollment.
// GraphQL errors arrive with a 200 status and are surfaced as remote errors.
func (c *Client) SetOverrideScore(ctx context.Context, enrollmentID string, score float64) error {
	if enrollmentID == "" {
		return apperrors.ValidationField("enrollment_id", "enrollment id is required")
	}
	req := graphQLRequest{
		Query: setOverrideScoreMutation,
		Variables: map[string]any{
			"enrollmentId":  enrollmentID,
			"overrideScore": score,
		},
	}
	var doc any
	if _, err := c.do(ctx, http.MethodPost, c.endpoint(nil, c.graphQL), req, &doc); err != nil {
		return fmt.Errorf("set override score for enrollment %s: %w", enrollmentID, err)
	}
	if msgs := c.paths.graphQLErrorMessages(doc); len(msgs) > 0 {
		return apperrors.Remote(http.StatusOK, strings.Join(msgs, "; "))
	}
	return nil
}
