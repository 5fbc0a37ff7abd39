package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
)

type rollupsResponse struct {
	Rollups []struct {
		Links struct {
			User flexID `json:"user"`
		} `json:"links"`
		Scores []struct {
			Score *float64 `json:"score"`
			Title string   `json:"title"`
			Links struct {
				Outcome flexID `json:"outcome"`
			} `json:"links"`
		} `json:"scores"`
	} `json:"rollups"`
	Linked struct {
		Outcomes []struct {
			ID    flexID `json:"id"`
			Title string `json:"title"`
		} `json:"outcomes"`
	} `json:"linked"`
}

// ListRollups fetches every page of outcome rollups for the course.
// Metric titles come from the linked outcomes so keyword exclusions can match.
func (c *Client) ListRollups(ctx context.Context, q model.RollupQuery) ([]model.Rollup, error) {
	if q.CourseID == "" {
		return nil, apperrors.ValidationField("course_id", "course id is required")
	}
	params := url.Values{}
	params.Add("include[]", "outcomes")
	params.Set("per_page", fmt.Sprint(c.perPage))
	for _, id := range q.MetricIDs {
		params.Add("outcome_ids[]", id)
	}
	next := c.endpoint(params, "api", "v1", "courses", q.CourseID, "outcome_rollups")

	var out []model.Rollup
	for page := 1; next != ""; page++ {
		var body rollupsResponse
		hdr, err := c.do(ctx, http.MethodGet, next, nil, &body)
		if err != nil {
			return nil, fmt.Errorf("list rollups page %d: %w", page, err)
		}
		out = append(out, convertRollups(body)...)
		next = nextLink(hdr)
		if next != "" && !c.sameOrigin(next) {
			c.logger.WarnContext(ctx, "ignoring cross-origin pagination link", "course_id", q.CourseID)
			next = ""
		}
	}
	return out, nil
}

func convertRollups(body rollupsResponse) []model.Rollup {
	titles := make(map[string]string, len(body.Linked.Outcomes))
	for _, o := range body.Linked.Outcomes {
		titles[string(o.ID)] = o.Title
	}
	out := make([]model.Rollup, 0, len(body.Rollups))
	for _, r := range body.Rollups {
		rollup := model.Rollup{UserID: string(r.Links.User), Scores: make([]model.RollupScore, 0, len(r.Scores))}
		for _, s := range r.Scores {
			id := string(s.Links.Outcome)
			title := s.Title
			if title == "" {
				title = titles[id]
			}
			rollup.Scores = append(rollup.Scores, model.RollupScore{MetricID: id, Title: title, Score: s.Score})
		}
		out = append(out, rollup)
	}
	return out
}
