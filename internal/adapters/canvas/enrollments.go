package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
)

type enrollmentDoc struct {
	ID     flexID `json:"id"`
	UserID flexID `json:"user_id"`
}

// ListEnrollments returns one page of student enrollments. The page token is
// the opaque next link returned with the previous page.
func (c *Client) ListEnrollments(ctx context.Context, courseID, pageToken string) (*model.EnrollmentPage, error) {
	if courseID == "" {
		return nil, apperrors.ValidationField("course_id", "course id is required")
	}
	target := pageToken
	if target == "" {
		params := url.Values{}
		params.Add("type[]", "StudentEnrollment")
		params.Set("per_page", fmt.Sprint(c.perPage))
		target = c.endpoint(params, "api", "v1", "courses", courseID, "enrollments")
	} else if !c.sameOrigin(target) {
		return nil, apperrors.ValidationField("page_token", "page token does not belong to the configured API")
	}

	var docs []enrollmentDoc
	hdr, err := c.do(ctx, http.MethodGet, target, nil, &docs)
	if err != nil {
		return nil, fmt.Errorf("list enrollments for course %s: %w", courseID, err)
	}
	page := &model.EnrollmentPage{Enrollments: make([]model.Enrollment, 0, len(docs))}
	for _, d := range docs {
		page.Enrollments = append(page.Enrollments, model.Enrollment{ID: string(d.ID), UserID: string(d.UserID)})
	}
	if next := nextLink(hdr); next != "" && c.sameOrigin(next) {
		page.NextPage = next
	}
	return page, nil
}
