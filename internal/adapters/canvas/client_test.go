package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
	"github.com/target/gradesync/internal/testutil"
)

func defaultCanvasConfig(baseURL string) config.CanvasConfig {
	return config.CanvasConfig{
		BaseURL:        baseURL,
		APIToken:       "secret-token",
		Timeout:        5 * time.Second,
		PerPage:        2,
		GraphQLPath:    "/api/graphql",
		UserAgent:      "gradesync-test",
		JobIDPath:      "to_string(id)",
		JobStatePath:   "workflow_state",
		JobMessagePath: "message",
		JobPctPath:     "completion",
		GraphQLErrPath: "[errors[].message, data.setOverrideScore.errors[].message][]",
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := defaultCanvasConfig(srv.URL)
	hc, err := NewHTTPClient(cfg)
	require.NoError(t, err)
	paths, err := NewResponsePaths(cfg)
	require.NoError(t, err)

	c, err := NewClient(ClientOptions{
		BaseURL:      srv.URL,
		HTTPClient:   hc,
		PerPage:      cfg.PerPage,
		GraphQLPath:  cfg.GraphQLPath,
		UserAgent:    cfg.UserAgent,
		Paths:        paths,
		TimeProvider: testutil.NewTestTimeProvider(testutil.TestTime()),
	})
	require.NoError(t, err)
	return c, srv
}

var testTarget = model.Target{MetricID: "900", AssignmentID: "55", CriterionID: "_7"}

func TestClient_ListRollups_PaginatesAndAttachesTitles(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/api/v1/courses/12/outcome_rollups", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "gradesync-test", r.Header.Get("User-Agent"))
		assert.Equal(t, []string{"outcomes"}, r.URL.Query()["include[]"])
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"rollups":[{"links":{"user":"3"},"scores":[]}],"linked":{"outcomes":[]}}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses/12/outcome_rollups?page=2&include[]=outcomes>; rel="next", <%s/x>; rel="last"`, srvURL, srvURL))
		fmt.Fprint(w, `{
			"rollups":[
				{"links":{"user":"1"},"scores":[{"score":3,"links":{"outcome":"10"}},{"score":null,"links":{"outcome":"11"}}]},
				{"links":{"user":2},"scores":[{"score":2.5,"links":{"outcome":11}}]}
			],
			"linked":{"outcomes":[{"id":10,"title":"Lab Skills"},{"id":11,"title":"Homework Completion"}]}
		}`)
	})
	c, srv := newTestClient(t, mux)
	srvURL = srv.URL

	rollups, err := c.ListRollups(context.Background(), model.RollupQuery{CourseID: "12"})
	require.NoError(t, err)
	require.Len(t, rollups, 3)

	assert.Equal(t, "1", rollups[0].UserID)
	require.Len(t, rollups[0].Scores, 2)
	assert.Equal(t, "Lab Skills", rollups[0].Scores[0].Title)
	assert.Nil(t, rollups[0].Scores[1].Score)
	assert.Equal(t, "2", rollups[1].UserID)
	assert.Equal(t, "Homework Completion", rollups[1].Scores[0].Title)
	v, ok := rollups[1].ScoreFor("11")
	assert.True(t, ok)
	assert.InDelta(t, 2.5, v, 1e-9)
	assert.Equal(t, "3", rollups[2].UserID)
}

func TestClient_ListRollups_FiltersByMetric(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"900"}, r.URL.Query()["outcome_ids[]"])
		fmt.Fprint(w, `{"rollups":[]}`)
	}))
	rollups, err := c.ListRollups(context.Background(), model.RollupQuery{CourseID: "12", MetricIDs: []string{"900"}})
	require.NoError(t, err)
	assert.Empty(t, rollups)
}

func TestClient_WriteScore(t *testing.T) {
	var got submissionUpdate
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/courses/12/assignments/55/submissions/7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{}`)
	}))

	err := c.WriteScore(context.Background(), model.ScoreWrite{CourseID: "12", Target: testTarget, UserID: "7", Score: 3.5})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, got.RubricAssessment["_7"].Points, 1e-9)
	assert.Equal(t, "Outcome average 3.50 synced at 2024-01-01T12:00:00Z", got.Comment.TextComment)
}

func TestClient_WriteScore_RemoteErrorCarriesBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"errors":[{"message":"rate limited"}]}`, http.StatusTooManyRequests)
	}))

	err := c.WriteScore(context.Background(), model.ScoreWrite{CourseID: "12", Target: testTarget, UserID: "7", Score: 1})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRemote, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "rate limited")
	assert.True(t, apperrors.IsRetryable(err))
}

func TestClient_WriteScore_Validation(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	err := c.WriteScore(context.Background(), model.ScoreWrite{CourseID: "12", Target: model.Target{}, UserID: "7"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestClient_SubmitBulkAndGetJob(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/12/assignments/55/submissions/update_grades", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			GradeData map[string]bulkGrade `json:"grade_data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.GradeData, 2)
		assert.InDelta(t, 2.0, body.GradeData["b"].RubricAssessment["_7"].Points, 1e-9)
		fmt.Fprint(w, `{"id": 4411, "workflow_state": "queued", "completion": 0}`)
	})
	mux.HandleFunc("/api/v1/progress/4411", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": 4411, "workflow_state": "Running", "completion": 42.5, "message": null}`)
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	h, err := c.SubmitBulk(ctx, "12", []model.ScoreWrite{
		{Target: testTarget, UserID: "a", Score: 3.5},
		{Target: testTarget, UserID: "b", Score: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "4411", h.ID)
	assert.Equal(t, model.JobStateQueued, h.State)

	h, err = c.GetJob(ctx, "4411")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateRunning, h.State)
	assert.InDelta(t, 42.5, h.Completion, 1e-9)
	assert.Empty(t, h.Message)
}

func TestClient_SubmitBulk_Rejections(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	_, err := c.SubmitBulk(ctx, "12", nil)
	assert.True(t, apperrors.IsValidation(err))

	other := testTarget
	other.AssignmentID = "56"
	_, err = c.SubmitBulk(ctx, "12", []model.ScoreWrite{
		{Target: testTarget, UserID: "a"},
		{Target: other, UserID: "b"},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestClient_GetJob_UnknownState(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": 1, "workflow_state": "paused"}`)
	}))
	_, err := c.GetJob(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid job state")
}

func TestClient_ListEnrollments_Pages(t *testing.T) {
	var srvURL string
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/12/enrollments", r.URL.Path)
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id": 503, "user_id": 3}]`)
			return
		}
		assert.Equal(t, []string{"StudentEnrollment"}, r.URL.Query()["type[]"])
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses/12/enrollments?page=2>; rel="next"`, srvURL))
		fmt.Fprint(w, `[{"id": 501, "user_id": 1}, {"id": "502", "user_id": "2"}]`)
	}))
	srvURL = srv.URL
	ctx := context.Background()

	page, err := c.ListEnrollments(ctx, "12", "")
	require.NoError(t, err)
	assert.Equal(t, []model.Enrollment{{ID: "501", UserID: "1"}, {ID: "502", UserID: "2"}}, page.Enrollments)
	require.NotEmpty(t, page.NextPage)

	page, err = c.ListEnrollments(ctx, "12", page.NextPage)
	require.NoError(t, err)
	assert.Equal(t, []model.Enrollment{{ID: "503", UserID: "3"}}, page.Enrollments)
	assert.Empty(t, page.NextPage)

	_, err = c.ListEnrollments(ctx, "12", "https://elsewhere.example/api/v1/courses/12/enrollments?page=3")
	assert.True(t, apperrors.IsValidation(err))
}

func TestClient_SetOverrideScore(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr string
	}{
		{name: "success", reply: `{"data":{"setOverrideScore":{"grades":{"overrideScore":87.5},"errors":null}}}`},
		{name: "top level error", reply: `{"errors":[{"message":"not authorized"}]}`, wantErr: "not authorized"},
		{
			name:    "mutation error",
			reply:   `{"data":{"setOverrideScore":{"grades":null,"errors":[{"message":"final grade override disabled"}]}}}`,
			wantErr: "final grade override disabled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/graphql", r.URL.Path)
				raw, _ := io.ReadAll(r.Body)
				var req graphQLRequest
				require.NoError(t, json.Unmarshal(raw, &req))
				assert.Contains(t, req.Query, "setOverrideScore")
				assert.Equal(t, "501", req.Variables["enrollmentId"])
				assert.InDelta(t, 87.5, req.Variables["overrideScore"], 1e-9)
				fmt.Fprint(w, tt.reply)
			}))

			err := c.SetOverrideScore(context.Background(), "501", 87.5)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeRemote, apperrors.GetCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewResponsePaths_InvalidExpression(t *testing.T) {
	cfg := defaultCanvasConfig("http://localhost")
	cfg.JobStatePath = "workflow_state[["
	_, err := NewResponsePaths(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job state")
}

func TestNextLink(t *testing.T) {
	h := http.Header{}
	h.Add("Link", `<https://a/x?page=1>; rel="current", <https://a/x?page=2>; rel="next"`)
	assert.Equal(t, "https://a/x?page=2", nextLink(h))
	assert.Empty(t, nextLink(http.Header{}))
}
