// Package canvas talks to the remote grading API: outcome rollups, rubric
// score writes, bulk grade jobs, enrollments and the override GraphQL mutation.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/core"
	apperrors "github.com/target/gradesync/internal/errors"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// NewHTTPClient builds the authenticated client: a bearer token attached by
// an oauth2 transport and a public-suffix aware cookie jar for session cookies
// some deployments set in front of the API.
func NewHTTPClient(cfg config.CanvasConfig) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	base := &http.Client{Timeout: cfg.Timeout, Jar: jar}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken, TokenType: "Bearer"})

	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = cfg.Timeout
	hc.Jar = jar
	return hc, nil
}

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	BaseURL      string
	HTTPClient   *http.Client
	PerPage      int
	GraphQLPath  string
	UserAgent    string
	Paths        ResponsePaths
	Logger       *slog.Logger
	TimeProvider core.TimeProvider
}

// Client implements core.GradingAPI and core.OverrideWriter over HTTP.
type Client struct {
	base      *url.URL
	http      *http.Client
	perPage   int
	graphQL   string
	userAgent string
	paths     ResponsePaths
	logger    *slog.Logger
	clock     core.TimeProvider
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewClient validates the options and constructs a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	if opts.Paths.jobID == nil {
		return nil, errors.New("response paths are required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	perPage := opts.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 100
	}
	gql := opts.GraphQLPath
	if gql == "" {
		gql = "/api/graphql"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.TimeProvider
	if clock == nil {
		clock = systemClock{}
	}
	return &Client{
		base:      base,
		http:      hc,
		perPage:   perPage,
		graphQL:   gql,
		userAgent: opts.UserAgent,
		paths:     opts.Paths,
		logger:    logger.With("component", "canvas_client"),
		clock:     clock,
	}, nil
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(query url.Values, segments ...string) string {
	u := *c.base
	u = *u.JoinPath(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// sameOrigin guards pagination links so the token is never sent elsewhere.
func (c *Client) sameOrigin(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == c.base.Scheme && u.Host == c.base.Host
}

// do sends a request with an optional JSON body and decodes a JSON response
// into out. The response headers are returned for pagination.
func (c *Client) do(ctx context.Context, method, target string, body, out any) (http.Header, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.Header, apperrors.Remote(resp.StatusCode, msg)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return resp.Header, nil
}

// nextLink extracts the rel="next" target from an RFC 8288 Link header.
func nextLink(h http.Header) string {
	for _, line := range h.Values("Link") {
		for _, part := range strings.Split(line, ",") {
			segs := strings.Split(part, ";")
			if len(segs) < 2 {
				continue
			}
			target := strings.Trim(strings.TrimSpace(segs[0]), "<>")
			for _, p := range segs[1:] {
				if strings.EqualFold(strings.ReplaceAll(strings.TrimSpace(p), " ", ""), `rel="next"`) {
					return target
				}
			}
		}
	}
	return ""
}

// flexID accepts ids encoded either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
