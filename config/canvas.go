package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CanvasConfig contains configuration for the remote grading API and the
// override GraphQL endpoint.
type CanvasConfig struct {
	BaseURL     string        `env:"BASE_URL"     envDefault:"http://localhost:3000"`
	APIToken    string        `env:"API_TOKEN"`
	Timeout     time.Duration `env:"TIMEOUT"      envDefault:"30s"`
	PerPage     int           `env:"PER_PAGE"     envDefault:"100"`
	GraphQLPath string        `env:"GRAPHQL_PATH" envDefault:"/api/graphql"`
	UserAgent   string        `env:"USER_AGENT"   envDefault:"gradesync/1.0"`

	// JMESPath expressions used to pull fields out of remote responses.
	// Override them when a deployment fronts the API with a different shape.
	JobIDPath      string `env:"JOB_ID_PATH"      envDefault:"to_string(id)"`
	JobStatePath   string `env:"JOB_STATE_PATH"   envDefault:"workflow_state"`
	JobMessagePath string `env:"JOB_MESSAGE_PATH" envDefault:"message"`
	JobPctPath     string `env:"JOB_PCT_PATH"     envDefault:"completion"`
	GraphQLErrPath string `env:"GRAPHQL_ERR_PATH" envDefault:"[errors[].message, data.setOverrideScore.errors[].message][]"`
}

// Sanitize applies guardrails to the grading API configuration.
func (c *CanvasConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIToken = strings.TrimSpace(c.APIToken)
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PerPage < 1 {
		c.PerPage = 1
	}
	if c.PerPage > 100 {
		c.PerPage = 100
	}
	if c.GraphQLPath == "" {
		c.GraphQLPath = "/api/graphql"
	}
	if !strings.HasPrefix(c.GraphQLPath, "/") {
		c.GraphQLPath = "/" + c.GraphQLPath
	}
}

// Validate checks the settings a run cannot start without.
func (c *CanvasConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("CANVAS_BASE_URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CANVAS_BASE_URL %q is not an absolute URL", c.BaseURL)
	}
	if c.APIToken == "" {
		return errors.New("CANVAS_API_TOKEN is required")
	}
	return nil
}
