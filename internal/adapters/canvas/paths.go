package canvas

import (
	"fmt"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/domain/model"
)

// ResponsePaths holds compiled JMESPath expressions for the response fields
// whose location differs between API versions and proxies.
type ResponsePaths struct {
	jobID         jmespath.JMESPath
	jobState      jmespath.JMESPath
	jobMessage    jmespath.JMESPath
	jobCompletion jmespath.JMESPath
	graphQLErrors jmespath.JMESPath
}

// NewResponsePaths compiles the configured expressions.
func NewResponsePaths(cfg config.CanvasConfig) (ResponsePaths, error) {
	var (
		p   ResponsePaths
		err error
	)
	exprs := []struct {
		name string
		expr string
		dst  *jmespath.JMESPath
	}{
		{"job id", cfg.JobIDPath, &p.jobID},
		{"job state", cfg.JobStatePath, &p.jobState},
		{"job message", cfg.JobMessagePath, &p.jobMessage},
		{"job completion", cfg.JobPctPath, &p.jobCompletion},
		{"graphql errors", cfg.GraphQLErrPath, &p.graphQLErrors},
	}
	for _, e := range exprs {
		if strings.TrimSpace(e.expr) == "" {
			return ResponsePaths{}, fmt.Errorf("%s path is empty", e.name)
		}
		if *e.dst, err = jmespath.Compile(e.expr); err != nil {
			return ResponsePaths{}, fmt.Errorf("compile %s path %q: %w", e.name, e.expr, err)
		}
	}
	return p, nil
}

// jobHandle projects a decoded progress document onto a JobHandle.
func (p ResponsePaths) jobHandle(doc any) (*model.JobHandle, error) {
	id := searchString(p.jobID, doc)
	if id == "" {
		return nil, fmt.Errorf("job id missing from response")
	}
	var state model.JobState
	if err := state.UnmarshalText([]byte(searchString(p.jobState, doc))); err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	h := &model.JobHandle{ID: id, State: state, Message: searchString(p.jobMessage, doc)}
	if v, err := p.jobCompletion.Search(doc); err == nil {
		switch n := v.(type) {
		case float64:
			h.Completion = n
		case string:
			h.Completion, _ = strconv.ParseFloat(n, 64)
		}
	}
	return h, nil
}

// graphQLErrorMessages returns every error message the mutation reported.
func (p ResponsePaths) graphQLErrorMessages(doc any) []string {
	v, err := p.graphQLErrors.Search(doc)
	if err != nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func searchString(expr jmespath.JMESPath, doc any) string {
	v, err := expr.Search(doc)
	if err != nil || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
