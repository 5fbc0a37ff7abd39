// Package metrics emits the standard run lifecycle metrics.
package metrics

import (
	"time"

	obserrors "github.com/target/gradesync/internal/observability/errors"
	"github.com/target/gradesync/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultDropped = "dropped"
)

// RunMetric captures a terminal run for metric emission.
type RunMetric struct {
	Strategy string
	Outcome  string
	Updated  int
	Failed   int
	Duration time.Duration
	Err      error
}

// EmitRunOutcome emits the run counter, its duration and record counts.
func EmitRunOutcome(sink statsd.Sink, in RunMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"outcome": in.Outcome}
	if in.Strategy != "" {
		tags["strategy"] = in.Strategy
	}
	if class := obserrors.Classify(in.Err); class != "" {
		tags["error_class"] = class
	}

	sink.Count("run.outcome", 1, tags)
	if in.Duration > 0 {
		sink.Timing("run.duration", in.Duration, CloneTags(tags))
	}
	if in.Updated > 0 {
		sink.Count("run.records.updated", int64(in.Updated), CloneTags(tags))
	}
	if in.Failed > 0 {
		sink.Count("run.records.failed", int64(in.Failed), CloneTags(tags))
	}
}

// EmitPhase counts entry into a workflow phase.
func EmitPhase(sink statsd.Sink, phase string) {
	if sink == nil {
		return
	}
	sink.Count("run.phase", 1, map[string]string{"phase": phase})
}

// EmitAttempt counts one remote call attempt (record write, override write,
// poll or verify) tagged by operation and result.
func EmitAttempt(sink statsd.Sink, operation, result string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"operation": operation, "result": result}
	if result == ResultError {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("remote.attempt", 1, tags)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
