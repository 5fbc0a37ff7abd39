// Package gradesync holds the pure decision logic of the grade synchronization
// engine: average computation, write strategy selection, override rescaling,
// verification tolerance and the workflow transition table.
package gradesync

import (
	"math"
	"strings"

	"github.com/target/gradesync/internal/domain/model"
)

// equalityEpsilon absorbs float noise when comparing already-rounded values.
const equalityEpsilon = 1e-9

// Exclusions lists metrics that never contribute to the average.
type Exclusions struct {
	// MetricIDs are excluded by exact identifier.
	MetricIDs []string `yaml:"metric_ids"`
	// Keywords are matched case-insensitively as substrings of the metric title.
	Keywords []string `yaml:"keywords"`
}

// Merge returns the union of two exclusion sets.
func (e Exclusions) Merge(other Exclusions) Exclusions {
	return Exclusions{
		MetricIDs: append(append([]string(nil), e.MetricIDs...), other.MetricIDs...),
		Keywords:  append(append([]string(nil), e.Keywords...), other.Keywords...),
	}
}

type exclusionMatcher struct {
	ids      map[string]struct{}
	keywords []string
}

func newExclusionMatcher(e Exclusions) exclusionMatcher {
	m := exclusionMatcher{ids: make(map[string]struct{}, len(e.MetricIDs))}
	for _, id := range e.MetricIDs {
		if id = strings.TrimSpace(id); id != "" {
			m.ids[id] = struct{}{}
		}
	}
	for _, kw := range e.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			m.keywords = append(m.keywords, kw)
		}
	}
	return m
}

func (m exclusionMatcher) excluded(score model.RollupScore) bool {
	if _, ok := m.ids[score.MetricID]; ok {
		return true
	}
	title := strings.ToLower(score.Title)
	for _, kw := range m.keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// ComputeOptions parameterises ComputeDeltas.
type ComputeOptions struct {
	TargetID   string
	Exclusions Exclusions
	// ZeroOut assigns 0 to every student and ignores all filters.
	// Test mode only; callers gate it behind explicit configuration.
	ZeroOut bool
}

// ComputeDeltas turns a rollup snapshot into the list of scores that need writing.
// Students with no eligible scores are skipped, as are students whose current
// target value already equals the computed average. Output preserves the order of
// first appearance and never repeats a user id.
func ComputeDeltas(rollups []model.Rollup, opts ComputeOptions) []model.ScoreDelta {
	matcher := newExclusionMatcher(opts.Exclusions)
	seen := make(map[string]struct{}, len(rollups))
	deltas := make([]model.ScoreDelta, 0, len(rollups))

	for _, rollup := range rollups {
		if rollup.UserID == "" {
			continue
		}
		if _, dup := seen[rollup.UserID]; dup {
			continue
		}
		seen[rollup.UserID] = struct{}{}

		average, ok := studentAverage(rollup, opts.TargetID, matcher, opts.ZeroOut)
		if !ok {
			continue
		}
		if current, has := rollup.ScoreFor(opts.TargetID); has && Equal(Round2(current), average) {
			continue
		}
		deltas = append(deltas, model.ScoreDelta{UserID: rollup.UserID, Average: average})
	}
	return deltas
}

func studentAverage(rollup model.Rollup, targetID string, matcher exclusionMatcher, zeroOut bool) (float64, bool) {
	if zeroOut {
		return 0, true
	}
	var sum float64
	var count int
	for _, s := range rollup.Scores {
		if s.Score == nil || math.IsNaN(*s.Score) || math.IsInf(*s.Score, 0) {
			continue
		}
		if s.MetricID == targetID || matcher.excluded(s) {
			continue
		}
		sum += *s.Score
		count++
	}
	if count == 0 {
		return 0, false
	}
	return Round2(sum / float64(count)), true
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Equal compares two rounded values for numeric equality.
func Equal(a, b float64) bool {
	return math.Abs(a-b) < equalityEpsilon
}
