package gradesync

import (
	"math"

	"github.com/target/gradesync/internal/domain/model"
)

// DefaultBulkThreshold is the delta count at which the bulk job path wins.
const DefaultBulkThreshold = 500

// DefaultVerifyTolerance is the absolute difference accepted as a match.
const DefaultVerifyTolerance = 0.001

// ChooseStrategy picks the write path for n deltas. Counts strictly below the
// threshold are written record by record; everything else goes through a bulk job.
func ChooseStrategy(n, threshold int) model.Strategy {
	if threshold <= 0 {
		threshold = DefaultBulkThreshold
	}
	if n < threshold {
		return model.StrategyPerRecord
	}
	return model.StrategyBulk
}

// RescaleOverride maps an average onto the override score scale.
func RescaleOverride(average, scale float64) float64 {
	return Round2(average * scale)
}

// WithinTolerance reports whether a remote value matches the expected one.
func WithinTolerance(remote, expected, tolerance float64) bool {
	if tolerance < 0 {
		tolerance = DefaultVerifyTolerance
	}
	return math.Abs(remote-expected) <= tolerance+equalityEpsilon
}
