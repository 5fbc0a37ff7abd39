package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SyncConfig tunes the synchronization workflow.
type SyncConfig struct {
	// BulkThreshold is the delta count at which a bulk job replaces per-record writes.
	BulkThreshold int `env:"BULK_THRESHOLD" envDefault:"500"`

	// MaxAttempts bounds each retry pass of a single record write.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"3"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	// PollTimeout is measured from the run's start time, across restarts.
	PollTimeout time.Duration `env:"POLL_TIMEOUT" envDefault:"20m"`

	VerifyInterval    time.Duration `env:"VERIFY_INTERVAL"     envDefault:"5s"`
	VerifyMaxAttempts int           `env:"VERIFY_MAX_ATTEMPTS" envDefault:"50"`
	VerifyTolerance   float64       `env:"VERIFY_TOLERANCE"    envDefault:"0.001"`

	// OverrideScale is the linear factor applied to averages for the override score.
	OverrideScale float64 `env:"OVERRIDE_SCALE" envDefault:"25"`

	ExcludedKeywords  []string `env:"EXCLUDED_KEYWORDS"   envDefault:"Homework Completion"`
	ExcludedMetricIDs []string `env:"EXCLUDED_METRIC_IDS" envDefault:""`
	// ExclusionsFile is an optional YAML file merged into the env exclusions.
	ExclusionsFile string `env:"EXCLUSIONS_FILE"`

	// ZeroOutTestMode must be enabled before a run may request zero-out.
	ZeroOutTestMode bool `env:"ZERO_OUT_TEST_MODE" envDefault:"false"`

	LeaseTTL time.Duration `env:"LEASE_TTL" envDefault:"1m"`

	PropagatorWorkers      int           `env:"PROPAGATOR_WORKERS"       envDefault:"4"`
	PropagatorQueueSize    int           `env:"PROPAGATOR_QUEUE_SIZE"    envDefault:"1024"`
	PropagatorMaxAttempts  int           `env:"PROPAGATOR_MAX_ATTEMPTS"  envDefault:"3"`
	PropagatorBackoff      time.Duration `env:"PROPAGATOR_BACKOFF"       envDefault:"500ms"`
	PropagatorDrainTimeout time.Duration `env:"PROPAGATOR_DRAIN_TIMEOUT" envDefault:"30s"`
	EnrollmentCacheSize    int           `env:"ENROLLMENT_CACHE_SIZE"    envDefault:"4096"`
}

// Sanitize applies guardrails to workflow tuning values.
func (s *SyncConfig) Sanitize() {
	if s.BulkThreshold < 1 {
		s.BulkThreshold = 500
	}
	if s.MaxAttempts < 1 {
		s.MaxAttempts = 1
	}
	if s.PollInterval <= 0 {
		s.PollInterval = 2 * time.Second
	}
	if s.PollTimeout <= 0 {
		s.PollTimeout = 20 * time.Minute
	}
	if s.VerifyInterval <= 0 {
		s.VerifyInterval = 5 * time.Second
	}
	if s.VerifyMaxAttempts < 1 {
		s.VerifyMaxAttempts = 1
	}
	if s.VerifyTolerance < 0 {
		s.VerifyTolerance = 0.001
	}
	if s.OverrideScale <= 0 {
		s.OverrideScale = 25
	}
	if s.LeaseTTL < 5*time.Second {
		s.LeaseTTL = 5 * time.Second
	}
	if s.PropagatorWorkers < 1 {
		s.PropagatorWorkers = 1
	}
	if s.PropagatorQueueSize < 1 {
		s.PropagatorQueueSize = 1
	}
	if s.PropagatorMaxAttempts < 1 {
		s.PropagatorMaxAttempts = 1
	}
	if s.PropagatorBackoff <= 0 {
		s.PropagatorBackoff = 500 * time.Millisecond
	}
	if s.PropagatorDrainTimeout <= 0 {
		s.PropagatorDrainTimeout = 30 * time.Second
	}
	if s.EnrollmentCacheSize < 1 {
		s.EnrollmentCacheSize = 4096
	}
	s.ExcludedKeywords = trimNonEmpty(s.ExcludedKeywords)
	s.ExcludedMetricIDs = trimNonEmpty(s.ExcludedMetricIDs)
	s.ExclusionsFile = strings.TrimSpace(s.ExclusionsFile)
}

// ExclusionList is the on-disk shape of the exclusions file:
//
//	metric_ids: ["1021", "1022"]
//	keywords:
//	  - Homework Completion
//	  - Participation
type ExclusionList struct {
	MetricIDs []string `yaml:"metric_ids"`
	Keywords  []string `yaml:"keywords"`
}

// LoadExclusions merges the env exclusions with the optional YAML file.
// A configured file that does not exist is an error.
func (s *SyncConfig) LoadExclusions() (ExclusionList, error) {
	list := ExclusionList{
		MetricIDs: append([]string(nil), s.ExcludedMetricIDs...),
		Keywords:  append([]string(nil), s.ExcludedKeywords...),
	}
	if s.ExclusionsFile == "" {
		return list, nil
	}

	raw, err := os.ReadFile(s.ExclusionsFile)
	if err != nil {
		return ExclusionList{}, fmt.Errorf("read exclusions file: %w", err)
	}
	fromFile, err := ParseExclusions(raw)
	if err != nil {
		return ExclusionList{}, fmt.Errorf("parse exclusions file %s: %w", s.ExclusionsFile, err)
	}
	list.MetricIDs = append(list.MetricIDs, fromFile.MetricIDs...)
	list.Keywords = append(list.Keywords, fromFile.Keywords...)
	return list, nil
}

// ParseExclusions decodes an exclusions YAML document. Unknown keys are rejected.
func ParseExclusions(raw []byte) (ExclusionList, error) {
	var list ExclusionList
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&list); err != nil {
		// An empty document decodes to io.EOF; treat it as no exclusions.
		if errors.Is(err, io.EOF) {
			return ExclusionList{}, nil
		}
		return ExclusionList{}, err
	}
	list.MetricIDs = trimNonEmpty(list.MetricIDs)
	list.Keywords = trimNonEmpty(list.Keywords)
	return list, nil
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
