// Package mocks provides mock implementations of the grade sync ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the interfaces in internal/core.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	api := mocks.NewMockGradingAPI(ctrl)
//	api.EXPECT().WriteScore(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for GradingAPI interface from internal/core package.
// This creates MockGradingAPI with methods for all GradingAPI interface methods:
// GetJob, ListEnrollments, ListRollups, SubmitBulk, WriteScore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=grading_api_mock.go github.com/target/gradesync/internal/core GradingAPI

// Generate mock for OverrideWriter interface from internal/core package.
// This creates MockOverrideWriter with methods for all OverrideWriter interface methods:
// SetOverrideScore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=override_writer_mock.go github.com/target/gradesync/internal/core OverrideWriter

// Generate mock for RunStore interface from internal/core package.
// This creates MockRunStore with methods for all RunStore interface methods:
// Get, Set, Clear
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=run_store_mock.go github.com/target/gradesync/internal/core RunStore

// Generate mock for RunLease interface from internal/core package.
// This creates MockRunLease with methods for all RunLease interface methods:
// Acquire, Renew, Release, Holder
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=run_lease_mock.go github.com/target/gradesync/internal/core RunLease

// Generate mock for StatusReporter interface from internal/core package.
// This creates MockStatusReporter with methods for all StatusReporter interface methods:
// Report
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=status_reporter_mock.go github.com/target/gradesync/internal/core StatusReporter

// Generate mock for RunHistoryRepository interface from internal/core package.
// This creates MockRunHistoryRepository with methods for all RunHistoryRepository interface methods:
// RecordRun, LastSuccessful, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=run_history_repository_mock.go github.com/target/gradesync/internal/core RunHistoryRepository

// Generate mock for PropagationFailureRepository interface from internal/core package.
// This creates MockPropagationFailureRepository with methods for all PropagationFailureRepository interface methods:
// Record, ListByCourse
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=propagation_failure_repository_mock.go github.com/target/gradesync/internal/core PropagationFailureRepository

// Generate mock for SummaryExporter interface from internal/core package.
// This creates MockSummaryExporter with methods for all SummaryExporter interface methods:
// Export
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=summary_exporter_mock.go github.com/target/gradesync/internal/core SummaryExporter

// Generate mock for Prerequisite interface from internal/core package.
// This creates MockPrerequisite with methods for all Prerequisite interface methods:
// Ensure
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=prerequisite_mock.go github.com/target/gradesync/internal/core Prerequisite
