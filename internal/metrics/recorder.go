// Package metrics records pipeline observations. Components take a Recorder
// and default to NoopRecorder; PrometheusRecorder backs the /metrics endpoint.
package metrics

import "time"

// Outcome labels a finished pipeline run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Recorder defines observability hooks for pipeline runs.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	ObserveStageDuration(stage string, d time.Duration)
	IncBuildOutcome(outcome Outcome)
	IncIssue(kind string)
	IncReadRetry()
	SetDocuments(published, drafts int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(Outcome)                    {}
func (NoopRecorder) IncIssue(string)                            {}
func (NoopRecorder) IncReadRetry()                              {}
func (NoopRecorder) SetDocuments(int, int)                      {}
