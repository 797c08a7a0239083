package formatter

import "time"

// Recorder receives formatting statistics. internal/metrics.Collector is the
// Prometheus implementation.
type Recorder interface {
	ObserveFormat(provider string, duration time.Duration, messages int)
	IncGroup(provider, groupType string)
	IncMediaDegraded(provider, kind string)
	AddTruncatedGroups(provider string, n int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ObserveFormat(string, time.Duration, int) {}
func (NopRecorder) IncGroup(string, string)                  {}
func (NopRecorder) IncMediaDegraded(string, string)          {}
func (NopRecorder) AddTruncatedGroups(string, int)           {}
