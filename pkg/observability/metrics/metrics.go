package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

const severityLevels = 5

var (
	submissionsAccepted atomic.Int64
	submissionsRejected atomic.Int64
	submissionsFailed   atomic.Int64
	eventsPublished     atomic.Int64
	eventsFailed        atomic.Int64
	alertsRecorded      atomic.Int64
	diagnosesBySeverity [severityLevels]atomic.Int64
)

// ObserveSubmission records a stored submission and its severity level.
func ObserveSubmission(level int) {
	submissionsAccepted.Add(1)
	if level >= 1 && level <= severityLevels {
		diagnosesBySeverity[level-1].Add(1)
	}
}

func ObserveRejected() { submissionsRejected.Add(1) }

func ObserveFailed() { submissionsFailed.Add(1) }

func ObserveEvent(published bool) {
	if published {
		eventsPublished.Add(1)
		return
	}
	eventsFailed.Add(1)
}

func ObserveAlert() { alertsRecorded.Add(1) }

type Snapshot struct {
	Accepted  int64
	Rejected  int64
	Failed    int64
	Published int64
	EventErrs int64
	Alerts    int64
	Severity  [severityLevels]int64
}

func Current() Snapshot {
	s := Snapshot{
		Accepted:  submissionsAccepted.Load(),
		Rejected:  submissionsRejected.Load(),
		Failed:    submissionsFailed.Load(),
		Published: eventsPublished.Load(),
		EventErrs: eventsFailed.Load(),
		Alerts:    alertsRecorded.Load(),
	}
	for i := range diagnosesBySeverity {
		s.Severity[i] = diagnosesBySeverity[i].Load()
	}
	return s
}

func Handler(w http.ResponseWriter, _ *http.Request) {
	WritePrometheus(w)
}

func WritePrometheus(w http.ResponseWriter) {
	s := Current()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	counter(w, "triage_submissions_accepted_total", "Patient submissions stored with a diagnosis.", s.Accepted)
	counter(w, "triage_submissions_rejected_total", "Patient submissions rejected by validation.", s.Rejected)
	counter(w, "triage_submissions_failed_total", "Patient submissions that failed to store.", s.Failed)
	counter(w, "triage_events_published_total", "Diagnosis events published to Kafka.", s.Published)
	counter(w, "triage_events_failed_total", "Diagnosis events that could not be published.", s.EventErrs)
	counter(w, "triage_alerts_recorded_total", "High severity alerts stored by the alert consumer.", s.Alerts)

	fmt.Fprintf(w, "# HELP triage_diagnoses_total Diagnoses assigned, by severity level.\n")
	fmt.Fprintf(w, "# TYPE triage_diagnoses_total counter\n")
	for i, v := range s.Severity {
		fmt.Fprintf(w, "triage_diagnoses_total{level=\"%d\"} %d\n", i+1, v)
	}
}

func counter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
