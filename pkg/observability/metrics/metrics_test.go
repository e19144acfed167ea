package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserveAndExport(t *testing.T) {
	before := Current()

	ObserveSubmission(2)
	ObserveSubmission(9)
	ObserveRejected()
	ObserveEvent(false)

	after := Current()
	assert.Equal(t, before.Accepted+2, after.Accepted)
	assert.Equal(t, before.Severity[1]+1, after.Severity[1])
	assert.Equal(t, before.Rejected+1, after.Rejected)
	assert.Equal(t, before.EventErrs+1, after.EventErrs)

	rec := httptest.NewRecorder()
	Handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "# TYPE triage_submissions_accepted_total counter")
	assert.Contains(t, rec.Body.String(), `triage_diagnoses_total{level="2"}`)
	assert.Equal(t, "text/plain; version=0.0.4", rec.Header().Get("Content-Type"))
}
