package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddlewareUsesRouteLabel(t *testing.T) {
	handler := PrometheusMiddleware(func(*http.Request) string { return "/admin/sample-works/{id}/delete" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusSeeOther)
		}),
	)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/admin/sample-works/{id}/delete", "303"))
	req := httptest.NewRequest(http.MethodPost, "/admin/sample-works/abc/delete", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/admin/sample-works/{id}/delete", "303"))

	assert.Equal(t, before+1, after)
}

func TestRecordSubmission(t *testing.T) {
	before := testutil.ToFloat64(submissionsTotal.WithLabelValues("quotes", OutcomeInvalid))
	RecordSubmission("quotes", OutcomeInvalid)
	assert.Equal(t, before+1, testutil.ToFloat64(submissionsTotal.WithLabelValues("quotes", OutcomeInvalid)))
}

func TestRecordBackendCall(t *testing.T) {
	before := testutil.ToFloat64(backendCallsTotal.WithLabelValues("insert", "error"))
	RecordBackendCall("insert", 10*time.Millisecond, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(backendCallsTotal.WithLabelValues("insert", "error")))
}
