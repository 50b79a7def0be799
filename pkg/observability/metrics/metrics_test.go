package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWritePrometheus(t *testing.T) {
	ObserveSubmission(OutcomeAccepted)
	ObserveSpam()
	ObserveDelivery("metrics_test_channel", true)
	ObserveDelivery("metrics_test_channel", false)
	ObserveDelivery("metrics_test_channel", false)

	rec := httptest.NewRecorder()
	WritePrometheus(rec)
	body := rec.Body.String()

	for _, want := range []string{
		`formrelay_submissions_total{outcome="accepted"}`,
		"formrelay_submissions_spam_total",
		`formrelay_deliveries_total{channel="metrics_test_channel",result="success"} 1`,
		`formrelay_deliveries_total{channel="metrics_test_channel",result="failure"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in output:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
