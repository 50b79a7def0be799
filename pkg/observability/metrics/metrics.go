package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

// Submission outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeNotFound  = "not_found"
	OutcomeForbidden = "forbidden"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

var (
	submissionsSpam atomic.Int64

	submissionOutcomes sync.Map // outcome -> *atomic.Int64
	deliverySuccess    sync.Map // channel -> *atomic.Int64
	deliveryFailure    sync.Map // channel -> *atomic.Int64
)

func counter(m *sync.Map, key string) *atomic.Int64 {
	if v, ok := m.Load(key); ok {
		return v.(*atomic.Int64)
	}
	v, _ := m.LoadOrStore(key, new(atomic.Int64))
	return v.(*atomic.Int64)
}

func ObserveSubmission(outcome string) {
	counter(&submissionOutcomes, outcome).Add(1)
}

func ObserveSpam() {
	submissionsSpam.Add(1)
}

func ObserveDelivery(channel string, ok bool) {
	if ok {
		counter(&deliverySuccess, channel).Add(1)
		return
	}
	counter(&deliveryFailure, channel).Add(1)
}

// DeliveryCount returns the current value of a delivery counter.
func DeliveryCount(channel string, ok bool) int64 {
	if ok {
		return counter(&deliverySuccess, channel).Load()
	}
	return counter(&deliveryFailure, channel).Load()
}

func SubmissionCount(outcome string) int64 {
	return counter(&submissionOutcomes, outcome).Load()
}

func sortedKeys(m *sync.Map) []string {
	var keys []string
	m.Range(func(k, _ interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP formrelay_submissions_total Submission requests by outcome.\n")
	fmt.Fprintf(w, "# TYPE formrelay_submissions_total counter\n")
	for _, outcome := range sortedKeys(&submissionOutcomes) {
		fmt.Fprintf(w, "formrelay_submissions_total{outcome=%q} %d\n", outcome, counter(&submissionOutcomes, outcome).Load())
	}

	fmt.Fprintf(w, "# HELP formrelay_submissions_spam_total Stored submissions classified as spam.\n")
	fmt.Fprintf(w, "# TYPE formrelay_submissions_spam_total counter\n")
	fmt.Fprintf(w, "formrelay_submissions_spam_total %d\n", submissionsSpam.Load())

	fmt.Fprintf(w, "# HELP formrelay_deliveries_total Fan-out delivery attempts by channel and result.\n")
	fmt.Fprintf(w, "# TYPE formrelay_deliveries_total counter\n")
	for _, channel := range sortedKeys(&deliverySuccess) {
		fmt.Fprintf(w, "formrelay_deliveries_total{channel=%q,result=\"success\"} %d\n", channel, counter(&deliverySuccess, channel).Load())
	}
	for _, channel := range sortedKeys(&deliveryFailure) {
		fmt.Fprintf(w, "formrelay_deliveries_total{channel=%q,result=\"failure\"} %d\n", channel, counter(&deliveryFailure, channel).Load())
	}
}
