package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestPostJSONSendsBodyAndHeaders(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Custom") != "yes" {
			t.Errorf("missing custom header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := PostJSON(context.Background(), New(time.Second), srv.URL, map[string]string{"a": "b"}, map[string]string{"X-Custom": "yes"}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded response")
	}
	if got["a"] != "b" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestPostJSONNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	for _, path := range []string{"/bot123:secret/sendMessage", "/api/webhooks/123/SECRETTOKEN", "/hook?token=SECRETTOKEN"} {
		err := PostJSON(context.Background(), New(time.Second), srv.URL+path, struct{}{}, nil, nil)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("%s: expected StatusError, got %v", path, err)
		}
		if statusErr.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: unexpected status %d", path, statusErr.StatusCode)
		}
		if statusErr.URL != srv.URL {
			t.Fatalf("%s: expected url reduced to %s, got %s", path, srv.URL, statusErr.URL)
		}
		if strings.Contains(strings.ToLower(err.Error()), "secret") {
			t.Fatalf("credentials leaked into error: %s", err.Error())
		}
	}
}

func TestPostJSONTransportErrorIsRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	err := PostJSON(context.Background(), New(time.Second), addr+"/api/webhooks/123/SECRETTOKEN", struct{}{}, nil, nil)
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if strings.Contains(err.Error(), "SECRETTOKEN") {
		t.Fatalf("credentials leaked into error: %s", err.Error())
	}
}

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"https://discord.com/api/webhooks/1/tok":     "https://discord.com",
		"https://hooks.slack.com/services/T/B/X?a=b": "https://hooks.slack.com",
		"https://robots.example/bot-status":          "https://robots.example",
		"not a url":                                  "<redacted>",
	}
	for in, want := range cases {
		if got := Redact(in); got != want {
			t.Fatalf("Redact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedirectHandling(t *testing.T) {
	var finalMethod atomic.Value
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		finalMethod.Store(r.Method)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer final.Close()
	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/result", http.StatusFound)
	}))
	defer hop.Close()

	err := PostJSON(context.Background(), New(time.Second), hop.URL, map[string]string{"a": "b"}, nil, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect to fail delivery, got %v", err)
	}
	if finalMethod.Load() != nil {
		t.Fatal("redirect target must not be contacted")
	}

	if err := PostJSON(context.Background(), NewFollowing(time.Second), hop.URL, map[string]string{"a": "b"}, nil, nil); err != nil {
		t.Fatalf("following client: unexpected error %v", err)
	}
	if finalMethod.Load() != http.MethodGet {
		t.Fatalf("expected redirected GET, got %v", finalMethod.Load())
	}
}
