package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/formrelay/platform/pkg/gateway/httpclient"
)

func TestClientSend(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key-123" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	c := NewClient(httpclient.New(time.Second), "key-123", srv.URL+"/", "Forms <noreply@example.com>")
	id, err := c.Send(context.Background(), Message{To: " owner@example.com ", Subject: "hi", Text: "body"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "msg_1" {
		t.Fatalf("unexpected id %q", id)
	}
	if len(got.To) != 1 || got.To[0] != "owner@example.com" || got.From != "Forms <noreply@example.com>" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestClientSendRequiresRecipient(t *testing.T) {
	c := NewClient(httpclient.New(time.Second), "key", "http://127.0.0.1:1", "x@example.com")
	if _, err := c.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}
