package submission

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/formrelay/platform/pkg/fanout"
	"github.com/formrelay/platform/pkg/forms"
)

type blockingFanout struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingFanout) Dispatch(context.Context, *forms.Form, *fanout.Submission) []fanout.Result {
	close(b.started)
	<-b.release
	return nil
}

func submitJSON(t *testing.T, svc *Service) {
	t.Helper()
	_, err := svc.Submit(context.Background(), Inbound{
		EndpointID:  "abc123",
		ContentType: "application/json",
		Body:        strings.NewReader(`{"msg":"hi"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitDrainsDetachedFanout(t *testing.T) {
	fan := &blockingFanout{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(memForms{"abc123": exampleForm()}, &memStore{}, nil, fan, nil, false)

	submitJSON(t, svc)
	<-fan.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Wait(ctx); err == nil {
		t.Fatal("expected Wait to time out while a delivery is blocked")
	}

	close(fan.release)
	ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := svc.Wait(ctx); err != nil {
		t.Fatalf("delivery did not drain: %v", err)
	}
}

func TestSubmitAfterWaitDeliversSynchronously(t *testing.T) {
	fan := &recordingFanout{}
	svc := NewService(memForms{"abc123": exampleForm()}, &memStore{}, nil, fan, nil, false)

	if err := svc.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	submitJSON(t, svc)
	if fan.calls.Load() != 1 {
		t.Fatalf("expected fan-out to finish before Submit returned, got %d calls", fan.calls.Load())
	}
}
