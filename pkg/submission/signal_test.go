package submission

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/formrelay/platform/pkg/forms"
	"github.com/redis/go-redis/v9"
)

type fakePublisher struct {
	eventType string
	key       string
	data      map[string]interface{}
}

func (f *fakePublisher) PublishEvent(_ context.Context, eventType, key string, data map[string]interface{}) error {
	f.eventType, f.key, f.data = eventType, key, data
	return nil
}

func TestEventSignal(t *testing.T) {
	pub := &fakePublisher{}
	rec := &Record{ID: "sub-1", IsSpam: true, CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}

	if err := NewEventSignal(pub).SubmissionStored(context.Background(), &forms.Form{ID: "F1"}, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.eventType != EventSubmissionCreated || pub.key != "F1" {
		t.Fatalf("unexpected event %s keyed %s", pub.eventType, pub.key)
	}
	if pub.data["submission_id"] != "sub-1" || pub.data["is_spam"] != true || pub.data["created_at"] != "2024-01-02T03:04:05.000Z" {
		t.Fatalf("unexpected event data %v", pub.data)
	}
	if _, ok := pub.data["payload"]; ok {
		t.Fatal("events must not carry submission payloads")
	}
}

func TestCacheKeys(t *testing.T) {
	if SubmissionsCacheKey("F1") != "form:F1:submissions" ||
		SubmissionCountCacheKey("F1") != "form:F1:submission_count" ||
		SubmissionsVersionKey("F1") != "form:F1:submissions:version" {
		t.Fatal("unexpected cache key layout")
	}
}

// commandLog captures pipelined commands and answers them without a server.
type commandLog struct {
	commands []string
	err      error
}

func (c *commandLog) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial not expected")
	}
}

func (c *commandLog) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (c *commandLog) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			switch cmd.Name() {
			case "multi", "exec":
				continue
			}
			c.commands = append(c.commands, fmt.Sprintf("%v", cmd.Args()))
		}
		return c.err
	}
}

func TestCacheSignal(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{name: "stored"},
		{name: "redis down", err: errors.New("connection refused")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
			defer client.Close()
			log := &commandLog{err: tc.err}
			client.AddHook(log)

			err := NewCacheSignal(client).SubmissionStored(context.Background(), &forms.Form{ID: "F1"}, &Record{ID: "sub-1"})
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected error %v, got %v", tc.err, err)
			}

			want := []string{
				"[del form:F1:submissions form:F1:submission_count]",
				"[incr form:F1:submissions:version]",
			}
			if len(log.commands) != len(want) {
				t.Fatalf("expected commands %q, got %q", want, log.commands)
			}
			for i := range want {
				if log.commands[i] != want[i] {
					t.Fatalf("command %d: expected %q, got %q", i, want[i], log.commands[i])
				}
			}
		})
	}
}
