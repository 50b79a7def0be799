package submission

import (
	"context"
	"fmt"

	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/redis/go-redis/v9"
)

const EventSubmissionCreated = "submission.created"

// Signal is told that a submission row was written. Dashboard caches and
// downstream consumers react to it; failures are logged only.
type Signal interface {
	SubmissionStored(ctx context.Context, form *forms.Form, rec *Record) error
}

func SubmissionsCacheKey(formID string) string {
	return fmt.Sprintf("form:%s:submissions", formID)
}

func SubmissionCountCacheKey(formID string) string {
	return fmt.Sprintf("form:%s:submission_count", formID)
}

func SubmissionsVersionKey(formID string) string {
	return fmt.Sprintf("form:%s:submissions:version", formID)
}

// CacheSignal drops the dashboard's cached submission list and count for the
// form and bumps a version counter readers can compare against.
type CacheSignal struct {
	client redis.Cmdable
}

func NewCacheSignal(client redis.Cmdable) *CacheSignal {
	return &CacheSignal{client: client}
}

func (c *CacheSignal) SubmissionStored(ctx context.Context, form *forms.Form, _ *Record) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, SubmissionsCacheKey(form.ID), SubmissionCountCacheKey(form.ID))
		pipe.Incr(ctx, SubmissionsVersionKey(form.ID))
		return nil
	})
	return err
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, key string, data map[string]interface{}) error
}

// EventSignal announces new submissions on the event bus, keyed by form.
type EventSignal struct {
	publisher EventPublisher
}

func NewEventSignal(publisher EventPublisher) *EventSignal {
	return &EventSignal{publisher: publisher}
}

func (e *EventSignal) SubmissionStored(ctx context.Context, form *forms.Form, rec *Record) error {
	return e.publisher.PublishEvent(ctx, EventSubmissionCreated, form.ID, map[string]interface{}{
		"form_id":       form.ID,
		"submission_id": rec.ID,
		"is_spam":       rec.IsSpam,
		"created_at":    models.FormatTimestamp(rec.CreatedAt),
	})
}
