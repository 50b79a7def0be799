package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/formrelay/platform/pkg/common/logger"
	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/observability/metrics"
	"golang.org/x/sync/errgroup"
)

// Submission is the stored submission as seen by delivery channels.
type Submission struct {
	ID        string
	Payload   models.Payload
	CreatedAt time.Time
}

// Channel is one destination a form can fan submissions out to.
type Channel interface {
	Name() string
	// Configured reports whether the form wants this channel for this submission.
	Configured(form *forms.Form, sub *Submission) bool
	Deliver(ctx context.Context, form *forms.Form, sub *Submission) error
}

type Result struct {
	Channel  string
	Err      error
	Duration time.Duration
}

type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
}

func NewDispatcher(timeout time.Duration, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, timeout: timeout}
}

// Dispatch attempts every configured channel once, concurrently, and returns
// when all attempts have finished. Failures are logged and reported in the
// results; they never cancel or delay sibling deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, form *forms.Form, sub *Submission) []Result {
	var active []Channel
	for _, ch := range d.channels {
		if ch.Configured(form, sub) {
			active = append(active, ch)
		}
	}
	if len(active) == 0 {
		return nil
	}

	results := make([]Result, len(active))
	var g errgroup.Group
	for i, ch := range active {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = d.deliver(ctx, ch, form, sub)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, form *forms.Form, sub *Submission) (res Result) {
	start := time.Now()
	res.Channel = ch.Name()

	log := logger.ForSubmission(form.EndpointID, sub.ID).WithField("channel", ch.Name())

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic in %s delivery: %v", ch.Name(), r)
		}
		res.Duration = time.Since(start)
		metrics.ObserveDelivery(res.Channel, res.Err == nil)
		if res.Err != nil {
			log.WithError(res.Err).Warn("delivery failed")
			return
		}
		log.WithField("duration_ms", res.Duration.Milliseconds()).Debug("delivery succeeded")
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res.Err = ch.Deliver(ctx, form, sub)
	return res
}
