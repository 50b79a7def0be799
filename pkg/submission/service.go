package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/formrelay/platform/pkg/common/logger"
	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/fanout"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/observability/metrics"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const signalTimeout = 5 * time.Second

type FormFinder interface {
	FindByEndpoint(ctx context.Context, endpointID string) (*forms.Form, error)
}

type Store interface {
	Create(ctx context.Context, rec *Record) error
}

type Classifier interface {
	Classify(ctx context.Context, enabled bool, payload models.Payload, remoteIP string) bool
}

type Fanout interface {
	Dispatch(ctx context.Context, form *forms.Form, sub *fanout.Submission) []fanout.Result
}

// Inbound is a submit request stripped of its transport.
type Inbound struct {
	EndpointID  string
	Origin      string
	ContentType string
	Body        io.Reader
	ClientIP    string
}

type Result struct {
	ID          string
	CreatedAt   time.Time
	RedirectURL string
}

type Service struct {
	forms      FormFinder
	store      Store
	classifier Classifier
	fanout     Fanout
	signals    []Signal

	awaitFanout bool

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

// NewService wires the pipeline. With awaitFanout the call to Submit returns
// only after every delivery has finished; otherwise deliveries run detached.
func NewService(finder FormFinder, store Store, classifier Classifier, fan Fanout, signals []Signal, awaitFanout bool) *Service {
	return &Service{
		forms:       finder,
		store:       store,
		classifier:  classifier,
		fanout:      fan,
		signals:     signals,
		awaitFanout: awaitFanout,
	}
}

// Submit runs lookup, origin check, decoding, classification, and the single
// insert. Fan-out starts only after the insert succeeded.
func (s *Service) Submit(ctx context.Context, in Inbound) (*Result, error) {
	form, err := s.forms.FindByEndpoint(ctx, in.EndpointID)
	if err != nil {
		if errors.Is(err, forms.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading form: %w", err)
	}

	if err := CheckOrigin(form.AllowedDomains, in.Origin); err != nil {
		return nil, err
	}

	payload, err := Decode(in.ContentType, in.Body)
	if err != nil {
		return nil, err
	}

	spam := false
	if s.classifier != nil {
		spam = s.classifier.Classify(ctx, form.TurnstileEnabled, payload, in.ClientIP)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	rec := &Record{
		ID:      uuid.New().String(),
		FormID:  form.ID,
		Payload: datatypes.JSON(raw),
		IsSpam:  spam,
	}
	if in.ClientIP != "" {
		ip := in.ClientIP
		rec.IPAddress = &ip
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting submission: %w", err)
	}
	if spam {
		metrics.ObserveSpam()
	}

	logger.ForSubmission(form.EndpointID, rec.ID).WithField("spam", spam).Info("submission stored")

	s.afterWrite(ctx, form, rec, payload)

	res := &Result{ID: rec.ID, CreatedAt: rec.CreatedAt}
	if form.HasRedirect() {
		res.RedirectURL = strings.TrimSpace(form.RedirectURL)
	}
	return res, nil
}

func (s *Service) afterWrite(ctx context.Context, form *forms.Form, rec *Record, payload models.Payload) {
	// Deliveries outlive the request.
	bg := context.WithoutCancel(ctx)
	sub := &fanout.Submission{ID: rec.ID, Payload: payload, CreatedAt: rec.CreatedAt}

	run := func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.notifySignals(bg, form, rec)
		}()
		if s.fanout != nil {
			s.fanout.Dispatch(bg, form, sub)
		}
		wg.Wait()
	}

	if s.awaitFanout {
		run()
		return
	}

	s.mu.Lock()
	if s.draining {
		// Wait has started; nothing may join the group any more, so the
		// request that is still in flight delivers before it returns.
		s.mu.Unlock()
		run()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		run()
	}()
}

func (s *Service) notifySignals(ctx context.Context, form *forms.Form, rec *Record) {
	log := logger.ForSubmission(form.EndpointID, rec.ID)
	for _, sig := range s.signals {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Error("submission signal panicked")
				}
			}()
			sctx, cancel := context.WithTimeout(ctx, signalTimeout)
			defer cancel()
			if err := sig.SubmissionStored(sctx, form, rec); err != nil {
				log.WithError(err).Warn("submission signal failed")
			}
		}()
	}
}

// Wait blocks until detached deliveries finish or ctx ends. Submissions that
// complete after Wait has been called deliver synchronously.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
