package fanout

import (
	"context"
	"strings"

	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/mailer"
)

// Sender is the transactional email dependency.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// submitterEmailKeys are the lower-cased field names checked for the
// submitter's address, in priority order.
var submitterEmailKeys = []string{"email", "e-mail", "email_address", "emailaddress", "email-address", "your-email", "your_email", "mail"}

// SubmitterEmail finds a plausible reply address in the payload.
func SubmitterEmail(p models.Payload) string {
	byKey := make(map[string]string, p.Len())
	p.Each(func(k string, v interface{}) {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, seen := byKey[lk]; !seen {
			byKey[lk] = strings.TrimSpace(models.Stringify(v))
		}
	})
	for _, key := range submitterEmailKeys {
		if v := byKey[key]; strings.Contains(v, "@") {
			return v
		}
	}
	return ""
}

// OwnerEmail notifies the form owner with the full payload.
type OwnerEmail struct {
	sender    Sender
	templates mailer.TemplatesConfig
}

func NewOwnerEmail(sender Sender, templates mailer.TemplatesConfig) *OwnerEmail {
	return &OwnerEmail{sender: sender, templates: templates}
}

func (o *OwnerEmail) Name() string { return "owner_email" }

func (o *OwnerEmail) Configured(form *forms.Form, _ *Submission) bool {
	return form.EmailNotifications && strings.TrimSpace(form.OwnerEmail) != ""
}

func (o *OwnerEmail) Deliver(ctx context.Context, form *forms.Form, sub *Submission) error {
	data := mailer.NewTemplateData(formLabel(form.Name), sub.ID, models.FormatTimestamp(sub.CreatedAt), sub.Payload)

	subject, err := mailer.RenderText(o.templates.OwnerNotification.Subject, data)
	if err != nil {
		return err
	}
	html, err := mailer.RenderHTML(o.templates.OwnerNotification.Body, data)
	if err != nil {
		return err
	}

	_, err = o.sender.Send(ctx, mailer.Message{
		To:      form.OwnerEmail,
		ReplyTo: SubmitterEmail(sub.Payload),
		Subject: subject,
		HTML:    html,
		Text:    fieldLines(cleanFields(sub.Payload)),
	})
	return err
}

// AutoResponder acknowledges the submission to the submitter's address.
type AutoResponder struct {
	sender    Sender
	templates mailer.TemplatesConfig
}

func NewAutoResponder(sender Sender, templates mailer.TemplatesConfig) *AutoResponder {
	return &AutoResponder{sender: sender, templates: templates}
}

func (a *AutoResponder) Name() string { return "auto_responder" }

func (a *AutoResponder) Configured(form *forms.Form, sub *Submission) bool {
	return form.AutoResponderEnabled && SubmitterEmail(sub.Payload) != ""
}

func (a *AutoResponder) Deliver(ctx context.Context, form *forms.Form, sub *Submission) error {
	data := mailer.NewTemplateData(formLabel(form.Name), sub.ID, models.FormatTimestamp(sub.CreatedAt), cleanFields(sub.Payload))

	subject := strings.TrimSpace(form.AutoResponderSubject)
	if subject == "" {
		rendered, err := mailer.RenderText(a.templates.AutoResponder.Subject, data)
		if err != nil {
			return err
		}
		subject = rendered
	}

	body := strings.TrimSpace(form.AutoResponderBody)
	if body == "" {
		rendered, err := mailer.RenderText(a.templates.AutoResponder.Body, data)
		if err != nil {
			return err
		}
		body = rendered
	}

	_, err := a.sender.Send(ctx, mailer.Message{
		To:      SubmitterEmail(sub.Payload),
		ReplyTo: form.OwnerEmail,
		Subject: subject,
		HTML:    mailer.TextToHTML(body),
		Text:    body,
	})
	return err
}
