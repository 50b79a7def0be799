package fanout

import (
	"context"
	"net/http"
	"strings"

	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/gateway/httpclient"
)

type webhookEnvelope struct {
	FormID       string         `json:"formId"`
	SubmissionID string         `json:"submissionId"`
	Payload      models.Payload `json:"payload"`
	CreatedAt    string         `json:"createdAt"`
}

// Webhook posts the full submission envelope to the form's custom URL.
type Webhook struct {
	client *http.Client
}

func NewWebhook(client *http.Client) *Webhook {
	return &Webhook{client: client}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Configured(form *forms.Form, _ *Submission) bool {
	return form.WebhookEnabled && strings.TrimSpace(form.WebhookURL) != ""
}

func (w *Webhook) Deliver(ctx context.Context, form *forms.Form, sub *Submission) error {
	body := webhookEnvelope{
		FormID:       form.ID,
		SubmissionID: sub.ID,
		Payload:      sub.Payload,
		CreatedAt:    models.FormatTimestamp(sub.CreatedAt),
	}
	headers := map[string]string{"X-FormRelay-Event": "submission.created"}
	return httpclient.PostJSON(ctx, w.client, strings.TrimSpace(form.WebhookURL), body, headers, nil)
}
