package fanout

import (
	"context"
	"net/http"
	"strings"

	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/gateway/httpclient"
)

type sheetsRow struct {
	FormName     string         `json:"formName"`
	SubmissionID string         `json:"submissionId"`
	SubmittedAt  string         `json:"submittedAt"`
	Data         models.Payload `json:"data"`
}

// Sheets forwards the raw payload to a user-deployed spreadsheet bridge
// script, which owns the column mapping.
type Sheets struct {
	client *http.Client
}

func NewSheets(client *http.Client) *Sheets {
	return &Sheets{client: client}
}

func (s *Sheets) Name() string { return "google_sheets" }

func (s *Sheets) Configured(form *forms.Form, _ *Submission) bool {
	return strings.TrimSpace(form.GoogleSheetsURL) != ""
}

func (s *Sheets) Deliver(ctx context.Context, form *forms.Form, sub *Submission) error {
	row := sheetsRow{
		FormName:     form.Name,
		SubmissionID: sub.ID,
		SubmittedAt:  models.FormatTimestamp(sub.CreatedAt),
		Data:         sub.Payload,
	}
	return httpclient.PostJSON(ctx, s.client, strings.TrimSpace(form.GoogleSheetsURL), row, nil, nil)
}
