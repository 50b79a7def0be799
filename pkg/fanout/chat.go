package fanout

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/gateway/httpclient"
)

// Slack sends a single text message to an incoming webhook.
type Slack struct {
	client *http.Client
}

func NewSlack(client *http.Client) *Slack {
	return &Slack{client: client}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Configured(form *forms.Form, _ *Submission) bool {
	return strings.TrimSpace(form.SlackWebhookURL) != ""
}

func (s *Slack) Deliver(ctx context.Context, form *forms.Form, sub *Submission) error {
	text := "New submission for *" + formLabel(form.Name) + "*"
	if lines := fieldLines(cleanFields(sub.Payload)); lines != "" {
		text += "\n" + lines
	}
	return httpclient.PostJSON(ctx, s.client, strings.TrimSpace(form.SlackWebhookURL), map[string]string{"text": text}, nil, nil)
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Footer    map[string]any `json:"footer,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type discordMessage struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

// Discord sends an embed with one field per payload entry.
type Discord struct {
	client *http.Client
}

func NewDiscord(client *http.Client) *Discord {
	return &Discord{client: client}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Configured(form *forms.Form, _ *Submission) bool {
	return strings.TrimSpace(form.DiscordWebhookURL) != ""
}

func (d *Discord) Deliver(ctx context.Context, form *forms.Form, sub *Submission) error {
	return httpclient.PostJSON(ctx, d.client, strings.TrimSpace(form.DiscordWebhookURL), buildDiscordMessage(form, sub), nil, nil)
}

func buildDiscordMessage(form *forms.Form, sub *Submission) discordMessage {
	entries := cleanFields(sub.Payload)
	limit := entries.Len()
	if limit > discordMaxFields {
		// Keep the last slot for the overflow summary.
		limit = discordMaxFields - 1
	}

	fields := make([]discordField, 0, limit+1)
	entries.Each(func(k string, v interface{}) {
		if len(fields) == limit {
			return
		}
		name := strings.TrimSpace(k)
		if name == "" {
			name = discordUnnamedField
		}
		value := models.Stringify(v)
		if strings.TrimSpace(value) == "" {
			// Discord rejects empty field names and values.
			value = "-"
		}
		fields = append(fields, discordField{
			Name:  models.Truncate(name, discordFieldNameMax),
			Value: models.Truncate(value, discordFieldValueMax),
		})
	})
	if hidden := entries.Len() - limit; hidden > 0 {
		fields = append(fields, discordField{Name: "More", Value: fmt.Sprintf("…and %d more fields", hidden)})
	}

	return discordMessage{
		Username: "FormRelay",
		Embeds: []discordEmbed{{
			Title:     "New submission: " + formLabel(form.Name),
			Color:     0x5865F2,
			Fields:    fields,
			Footer:    map[string]any{"text": "Submission " + sub.ID},
			Timestamp: models.FormatTimestamp(sub.CreatedAt),
		}},
	}
}
