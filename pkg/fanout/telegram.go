package fanout

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/gateway/httpclient"
)

type telegramSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Telegram posts a message through the form owner's own bot.
type Telegram struct {
	client  *http.Client
	baseURL string
}

func NewTelegram(client *http.Client, baseURL string) *Telegram {
	return &Telegram{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Configured(form *forms.Form, _ *Submission) bool {
	return strings.TrimSpace(form.TelegramBotToken) != "" && strings.TrimSpace(form.TelegramChatID) != ""
}

func (t *Telegram) Deliver(ctx context.Context, form *forms.Form, sub *Submission) error {
	text := "📬 New submission: " + formLabel(form.Name)
	if lines := fieldLines(cleanFields(sub.Payload)); lines != "" {
		text += "\n\n" + lines
	}

	msg := telegramSendMessage{
		ChatID:                strings.TrimSpace(form.TelegramChatID),
		Text:                  models.Truncate(text, telegramTextMax),
		DisableWebPagePreview: true,
	}
	endpoint := t.baseURL + "/bot" + strings.TrimSpace(form.TelegramBotToken) + "/sendMessage"

	var resp telegramResponse
	if err := httpclient.PostJSON(ctx, t.client, endpoint, msg, nil, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return errors.New("telegram rejected message: " + resp.Description)
	}
	return nil
}
