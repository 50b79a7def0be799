package fanout

import (
	"context"
	"net/http"
	"strings"

	"github.com/formrelay/platform/pkg/common/models"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/gateway/httpclient"
	"golang.org/x/oauth2"
)

// notionTitleProperty is the default title column of a Notion database.
const notionTitleProperty = "Name"

type notionText struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

func newNotionText(content string) []notionText {
	var t notionText
	t.Text.Content = models.Truncate(content, notionTextMax)
	return []notionText{t}
}

type notionPage struct {
	Parent     map[string]string      `json:"parent"`
	Properties map[string]interface{} `json:"properties"`
}

// Notion creates one database page per submission using the form's
// integration token.
type Notion struct {
	base    *http.Client
	baseURL string
	version string
}

func NewNotion(base *http.Client, baseURL, version string) *Notion {
	return &Notion{base: base, baseURL: strings.TrimRight(baseURL, "/"), version: version}
}

func (n *Notion) Name() string { return "notion" }

func (n *Notion) Configured(form *forms.Form, _ *Submission) bool {
	return strings.TrimSpace(form.NotionToken) != "" && strings.TrimSpace(form.NotionDatabaseID) != ""
}

func (n *Notion) Deliver(ctx context.Context, form *forms.Form, sub *Submission) error {
	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, n.base),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(form.NotionToken), TokenType: "Bearer"}),
	)
	headers := map[string]string{"Notion-Version": n.version}
	return httpclient.PostJSON(ctx, client, n.baseURL+"/pages", buildNotionPage(form, sub), headers, nil)
}

func buildNotionPage(form *forms.Form, sub *Submission) notionPage {
	title := "Submission " + sub.ID
	props := map[string]interface{}{}

	cleanFields(sub.Payload).Each(func(k string, v interface{}) {
		value := models.Stringify(v)
		if k == notionTitleProperty {
			// A field that shares the title column's name becomes the title.
			if strings.TrimSpace(value) != "" {
				title = value
			}
			return
		}
		props[k] = map[string]interface{}{"rich_text": newNotionText(value)}
	})
	props[notionTitleProperty] = map[string]interface{}{"title": newNotionText(title)}

	return notionPage{
		Parent:     map[string]string{"database_id": strings.TrimSpace(form.NotionDatabaseID)},
		Properties: props,
	}
}
