package mailer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"github.com/formrelay/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
)

type Template struct {
	Subject string `yaml:"subject" json:"subject"`
	Body    string `yaml:"body" json:"body"`
}

type TemplatesConfig struct {
	OwnerNotification Template `yaml:"owner_notification" json:"owner_notification"`
	AutoResponder     Template `yaml:"auto_responder" json:"auto_responder"`
}

// Field is one rendered payload entry.
type Field struct {
	Name  string
	Value string
}

// TemplateData is what templates see.
type TemplateData struct {
	FormName     string
	SubmissionID string
	SubmittedAt  string
	Fields       []Field
	RawJSON      string
}

func NewTemplateData(formName, submissionID, submittedAt string, payload models.Payload) TemplateData {
	data := TemplateData{FormName: formName, SubmissionID: submissionID, SubmittedAt: submittedAt}
	payload.Each(func(k string, v interface{}) {
		data.Fields = append(data.Fields, Field{Name: k, Value: models.Stringify(v)})
	})
	if raw, err := json.MarshalIndent(payload, "", "  "); err == nil {
		data.RawJSON = string(raw)
	}
	return data
}

func LoadTemplates(path string) (TemplatesConfig, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultTemplates(), err
	}

	var cfg TemplatesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return TemplatesConfig{}, err
	}

	defaults := DefaultTemplates()
	if cfg.OwnerNotification.Subject == "" {
		cfg.OwnerNotification.Subject = defaults.OwnerNotification.Subject
	}
	if cfg.OwnerNotification.Body == "" {
		cfg.OwnerNotification.Body = defaults.OwnerNotification.Body
	}
	if cfg.AutoResponder.Subject == "" {
		cfg.AutoResponder.Subject = defaults.AutoResponder.Subject
	}
	if cfg.AutoResponder.Body == "" {
		cfg.AutoResponder.Body = defaults.AutoResponder.Body
	}

	if err := cfg.validate(); err != nil {
		return TemplatesConfig{}, err
	}
	return cfg, nil
}

func DefaultTemplates() TemplatesConfig {
	return TemplatesConfig{
		OwnerNotification: Template{
			Subject: "New submission: {{.FormName}}",
			Body: `<h2>New submission for {{.FormName}}</h2>
<table cellpadding="6" style="border-collapse:collapse">
{{- range .Fields}}
<tr><td style="font-weight:bold;vertical-align:top">{{.Name}}</td><td>{{.Value}}</td></tr>
{{- end}}
</table>
<p style="color:#666">Submission {{.SubmissionID}} received {{.SubmittedAt}}</p>
<pre style="background:#f5f5f5;padding:12px">{{.RawJSON}}</pre>`,
		},
		AutoResponder: Template{
			Subject: "Thanks for contacting {{.FormName}}",
			Body:    "Thanks for reaching out! We received your message and will get back to you soon.",
		},
	}
}

func (c TemplatesConfig) validate() error {
	var errs []error
	for name, tpl := range map[string]string{
		"owner_notification.subject": c.OwnerNotification.Subject,
		"auto_responder.subject":     c.AutoResponder.Subject,
		"auto_responder.body":        c.AutoResponder.Body,
	} {
		if _, err := texttemplate.New(name).Parse(tpl); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if _, err := htmltemplate.New("owner_notification.body").Parse(c.OwnerNotification.Body); err != nil {
		errs = append(errs, fmt.Errorf("owner_notification.body: %w", err))
	}
	return errors.Join(errs...)
}

// RenderText executes a plain-text template such as a subject line.
func RenderText(tpl string, data TemplateData) (string, error) {
	t, err := texttemplate.New("text").Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// RenderHTML executes an HTML template with contextual escaping of payload values.
func RenderHTML(tpl string, data TemplateData) (string, error) {
	t, err := htmltemplate.New("html").Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TextToHTML turns an owner-authored plain text body into escaped HTML paragraphs.
func TextToHTML(text string) string {
	escaped := htmltemplate.HTMLEscapeString(strings.TrimSpace(text))
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}
