package mailer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/formrelay/platform/pkg/common/models"
)

func TestLoadTemplatesDefaults(t *testing.T) {
	cfg, err := LoadTemplates("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OwnerNotification.Subject == "" || cfg.AutoResponder.Body == "" {
		t.Fatal("expected default templates")
	}
}

func TestLoadTemplatesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail.yaml")
	content := "auto_responder:\n  subject: \"We got it, {{.FormName}}\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AutoResponder.Subject != "We got it, {{.FormName}}" {
		t.Fatalf("unexpected subject %q", cfg.AutoResponder.Subject)
	}
	if cfg.OwnerNotification.Body != DefaultTemplates().OwnerNotification.Body {
		t.Fatal("expected owner body to fall back to default")
	}
}

func TestLoadTemplatesRejectsBrokenTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail.yaml")
	if err := os.WriteFile(path, []byte("owner_notification:\n  subject: \"{{.FormName\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTemplates(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRenderHTMLEscapesPayload(t *testing.T) {
	p := models.NewPayload()
	p.Set("msg", "<script>alert(1)</script>")
	data := NewTemplateData("Contact", "sub-1", "2024-01-01T00:00:00.000Z", p)

	out, err := RenderHTML(DefaultTemplates().OwnerNotification.Body, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("payload was not escaped: %s", out)
	}
	if !strings.Contains(out, "msg") {
		t.Fatalf("expected field name in output: %s", out)
	}

	subject, err := RenderText(DefaultTemplates().OwnerNotification.Subject, data)
	if err != nil || subject != "New submission: Contact" {
		t.Fatalf("unexpected subject %q (%v)", subject, err)
	}
}

func TestTextToHTML(t *testing.T) {
	if got := TextToHTML("Hi <b>\nthanks"); got != "<p>Hi &lt;b&gt;<br>thanks</p>" {
		t.Fatalf("unexpected %q", got)
	}
}
