package forms

import (
	"strings"
	"time"
)

// Form is the owner-managed configuration behind one public submit endpoint.
// It is read-only on the submission path.
type Form struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid;column:id"`
	UserID     string `json:"user_id" gorm:"index;not null;column:user_id"`
	Name       string `json:"name" gorm:"not null;column:name"`
	EndpointID string `json:"endpoint_id" gorm:"uniqueIndex;not null;size:64;column:endpoint_id"`

	WebhookURL        string `json:"webhook_url,omitempty" gorm:"column:webhook_url"`
	WebhookEnabled    bool   `json:"webhook_enabled" gorm:"not null;default:false;column:webhook_enabled"`
	SlackWebhookURL   string `json:"slack_webhook_url,omitempty" gorm:"column:slack_webhook_url"`
	DiscordWebhookURL string `json:"discord_webhook_url,omitempty" gorm:"column:discord_webhook_url"`
	GoogleSheetsURL   string `json:"google_sheets_url,omitempty" gorm:"column:google_sheets_url"`
	TelegramBotToken  string `json:"-" gorm:"column:telegram_bot_token"`
	TelegramChatID    string `json:"telegram_chat_id,omitempty" gorm:"column:telegram_chat_id"`
	NotionToken       string `json:"-" gorm:"column:notion_token"`
	NotionDatabaseID  string `json:"notion_database_id,omitempty" gorm:"column:notion_database_id"`

	AutoResponderEnabled bool   `json:"auto_responder_enabled" gorm:"not null;default:false;column:auto_responder_enabled"`
	AutoResponderSubject string `json:"auto_responder_subject,omitempty" gorm:"column:auto_responder_subject"`
	AutoResponderBody    string `json:"auto_responder_body,omitempty" gorm:"column:auto_responder_body"`
	EmailNotifications   bool   `json:"email_notifications" gorm:"not null;default:true;column:email_notifications"`

	AllowedDomains   string `json:"allowed_domains,omitempty" gorm:"column:allowed_domains"`
	TurnstileEnabled bool   `json:"turnstile_enabled" gorm:"not null;default:false;column:turnstile_enabled"`
	RedirectURL      string `json:"redirect_url,omitempty" gorm:"column:redirect_url"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	// OwnerEmail is joined from the owner's account at lookup time.
	OwnerEmail string `json:"-" gorm:"->;-:migration;column:owner_email"`
}

func (Form) TableName() string {
	return "forms"
}

func (f *Form) HasRedirect() bool {
	return strings.TrimSpace(f.RedirectURL) != ""
}

// Owner is the slice of the identity subsystem's user table this service reads.
type Owner struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	Email     string    `json:"email" gorm:"column:email"`
	Plan      string    `json:"plan" gorm:"column:plan"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Owner) TableName() string {
	return "users"
}
