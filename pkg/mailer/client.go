package mailer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/formrelay/platform/pkg/gateway/httpclient"
	"golang.org/x/oauth2"
)

var ErrNoRecipient = errors.New("mailer: no recipient")

type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Client talks to a transactional email API authenticated with a bearer key.
type Client struct {
	http    *http.Client
	baseURL string
	from    string
}

func NewClient(base *http.Client, apiKey, baseURL, from string) *Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	authed := oauth2.NewClient(ctx, src)
	authed.Timeout = base.Timeout

	return &Client{
		http:    authed,
		baseURL: strings.TrimRight(baseURL, "/"),
		from:    from,
	}
}

// Send delivers one message and returns the provider's message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return "", ErrNoRecipient
	}

	req := sendRequest{
		From:    c.from,
		To:      []string{to},
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}

	var resp sendResponse
	if err := httpclient.PostJSON(ctx, c.http, c.baseURL+"/emails", req, nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}
