package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/formrelay/platform/pkg/common/logger"
	"github.com/formrelay/platform/pkg/common/models"
)

// TokenField is the form field the challenge widget injects into the page's form.
const TokenField = "cf-turnstile-response"

var ErrSecretMissing = errors.New("turnstile secret key not configured")

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

// Turnstile verifies challenge tokens against the siteverify API.
type Turnstile struct {
	client    *http.Client
	secret    string
	verifyURL string
	timeout   time.Duration
}

func NewTurnstile(client *http.Client, secret, verifyURL string, timeout time.Duration) *Turnstile {
	return &Turnstile{client: client, secret: secret, verifyURL: verifyURL, timeout: timeout}
}

// Verify returns whether the service accepted the token.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if t.secret == "" {
		return false, ErrSecretMissing
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("building siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decoding siteverify response: %w", err)
	}
	if !out.Success {
		logger.Log.WithField("error_codes", out.ErrorCodes).Debug("turnstile token rejected")
	}
	return out.Success, nil
}

type TokenVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Gate decides the spam flag of a submission before it is stored.
type Gate struct {
	verifier TokenVerifier
}

func NewGate(verifier TokenVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Classify reports whether a submission is spam.
//
// Forms without verification are never spam. With verification on, a missing
// token is left unscored (not spam) so programmatic clients keep working; a
// present token is spam unless the service accepts it, including when the
// service cannot be reached.
func (g *Gate) Classify(ctx context.Context, enabled bool, payload models.Payload, remoteIP string) bool {
	if !enabled {
		return false
	}

	raw, ok := payload.Get(TokenField)
	if !ok {
		return false
	}
	token := strings.TrimSpace(models.Stringify(raw))
	if token == "" {
		return false
	}

	if g == nil || g.verifier == nil {
		logger.Log.Warn("bot verification requested but no verifier configured")
		return true
	}

	passed, err := g.verifier.Verify(ctx, token, remoteIP)
	if err != nil {
		logger.Log.WithError(err).Warn("bot verification failed, marking submission as spam")
		return true
	}
	return !passed
}
