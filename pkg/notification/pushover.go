package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// PushoverClient sends notifications through the Pushover message API.
type PushoverClient struct {
	endpoint string
	token    string
	user     string
	client   *http.Client
}

// NewPushoverClient creates a client posting to endpoint with the given
// application token and user key.
func NewPushoverClient(endpoint, token, user string) *PushoverClient {
	return &PushoverClient{
		endpoint: endpoint,
		token:    token,
		user:     user,
		client:   &http.Client{},
	}
}

// Send posts a single form-encoded message. Any non-2xx status is a
// DeliveryError. The request is bounded only by ctx; Manager sets the
// deadline from notifier.timeout.
func (p *PushoverClient) Send(ctx context.Context, n Notification) error {
	form := url.Values{}
	form.Set("token", p.token)
	form.Set("user", p.user)
	form.Set("title", n.Title)
	form.Set("message", n.Message)
	if n.URL != "" {
		form.Set("url", n.URL)
		if n.URLTitle != "" {
			form.Set("url_title", n.URLTitle)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &DeliveryError{Backend: "pushover", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return &DeliveryError{Backend: "pushover", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{
			Backend: "pushover",
			Err:     fmt.Errorf("pushover returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
