package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lensdesk/lensdesk/internal/config"
	"github.com/lensdesk/lensdesk/internal/pkg/httpretry"
)

// TwilioSender sends SMS through the Twilio REST API. Transient HTTP
// failures (429, 5xx) are retried within a single send; a definitive
// rejection surfaces immediately.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	http       httpretry.HTTPDoer
}

// NewTwilioSender creates a Twilio SMS sender from config.
func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	return &TwilioSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
	}
}

type twilioResponse struct {
	Sid       string `json:"sid"`
	Status    string `json:"status"`
	ErrorCode *int   `json:"error_code"`
	Message   string `json:"message"`
}

// Send posts a message to the Twilio Messages endpoint. Twilio returns 201
// for created; any 2xx counts as accepted.
func (t *TwilioSender) Send(ctx context.Context, msg Message) (string, error) {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", t.fromNumber)
	form.Set("Body", msg.Body)

	endpoint := t.baseURL + "/2010-04-01/Accounts/" + t.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	var out twilioResponse
	_ = json.Unmarshal(b, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Message != "" {
			return "", errors.New(out.Message)
		}
		return "", errors.New("twilio send failed")
	}
	return out.Sid, nil
}
