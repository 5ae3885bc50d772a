// Package sms holds the delivery transports used by the verification backends.
// Each transport maps one provider's send API onto Sender.
package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SendResult holds the outcome of a provider Send call.
type SendResult struct {
	MessageID string
	Status    string
}

// Sender sends an SMS to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) (*SendResult, error)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, to, body string) (*SendResult, error)

func (f SenderFunc) Send(ctx context.Context, to, body string) (*SendResult, error) {
	return f(ctx, to, body)
}

// ProviderError is a rejection reported by a provider API, as opposed to a
// network or parsing failure. Code is the provider's own error code, or the
// HTTP status when the provider sent none.
type ProviderError struct {
	Provider   string
	HTTPStatus int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: error %s: %s", e.Provider, e.Code, e.Message)
}

// Rejected reports whether the provider refused the request itself
// (credentials, recipient, sender), so resending it unchanged cannot work.
func (e *ProviderError) Rejected() bool {
	return e.HTTPStatus < http.StatusInternalServerError
}

const (
	requestTimeout   = 10 * time.Second
	maxResponseBytes = 64 << 10
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// postForm POSTs form to endpoint and returns the status code and body.
// prepare may add authentication to the request.
func postForm(ctx context.Context, client *http.Client, provider, endpoint string, form url.Values, prepare func(*http.Request)) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if prepare != nil {
		prepare(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: send request: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%s: read response: %w", provider, err)
	}
	return resp.StatusCode, body, nil
}
