package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const nexmoDefaultBaseURL = "https://rest.nexmo.com"

// NexmoSender sends SMS via the Nexmo (Vonage) SMS API.
type NexmoSender struct {
	apiKey     string
	apiSecret  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

// NewNexmoSender creates a NexmoSender. If baseURL is empty, the production API is used.
func NewNexmoSender(apiKey, apiSecret, fromNumber, baseURL string) *NexmoSender {
	if baseURL == "" {
		baseURL = nexmoDefaultBaseURL
	}
	return &NexmoSender{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		fromNumber: fromNumber,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     newHTTPClient(),
	}
}

type nexmoResponse struct {
	Messages []struct {
		MessageID string `json:"message-id"`
		Status    string `json:"status"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

func (p *NexmoSender) Send(ctx context.Context, to, body string) (*SendResult, error) {
	form := url.Values{
		"api_key":    {p.apiKey},
		"api_secret": {p.apiSecret},
		"from":       {p.fromNumber},
		"to":         {to},
		"text":       {body},
	}
	status, data, err := postForm(ctx, p.client, "nexmo", p.baseURL+"/sms/json", form, nil)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, &ProviderError{Provider: "nexmo", HTTPStatus: status, Code: strconv.Itoa(status), Message: strings.TrimSpace(string(data))}
	}

	var parsed nexmoResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("nexmo: parse response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return nil, errors.New("nexmo: empty response")
	}

	// Status "0" is success; any other value is a per-message rejection.
	msg := parsed.Messages[0]
	if msg.Status != "0" {
		return nil, &ProviderError{Provider: "nexmo", HTTPStatus: status, Code: msg.Status, Message: msg.ErrorText}
	}
	return &SendResult{MessageID: msg.MessageID, Status: "sent"}, nil
}
