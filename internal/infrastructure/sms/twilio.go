package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const twilioDefaultBaseURL = "https://api.twilio.com"

// TwilioSender sends SMS through the Twilio Messages resource.
type TwilioSender struct {
	accountSID  string
	authToken   string
	fromNumber  string
	messagesURL string
	client      *http.Client
}

// NewTwilioSender creates a TwilioSender. An empty baseURL selects the
// production API.
func NewTwilioSender(accountSID, authToken, fromNumber, baseURL string) *TwilioSender {
	if baseURL == "" {
		baseURL = twilioDefaultBaseURL
	}
	return &TwilioSender{
		accountSID:  accountSID,
		authToken:   authToken,
		fromNumber:  fromNumber,
		messagesURL: fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(baseURL, "/"), url.PathEscape(accountSID)),
		client:      newHTTPClient(),
	}
}

// twilioMessage is the Message resource returned on 201.
type twilioMessage struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// twilioAPIError is the body Twilio sends with 4xx and 5xx responses.
type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *TwilioSender) Send(ctx context.Context, to, body string) (*SendResult, error) {
	form := url.Values{
		"To":   {to},
		"From": {p.fromNumber},
		"Body": {body},
	}
	status, data, err := postForm(ctx, p.client, "twilio", p.messagesURL, form, func(r *http.Request) {
		r.SetBasicAuth(p.accountSID, p.authToken)
	})
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, twilioFailure(status, data)
	}

	var msg twilioMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("twilio: parse response: %w", err)
	}
	// A message can be created already failed, e.g. for a landline recipient.
	if msg.Status == "failed" || msg.Status == "undelivered" {
		e := &ProviderError{Provider: "twilio", HTTPStatus: status, Code: msg.Status, Message: msg.ErrorMessage}
		if msg.ErrorCode != nil {
			e.Code = strconv.Itoa(*msg.ErrorCode)
		}
		return nil, e
	}
	return &SendResult{MessageID: msg.SID, Status: msg.Status}, nil
}

func twilioFailure(status int, data []byte) error {
	e := &ProviderError{
		Provider:   "twilio",
		HTTPStatus: status,
		Code:       strconv.Itoa(status),
		Message:    strings.TrimSpace(string(data)),
	}
	var apiErr twilioAPIError
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
		e.Code = strconv.Itoa(apiErr.Code)
		e.Message = apiErr.Message
	}
	return e
}
