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

const kavenegarDefaultBaseURL = "https://api.kavenegar.com"

// KavenegarSender sends SMS via the Kavenegar REST API. The API key is part of the URL path.
type KavenegarSender struct {
	apiKey  string
	sender  string
	baseURL string
	client  *http.Client
}

// NewKavenegarSender creates a KavenegarSender. If baseURL is empty, the production API is used.
func NewKavenegarSender(apiKey, sender, baseURL string) *KavenegarSender {
	if baseURL == "" {
		baseURL = kavenegarDefaultBaseURL
	}
	return &KavenegarSender{
		apiKey:  apiKey,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(),
	}
}

type kavenegarResponse struct {
	Return struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"return"`
	Entries []struct {
		MessageID  int64  `json:"messageid"`
		StatusText string `json:"statustext"`
	} `json:"entries"`
}

func (p *KavenegarSender) Send(ctx context.Context, to, body string) (*SendResult, error) {
	endpoint := fmt.Sprintf("%s/v1/%s/sms/send.json", p.baseURL, url.PathEscape(p.apiKey))
	form := url.Values{
		"receptor": {to},
		"message":  {body},
		"sender":   {p.sender},
	}
	status, data, err := postForm(ctx, p.client, "kavenegar", endpoint, form, nil)
	if err != nil {
		return nil, err
	}

	var parsed kavenegarResponse
	if jsonErr := json.Unmarshal(data, &parsed); jsonErr != nil {
		if status >= 300 {
			return nil, &ProviderError{Provider: "kavenegar", HTTPStatus: status, Code: strconv.Itoa(status), Message: strings.TrimSpace(string(data))}
		}
		return nil, fmt.Errorf("kavenegar: parse response: %w", jsonErr)
	}
	// The API mirrors the HTTP status in return.status; 200 is the only success.
	if status >= 300 || parsed.Return.Status != http.StatusOK {
		return nil, &ProviderError{Provider: "kavenegar", HTTPStatus: status, Code: strconv.Itoa(parsed.Return.Status), Message: parsed.Return.Message}
	}

	result := &SendResult{Status: "sent"}
	if len(parsed.Entries) > 0 {
		result.MessageID = strconv.FormatInt(parsed.Entries[0].MessageID, 10)
		if parsed.Entries[0].StatusText != "" {
			result.Status = parsed.Entries[0].StatusText
		}
	}
	return result, nil
}
