package sms_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-phone-verify/internal/infrastructure/sms"
)

func TestTwilioSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/ACtest/Messages.json", r.URL.Path)

		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("ACtest:token"))
		assert.Equal(t, expected, r.Header.Get("Authorization"))

		assert.Equal(t, "+13478379634", r.FormValue("To"))
		assert.Equal(t, "+15550000000", r.FormValue("From"))
		assert.Equal(t, "hello", r.FormValue("Body"))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	p := sms.NewTwilioSender("ACtest", "token", "+15550000000", srv.URL)
	result, err := p.Send(t.Context(), "+13478379634", "hello")
	require.NoError(t, err)
	assert.Equal(t, "SM123", result.MessageID)
	assert.Equal(t, "queued", result.Status)
}

func TestTwilioSendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"invalid To"}`))
	}))
	defer srv.Close()

	p := sms.NewTwilioSender("ACtest", "token", "+15550000000", srv.URL)
	_, err := p.Send(t.Context(), "+13478379634", "hello")
	require.Error(t, err)
	assert.Equal(t, "twilio: error 21211: invalid To", err.Error())

	var pe *sms.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "21211", pe.Code)
	assert.Equal(t, http.StatusBadRequest, pe.HTTPStatus)
	assert.True(t, pe.Rejected())
}

func TestTwilioSendCreatedButFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM9","status":"failed","error_code":30006,"error_message":"Landline or unreachable carrier"}`))
	}))
	defer srv.Close()

	p := sms.NewTwilioSender("ACtest", "token", "+15550000000", srv.URL)
	_, err := p.Send(t.Context(), "+13478379634", "hello")

	var pe *sms.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "30006", pe.Code)
	assert.Equal(t, "Landline or unreachable carrier", pe.Message)
}

func TestTwilioSendHTTPErrorNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>Bad Gateway</html>`))
	}))
	defer srv.Close()

	p := sms.NewTwilioSender("ACtest", "token", "+15550000000", srv.URL)
	_, err := p.Send(t.Context(), "+13478379634", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twilio: error 502")

	var pe *sms.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Rejected())
}

func TestTwilioSendNetworkError(t *testing.T) {
	p := sms.NewTwilioSender("ACtest", "token", "+15550000000", "http://127.0.0.1:1")
	_, err := p.Send(t.Context(), "+13478379634", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twilio: send request:")
}

func TestTwilioImplementsInterface(t *testing.T) {
	var _ sms.Sender = (*sms.TwilioSender)(nil)
}
