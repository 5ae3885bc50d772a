package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-phone-verify/internal/application/verification"
	"github.com/go-phone-verify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) Register(ctx context.Context, req verification.RegisterRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockVerificationSvc) Verify(ctx context.Context, req verification.VerifyRequest) error {
	return m.Called(ctx, req).Error(0)
}

// --- helpers ---

func postJSON(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) MessageEnvelope {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// --- register ---

func TestRegister_ReturnsSessionToken(t *testing.T) {
	svc := new(mockVerificationSvc)
	svc.On("Register", mock.Anything, verification.RegisterRequest{PhoneNumber: "+13478379634"}).
		Return("phone-auth-session-token", nil)
	h := NewPhoneHandler(svc)

	rec := postJSON(t, h.Register, map[string]string{"phone_number": "+13478379634"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"session_token":"phone-auth-session-token"}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestRegister_FormEncoded(t *testing.T) {
	svc := new(mockVerificationSvc)
	svc.On("Register", mock.Anything, verification.RegisterRequest{PhoneNumber: "+13478379634"}).
		Return("tok", nil)
	h := NewPhoneHandler(svc)

	form := url.Values{"phone_number": {"+13478379634"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestRegister_MalformedJSON(t *testing.T) {
	svc := new(mockVerificationSvc)
	h := NewPhoneHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "invalid input: invalid request body", env.Error)
	assert.Equal(t, http.StatusBadRequest, env.ErrorCode)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", fmt.Errorf("%w: phone number is not valid", domain.ErrValidation), http.StatusBadRequest, "invalid input: phone number is not valid"},
		{"delivery", fmt.Errorf("twilio: %w: twilio: error 21211: invalid To", domain.ErrDelivery), http.StatusUnprocessableEntity, domain.ErrDelivery.Error()},
		{"internal", errors.New("store verification session: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockVerificationSvc)
			svc.On("Register", mock.Anything, mock.Anything).Return("", tt.err)
			h := NewPhoneHandler(svc)

			rec := postJSON(t, h.Register, map[string]string{"phone_number": "+13478379634"})

			assert.Equal(t, tt.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Equal(t, tt.message, env.Error)
			assert.Equal(t, tt.status, env.ErrorCode)
		})
	}
}

// --- verify ---

func TestVerify_Valid(t *testing.T) {
	svc := new(mockVerificationSvc)
	want := verification.VerifyRequest{
		PhoneNumber:  "+13478379634",
		SessionToken: "phone-auth-session-token",
		SecurityCode: "123456",
	}
	svc.On("Verify", mock.Anything, want).Return(nil)
	h := NewPhoneHandler(svc)

	rec := postJSON(t, h.Verify, map[string]string{
		"phone_number":  "+13478379634",
		"session_token": "phone-auth-session-token",
		"security_code": "123456",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Security code is valid."}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestVerify_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"mismatch", domain.ErrMismatch, http.StatusBadRequest},
		{"not found", fmt.Errorf("verification session expired: %w", domain.ErrNotFound), http.StatusNotFound},
		{"validation", fmt.Errorf("%w: session_token is required", domain.ErrValidation), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockVerificationSvc)
			svc.On("Verify", mock.Anything, mock.Anything).Return(tt.err)
			h := NewPhoneHandler(svc)

			rec := postJSON(t, h.Verify, map[string]string{"phone_number": "+13478379634"})

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.status, decodeEnvelope(t, rec).ErrorCode)
		})
	}
}

func TestVerify_NotFoundHidesDetail(t *testing.T) {
	svc := new(mockVerificationSvc)
	svc.On("Verify", mock.Anything, mock.Anything).
		Return(fmt.Errorf("verification session already consumed: %w", domain.ErrNotFound))
	h := NewPhoneHandler(svc)

	rec := postJSON(t, h.Verify, map[string]string{"phone_number": "+13478379634"})

	assert.Equal(t, domain.ErrNotFound.Error(), decodeEnvelope(t, rec).Error)
}

// --- health ---

func TestHealth_UnknownAction(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().Ping(rec, httptest.NewRequest(http.MethodGet, "/health-check/nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
