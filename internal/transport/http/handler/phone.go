package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-phone-verify/internal/application/verification"
	"github.com/go-phone-verify/internal/domain"
)

const maxBodyBytes = 1 << 16

// PhoneHandler serves the register and verify endpoints.
type PhoneHandler struct {
	svc verification.Service
}

func NewPhoneHandler(svc verification.Service) *PhoneHandler {
	return &PhoneHandler{svc: svc}
}

func (h *PhoneHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req verification.RegisterRequest
	if err := decodeRequest(w, r, &req, func(get func(string) string) {
		req.PhoneNumber = get("phone_number")
	}); err != nil {
		httpError(w, err)
		return
	}
	token, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RegisterEnvelope{SessionToken: token})
}

func (h *PhoneHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verification.VerifyRequest
	if err := decodeRequest(w, r, &req, func(get func(string) string) {
		req.PhoneNumber = get("phone_number")
		req.SessionToken = get("session_token")
		req.SecurityCode = get("security_code")
	}); err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.Verify(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Security code is valid."})
}

// decodeRequest reads a JSON body into dst, or hands form values to fromForm
// when the client posted application/x-www-form-urlencoded or multipart data.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}, fromForm func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return fmt.Errorf("%w: invalid form body", domain.ErrValidation)
		}
		fromForm(r.PostFormValue)
		return nil
	default:
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
		}
		return nil
	}
}
