package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/portfolio-gate/internal/services"
	pkghttp "github.com/BradenHooton/portfolio-gate/pkg/http"
)

// maxRequestBodyBytes bounds the gate request body
const maxRequestBodyBytes = 8 << 10

const (
	msgAuthFailed  = "Authentication failed"
	msgBadRequest  = "Invalid request"
	msgRateLimited = "Too many failed attempts. Please try again later."
)

// GateServiceInterface defines the gate operations used by the handler
type GateServiceInterface interface {
	Authenticate(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error)
}

// GateHandler serves the portfolio password gate
type GateHandler struct {
	service  GateServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewGateHandler creates a new GateHandler
func NewGateHandler(service GateServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *GateHandler {
	return &GateHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// ValidatePasswordRequest is either a password submission or a token re-entry check.
// A non-empty token selects the re-entry path and the password is ignored.
type ValidatePasswordRequest struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

// gateRequest defers field decoding until the path is known
type gateRequest struct {
	Password json.RawMessage `json:"password"`
	Token    json.RawMessage `json:"token"`
}

// passwordSubmission is validated only on the password path
type passwordSubmission struct {
	Password string `validate:"omitempty,max=100"`
}

// tokenSubmission is validated only on the re-entry path
type tokenSubmission struct {
	Token string `validate:"required,max=4096"`
}

// Response DTOs

// ValidatePasswordResponse is the 200 body for both gate paths
type ValidatePasswordResponse struct {
	IsValid           bool   `json:"isValid"`
	Token             string `json:"token,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
}

// ValidatePassword handles password submissions and token re-entry checks
// @Summary Portfolio gate
// @Accept json
// @Param request body ValidatePasswordRequest true "Password or token"
// @Produce json
// @Success 200 {object} ValidatePasswordResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /validate-password [post]
func (h *GateHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req gateRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Well-formed JSON that is not an object is bad input, not a bad body
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			pkghttp.WriteUnauthorized(w, msgAuthFailed)
			return
		}
		pkghttp.WriteBadRequest(w, msgBadRequest)
		return
	}

	if present(req.Token) && !isEmptyString(req.Token) {
		h.verifyToken(w, r, req.Token)
		return
	}

	var submission passwordSubmission
	if present(req.Password) {
		if err := json.Unmarshal(req.Password, &submission.Password); err != nil {
			h.logger.Debug("gate request rejected", slog.String("reason", "password is not a string"))
			pkghttp.WriteUnauthorized(w, msgAuthFailed)
			return
		}
	}

	if err := ValidateRequest(submission); err != nil {
		h.logger.Debug("gate request rejected", slog.String("reason", err.Error()))
		pkghttp.WriteUnauthorized(w, msgAuthFailed)
		return
	}

	h.authenticate(w, r, services.AuthRequest{
		Password:      submission.Password,
		ClientAddress: pkghttp.ExtractClientAddress(r, h.ipConfig),
	})
}

// verifyToken answers the re-entry path. A token that cannot be a session
// token is reported as invalid, never as an error.
func (h *GateHandler) verifyToken(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var token tokenSubmission
	if err := json.Unmarshal(raw, &token.Token); err != nil {
		h.logger.Debug("token rejected", slog.String("reason", "token is not a string"))
		pkghttp.WriteJSON(w, http.StatusOK, ValidatePasswordResponse{IsValid: false})
		return
	}
	if err := ValidateRequest(token); err != nil {
		h.logger.Debug("token rejected", slog.String("reason", err.Error()))
		pkghttp.WriteJSON(w, http.StatusOK, ValidatePasswordResponse{IsValid: false})
		return
	}

	h.authenticate(w, r, services.AuthRequest{
		Token:         token.Token,
		ClientAddress: pkghttp.ExtractClientAddress(r, h.ipConfig),
	})
}

func (h *GateHandler) authenticate(w http.ResponseWriter, r *http.Request, req services.AuthRequest) {
	result, err := h.service.Authenticate(r.Context(), req)
	if err != nil {
		if lockedUntil, locked := services.IsLockedOut(err); locked {
			pkghttp.WriteTooManyRequests(w, msgRateLimited, lockedUntil)
			return
		}
		// Validation, configuration and store failures look the same to the caller
		pkghttp.WriteUnauthorized(w, msgAuthFailed)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ValidatePasswordResponse{
		IsValid:           result.IsValid,
		Token:             result.Token,
		RemainingAttempts: result.RemainingAttempts,
	})
}

// present reports whether a field was sent with a non-null value
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// isEmptyString reports whether raw is the JSON string ""
func isEmptyString(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte(`""`))
}
