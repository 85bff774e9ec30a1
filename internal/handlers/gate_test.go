package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/auth"
	"github.com/BradenHooton/portfolio-gate/internal/models"
	"github.com/BradenHooton/portfolio-gate/internal/repositories"
	"github.com/BradenHooton/portfolio-gate/internal/services"
	pkghttp "github.com/BradenHooton/portfolio-gate/pkg/http"
	pkglogger "github.com/BradenHooton/portfolio-gate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateHandler(svc GateServiceInterface) *GateHandler {
	return NewGateHandler(svc, &pkghttp.IPConfig{}, discardLogger())
}

func TestGateHandler_PasswordSuccess(t *testing.T) {
	svc := &MockGateService{
		AuthenticateFunc: func(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error) {
			return &services.AuthResult{IsValid: true, Token: "signed-token"}, nil
		},
	}
	h := newTestGateHandler(svc)

	req := NewTestRequest(t, http.MethodPost, "/validate-password", map[string]string{"password": "T@lentPreview2025"})
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	w := httptest.NewRecorder()
	h.ValidatePassword(w, req)

	var resp map[string]interface{}
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, true, resp["isValid"])
	assert.Equal(t, "signed-token", resp["token"])
	assert.NotContains(t, resp, "remainingAttempts")

	require.NotNil(t, svc.LastRequest)
	assert.Equal(t, "T@lentPreview2025", svc.LastRequest.Password)
	assert.Equal(t, "1.2.3.4", svc.LastRequest.ClientAddress)
}

func TestGateHandler_PasswordFailureReportsRemaining(t *testing.T) {
	remaining := 3
	svc := &MockGateService{
		AuthenticateFunc: func(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error) {
			return &services.AuthResult{IsValid: false, RemainingAttempts: &remaining}, nil
		},
	}
	h := newTestGateHandler(svc)

	w := httptest.NewRecorder()
	h.ValidatePassword(w, NewTestRequest(t, http.MethodPost, "/validate-password", map[string]string{"password": "wrong"}))

	var resp map[string]interface{}
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, false, resp["isValid"])
	assert.Equal(t, float64(3), resp["remainingAttempts"])
	assert.NotContains(t, resp, "token")
}

func TestGateHandler_TokenPathReturnsOnlyIsValid(t *testing.T) {
	svc := &MockGateService{
		AuthenticateFunc: func(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error) {
			return &services.AuthResult{IsValid: req.Token == "good"}, nil
		},
	}
	h := newTestGateHandler(svc)

	w := httptest.NewRecorder()
	h.ValidatePassword(w, NewTestRequest(t, http.MethodPost, "/validate-password", map[string]string{"token": "good"}))

	var resp map[string]interface{}
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, map[string]interface{}{"isValid": true}, resp)
}

func TestGateHandler_LockedOut(t *testing.T) {
	lockedUntil := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)
	svc := &MockGateService{
		AuthenticateFunc: func(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error) {
			return nil, &services.LockedOutError{LockedUntil: &lockedUntil}
		},
	}
	h := newTestGateHandler(svc)

	w := httptest.NewRecorder()
	h.ValidatePassword(w, NewTestRequest(t, http.MethodPost, "/validate-password", map[string]string{"password": "wrong"}))

	AssertErrorResponse(t, w, http.StatusTooManyRequests, msgRateLimited)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.LockedUntil)
	assert.True(t, lockedUntil.Equal(*resp.LockedUntil))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestGateHandler_ErrorsAreGeneric(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"invalid input", models.ErrInvalidInput},
		{"not configured", models.ErrNotConfigured},
		{"store failure", errors.New("dial tcp 10.0.0.5:5432: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockGateService{
				AuthenticateFunc: func(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error) {
					return nil, tt.err
				},
			}
			h := newTestGateHandler(svc)

			w := httptest.NewRecorder()
			h.ValidatePassword(w, NewTestRequest(t, http.MethodPost, "/validate-password", map[string]string{"password": "x"}))

			AssertErrorResponse(t, w, http.StatusUnauthorized, msgAuthFailed)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestGateHandler_RejectsBeforeService(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{"malformed json", `{"password": `, http.StatusBadRequest, msgBadRequest},
		{"not an object", `"hello"`, http.StatusUnauthorized, msgAuthFailed},
		{"numeric password", `{"password": 12345}`, http.StatusUnauthorized, msgAuthFailed},
		{"oversized password", `{"password": "` + strings.Repeat("a", 150) + `"}`, http.StatusUnauthorized, msgAuthFailed},
		{"body too large", `{"password": "` + strings.Repeat("a", 10<<10) + `"}`, http.StatusBadRequest, msgBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockGateService{}
			h := newTestGateHandler(svc)

			w := httptest.NewRecorder()
			h.ValidatePassword(w, NewRawTestRequest(http.MethodPost, "/validate-password", tt.body))

			AssertErrorResponse(t, w, tt.expectedStatus, tt.expectedError)
			assert.Zero(t, svc.Calls)
		})
	}
}

func TestGateHandler_UnusableTokenIsInvalidNotAnError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"oversized token", `{"token": "` + strings.Repeat("t", 5000) + `"}`},
		{"numeric token", `{"token": 123}`},
		{"object token", `{"token": {"sub": "x"}}`},
		{"boolean token", `{"token": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockGateService{}
			h := newTestGateHandler(svc)

			w := httptest.NewRecorder()
			h.ValidatePassword(w, NewRawTestRequest(http.MethodPost, "/validate-password", tt.body))

			var resp map[string]interface{}
			AssertJSONResponse(t, w, http.StatusOK, &resp)
			assert.Equal(t, map[string]interface{}{"isValid": false}, resp)
			assert.Zero(t, svc.Calls)
		})
	}
}

func TestGateHandler_TokenWinsOverInvalidPassword(t *testing.T) {
	svc := &MockGateService{
		AuthenticateFunc: func(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error) {
			return &services.AuthResult{IsValid: false}, nil
		},
	}
	h := newTestGateHandler(svc)

	body := `{"token": "garbage", "password": "` + strings.Repeat("x", 150) + `"}`
	w := httptest.NewRecorder()
	h.ValidatePassword(w, NewRawTestRequest(http.MethodPost, "/validate-password", body))

	var resp map[string]interface{}
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, map[string]interface{}{"isValid": false}, resp)

	require.NotNil(t, svc.LastRequest)
	assert.Equal(t, "garbage", svc.LastRequest.Token)
	assert.Empty(t, svc.LastRequest.Password)
}

func TestGateHandler_EmptyOrNullTokenUsesPasswordPath(t *testing.T) {
	for _, body := range []string{
		`{"token": "", "password": "wrong"}`,
		`{"token": null, "password": "wrong"}`,
	} {
		svc := &MockGateService{
			AuthenticateFunc: func(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error) {
				return &services.AuthResult{IsValid: false}, nil
			},
		}
		h := newTestGateHandler(svc)

		w := httptest.NewRecorder()
		h.ValidatePassword(w, NewRawTestRequest(http.MethodPost, "/validate-password", body))

		require.Equal(t, http.StatusOK, w.Code, body)
		require.NotNil(t, svc.LastRequest, body)
		assert.Equal(t, "wrong", svc.LastRequest.Password)
		assert.Empty(t, svc.LastRequest.Token)
	}
}

func TestGateHandler_MissingHeadersUseUnknownBucket(t *testing.T) {
	svc := &MockGateService{
		AuthenticateFunc: func(ctx context.Context, req services.AuthRequest) (*services.AuthResult, error) {
			return &services.AuthResult{IsValid: false}, nil
		},
	}
	h := newTestGateHandler(svc)

	w := httptest.NewRecorder()
	h.ValidatePassword(w, NewTestRequest(t, http.MethodPost, "/validate-password", map[string]string{"password": "wrong"}))

	require.NotNil(t, svc.LastRequest)
	assert.Equal(t, pkghttp.UnknownClientAddress, svc.LastRequest.ClientAddress)
}

// End to end through the real gate service and memory store
func TestGateHandler_LockoutScenario(t *testing.T) {
	tokens, err := auth.NewSessionTokenManager("test-signing-secret-32-characters!", 24*time.Hour)
	require.NoError(t, err)

	limiter := services.NewRateLimitService(repositories.NewMemoryAttemptRecordRepository(),
		services.DefaultRateLimitConfig(), discardLogger())
	gate := services.NewGateService(limiter, auth.NewCredentialVerifier("T@lentPreview2025"), tokens,
		nil, nil, discardLogger(), pkglogger.NewAuditLogger(discardLogger(), "test"))
	h := newTestGateHandler(gate)

	post := func(addr string, body map[string]string) *httptest.ResponseRecorder {
		req := NewTestRequest(t, http.MethodPost, "/validate-password", body)
		req.Header.Set("X-Real-IP", addr)
		w := httptest.NewRecorder()
		h.ValidatePassword(w, req)
		return w
	}

	for i := 0; i < 5; i++ {
		w := post("1.2.3.4", map[string]string{"password": "wrong"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := post("1.2.3.4", map[string]string{"password": "wrong"})
	AssertErrorResponse(t, w, http.StatusTooManyRequests, msgRateLimited)
	assert.Contains(t, w.Body.String(), "lockedUntil")

	w = post("5.6.7.8", map[string]string{"password": "T@lentPreview2025"})
	var resp ValidatePasswordResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.True(t, resp.IsValid)
	require.NotEmpty(t, resp.Token)

	w = post("5.6.7.8", map[string]string{"token": resp.Token})
	var verified ValidatePasswordResponse
	AssertJSONResponse(t, w, http.StatusOK, &verified)
	assert.True(t, verified.IsValid)

	// Unusable tokens from the locked address still get a plain isValid:false
	for _, body := range []string{
		`{"token": "` + strings.Repeat("a", 5000) + `"}`,
		`{"token": 123}`,
		`{"token": "garbage", "password": "` + strings.Repeat("x", 150) + `"}`,
	} {
		req := NewRawTestRequest(http.MethodPost, "/validate-password", body)
		req.Header.Set("X-Real-IP", "1.2.3.4")
		w := httptest.NewRecorder()
		h.ValidatePassword(w, req)

		var invalid map[string]interface{}
		AssertJSONResponse(t, w, http.StatusOK, &invalid)
		assert.Equal(t, map[string]interface{}{"isValid": false}, invalid)
	}
}
