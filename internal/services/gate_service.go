package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/auth"
	"github.com/BradenHooton/portfolio-gate/internal/models"
	pkgauth "github.com/BradenHooton/portfolio-gate/pkg/auth"
	pkglogger "github.com/BradenHooton/portfolio-gate/pkg/logger"
)

const notifyTimeout = 5 * time.Second

// RateLimiter tracks failed attempts per client address
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, clientAddress string) (*models.RateLimitResult, error)
	RecordFailedAttempt(ctx context.Context, clientAddress string) error
	ResetAttempts(ctx context.Context, clientAddress string) error
}

// SessionTokens issues and checks session tokens
type SessionTokens interface {
	IssueToken() (string, error)
	VerifyToken(tokenString string) bool
}

// AuthRequest is one call to the gate. A non-empty Token selects the re-entry path.
type AuthRequest struct {
	Password      string
	Token         string
	ClientAddress string
}

// AuthResult is the outcome of a gate decision that was not an error
type AuthResult struct {
	IsValid           bool
	Token             string
	RemainingAttempts *int
}

// LockedOutError is returned while a client address is locked out
type LockedOutError struct {
	LockedUntil *time.Time
}

func (e *LockedOutError) Error() string {
	if e.LockedUntil == nil {
		return models.ErrRateLimitExceeded.Error()
	}
	return fmt.Sprintf("%s until %s", models.ErrRateLimitExceeded, e.LockedUntil.UTC().Format(time.RFC3339))
}

func (e *LockedOutError) Unwrap() error {
	return models.ErrRateLimitExceeded
}

// GateService decides whether a visitor may see the gated portfolio content
type GateService struct {
	limiter     RateLimiter
	verifier    *auth.CredentialVerifier
	tokens      SessionTokens
	timingDelay *auth.TimingDelay
	notifier    LockoutNotifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewGateService creates a new GateService. timingDelay and notifier may be nil.
func NewGateService(
	limiter RateLimiter,
	verifier *auth.CredentialVerifier,
	tokens SessionTokens,
	timingDelay *auth.TimingDelay,
	notifier LockoutNotifier,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *GateService {
	if notifier == nil {
		notifier = NoopLockoutNotifier{}
	}
	return &GateService{
		limiter:     limiter,
		verifier:    verifier,
		tokens:      tokens,
		timingDelay: timingDelay,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Authenticate handles a password submission or, when a token is present, a re-entry check.
//
// Errors: *LockedOutError (wraps models.ErrRateLimitExceeded) while locked out,
// models.ErrInvalidInput for a malformed password, models.ErrNotConfigured when no
// reference secret is set, and wrapped store or signing errors. Callers must report
// every error other than a lockout as a generic authentication failure.
func (s *GateService) Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	if req.Token != "" {
		return &AuthResult{IsValid: s.Verify(ctx, req.Token)}, nil
	}

	start := time.Now()

	// Shape is checked before the store is touched
	if req.Password == "" || !pkgauth.WithinLength(req.Password) {
		s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventGatePassword,
			ClientAddress: req.ClientAddress,
			FailureReason: "invalid_input",
		})
		return nil, models.ErrInvalidInput
	}

	limit, err := s.limiter.CheckRateLimit(ctx, req.ClientAddress)
	if err != nil {
		s.logger.Error("rate limit check failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if !limit.Allowed {
		if limit.LockTriggered && limit.LockedUntil != nil {
			s.onLockout(ctx, req.ClientAddress, *limit.LockedUntil)
		}
		s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventGatePassword,
			ClientAddress: req.ClientAddress,
			FailureReason: "locked_out",
		})
		return nil, &LockedOutError{LockedUntil: limit.LockedUntil}
	}

	if !s.verifier.Configured() {
		s.logger.Error("portfolio password is not configured, refusing all attempts")
		return nil, models.ErrNotConfigured
	}

	if !s.verifier.Verify(req.Password) {
		if err := s.limiter.RecordFailedAttempt(ctx, req.ClientAddress); err != nil {
			s.logger.Error("failed to record failed attempt", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}

		s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventGatePassword,
			ClientAddress: req.ClientAddress,
			FailureReason: "invalid_password",
		})

		if s.timingDelay != nil {
			s.timingDelay.WaitFrom(ctx, start)
		}

		remaining := limit.RemainingAttempts
		return &AuthResult{IsValid: false, RemainingAttempts: &remaining}, nil
	}

	if err := s.limiter.ResetAttempts(ctx, req.ClientAddress); err != nil {
		s.logger.Error("failed to reset attempts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to reset attempts: %w", err)
	}

	token, err := s.tokens.IssueToken()
	if err != nil {
		s.logger.Error("failed to issue session token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventGatePassword,
		ClientAddress: req.ClientAddress,
		Success:       true,
	})

	return &AuthResult{IsValid: true, Token: token}, nil
}

// Verify reports whether token is a valid, unexpired session token. No rate limiting applies.
func (s *GateService) Verify(ctx context.Context, token string) bool {
	valid := s.tokens.VerifyToken(token)
	if !valid {
		s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventGateToken,
			FailureReason: "invalid_token",
		})
	}
	return valid
}

// onLockout records and announces an address entering lockout. Alert failures are only logged.
func (s *GateService) onLockout(ctx context.Context, clientAddress string, lockedUntil time.Time) {
	s.auditLogger.LogLockout(ctx, clientAddress, lockedUntil)

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyLockout(notifyCtx, clientAddress, lockedUntil); err != nil {
		s.logger.Warn("lockout alert failed", slog.String("error", err.Error()))
	}
}

// IsLockedOut reports whether err means the caller is locked out, returning the unlock time
func IsLockedOut(err error) (*time.Time, bool) {
	var lockedErr *LockedOutError
	if errors.As(err, &lockedErr) {
		return lockedErr.LockedUntil, true
	}
	return nil, errors.Is(err, models.ErrRateLimitExceeded)
}
