package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/models"
)

// AttemptStore persists one AttemptRecord per client address
type AttemptStore interface {
	Get(ctx context.Context, clientAddress string) (*models.AttemptRecord, error)
	Upsert(ctx context.Context, rec *models.AttemptRecord) error
	Delete(ctx context.Context, clientAddress string) error
}

// RateLimitConfig holds configuration for rate limiting behavior
type RateLimitConfig struct {
	MaxAttempts     int
	AttemptWindow   time.Duration
	LockoutDuration time.Duration
}

// DefaultRateLimitConfig allows 5 failures per 15 minute window with a 15 minute lockout
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		AttemptWindow:   15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	}
}

// RateLimitService implements fixed-window attempt limiting keyed by client address.
//
// The check and the later failure record are separate store round trips, so
// concurrent failures from one address can each pass the check before either
// is recorded. The undercount is bounded by the number of concurrent requests.
type RateLimitService struct {
	repo   AttemptStore
	config RateLimitConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(repo AttemptStore, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source
func (s *RateLimitService) SetClock(now func() time.Time) {
	s.now = now
}

// CheckRateLimit decides whether an attempt from clientAddress may proceed.
// Unknown and lapsed addresses get a fresh record immediately so that a
// concurrent request from the same address finds it.
func (s *RateLimitService) CheckRateLimit(ctx context.Context, clientAddress string) (*models.RateLimitResult, error) {
	now := s.now()

	rec, err := s.repo.Get(ctx, clientAddress)
	if errors.Is(err, models.ErrNotFound) {
		if err := s.startWindow(ctx, clientAddress, now); err != nil {
			return nil, err
		}
		return s.allowed(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt record: %w", err)
	}

	if rec.IsLocked(now) {
		return &models.RateLimitResult{Allowed: false, LockedUntil: rec.LockedUntil}, nil
	}

	// An expired lock or a lapsed window both start over
	if rec.LockedUntil != nil || now.Sub(rec.LastAttemptAt) > s.config.AttemptWindow {
		if err := s.startWindow(ctx, clientAddress, now); err != nil {
			return nil, err
		}
		return s.allowed(0), nil
	}

	if rec.AttemptCount >= s.config.MaxAttempts {
		lockedUntil := now.Add(s.config.LockoutDuration)
		rec.LockedUntil = &lockedUntil
		if err := s.repo.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to store lockout: %w", err)
		}

		s.logger.Warn("client address locked out",
			slog.Int("failed_attempts", rec.AttemptCount),
			slog.Time("locked_until", lockedUntil),
			slog.Duration("lockout_duration", s.config.LockoutDuration))

		return &models.RateLimitResult{Allowed: false, LockedUntil: &lockedUntil, LockTriggered: true}, nil
	}

	return s.allowed(rec.AttemptCount), nil
}

// RecordFailedAttempt counts a failure against an existing record.
// A record that vanished in the meantime (for example a concurrent reset) is left alone.
func (s *RateLimitService) RecordFailedAttempt(ctx context.Context, clientAddress string) error {
	rec, err := s.repo.Get(ctx, clientAddress)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Debug("no attempt record to update, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load attempt record: %w", err)
	}

	rec.AttemptCount++
	rec.LastAttemptAt = s.now()

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to record failed attempt: %w", err)
	}
	return nil
}

// ResetAttempts forgets every attempt from clientAddress. Safe to call repeatedly.
func (s *RateLimitService) ResetAttempts(ctx context.Context, clientAddress string) error {
	if err := s.repo.Delete(ctx, clientAddress); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}

func (s *RateLimitService) startWindow(ctx context.Context, clientAddress string, now time.Time) error {
	rec := &models.AttemptRecord{
		ClientAddress: clientAddress,
		AttemptCount:  0,
		LastAttemptAt: now,
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to start attempt window: %w", err)
	}
	return nil
}

// allowed builds an allow result; remaining excludes the attempt in flight
func (s *RateLimitService) allowed(failures int) *models.RateLimitResult {
	remaining := s.config.MaxAttempts - failures - 1
	if remaining < 0 {
		remaining = 0
	}
	return &models.RateLimitResult{Allowed: true, RemainingAttempts: remaining}
}
