package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/models"
	pkglogger "github.com/BradenHooton/portfolio-gate/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// MockAttemptStore implements AttemptStore for testing
type MockAttemptStore struct {
	GetFunc    func(ctx context.Context, clientAddress string) (*models.AttemptRecord, error)
	UpsertFunc func(ctx context.Context, rec *models.AttemptRecord) error
	DeleteFunc func(ctx context.Context, clientAddress string) error
}

func (m *MockAttemptStore) Get(ctx context.Context, clientAddress string) (*models.AttemptRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, clientAddress)
	}
	return nil, models.ErrNotFound
}

func (m *MockAttemptStore) Upsert(ctx context.Context, rec *models.AttemptRecord) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, rec)
	}
	return nil
}

func (m *MockAttemptStore) Delete(ctx context.Context, clientAddress string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, clientAddress)
	}
	return nil
}

// MockRateLimiter implements RateLimiter for testing
type MockRateLimiter struct {
	CheckRateLimitFunc      func(ctx context.Context, clientAddress string) (*models.RateLimitResult, error)
	RecordFailedAttemptFunc func(ctx context.Context, clientAddress string) error
	ResetAttemptsFunc       func(ctx context.Context, clientAddress string) error

	Checks   int
	Failures int
	Resets   int
}

func (m *MockRateLimiter) CheckRateLimit(ctx context.Context, clientAddress string) (*models.RateLimitResult, error) {
	m.Checks++
	if m.CheckRateLimitFunc != nil {
		return m.CheckRateLimitFunc(ctx, clientAddress)
	}
	return &models.RateLimitResult{Allowed: true, RemainingAttempts: 4}, nil
}

func (m *MockRateLimiter) RecordFailedAttempt(ctx context.Context, clientAddress string) error {
	m.Failures++
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, clientAddress)
	}
	return nil
}

func (m *MockRateLimiter) ResetAttempts(ctx context.Context, clientAddress string) error {
	m.Resets++
	if m.ResetAttemptsFunc != nil {
		return m.ResetAttemptsFunc(ctx, clientAddress)
	}
	return nil
}

// MockSessionTokens implements SessionTokens for testing
type MockSessionTokens struct {
	IssueTokenFunc  func() (string, error)
	VerifyTokenFunc func(tokenString string) bool
}

func (m *MockSessionTokens) IssueToken() (string, error) {
	if m.IssueTokenFunc != nil {
		return m.IssueTokenFunc()
	}
	return "mock-token", nil
}

func (m *MockSessionTokens) VerifyToken(tokenString string) bool {
	if m.VerifyTokenFunc != nil {
		return m.VerifyTokenFunc(tokenString)
	}
	return false
}

// lockoutCall captures one NotifyLockout invocation
type lockoutCall struct {
	ClientAddress string
	LockedUntil   time.Time
}

// MockLockoutNotifier implements LockoutNotifier for testing
type MockLockoutNotifier struct {
	mu    sync.Mutex
	Calls []lockoutCall
	Err   error
}

func (m *MockLockoutNotifier) NotifyLockout(ctx context.Context, clientAddress string, lockedUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, lockoutCall{ClientAddress: clientAddress, LockedUntil: lockedUntil})
	return m.Err
}

// MockSESClient implements SESAPI for testing
type MockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{}, nil
}

// memoryStore is a minimal AttemptStore for service-level scenario tests
type memoryStore struct {
	mu      sync.Mutex
	records map[string]models.AttemptRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]models.AttemptRecord)}
}

func (s *memoryStore) Get(ctx context.Context, clientAddress string) (*models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[clientAddress]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &rec, nil
}

func (s *memoryStore) Upsert(ctx context.Context, rec *models.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ClientAddress] = *rec
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, clientAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, clientAddress)
	return nil
}

func (s *memoryStore) has(clientAddress string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[clientAddress]
	return ok
}

// testClock is a manually advanced time source
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger(), "test")
}
