package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// LockoutNotifier tells the site owner that an address was locked out
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, clientAddress string, lockedUntil time.Time) error
}

// SESAPI is the subset of the SES client used for alerts
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier sends lockout alerts using AWS SES
type SESLockoutNotifier struct {
	sesClient   SESAPI
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESLockoutNotifier loads the default AWS configuration for region
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress, toAddress string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, toAddress, logger), nil
}

// NewSESLockoutNotifierWithClient creates a notifier around an existing client
func NewSESLockoutNotifierWithClient(client SESAPI, fromAddress, toAddress string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		sesClient:   client,
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}
}

// NotifyLockout emails the configured owner address
func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, clientAddress string, lockedUntil time.Time) error {
	textBody := fmt.Sprintf(`Portfolio access gate lockout

The address %s exceeded the allowed number of password attempts.
Further attempts from it are refused until %s.

No action is required. The lockout expires on its own.
`, clientAddress, lockedUntil.UTC().Format(time.RFC1123))

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Portfolio gate: address locked out"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout alert: %w", err)
	}

	n.logger.Info("lockout alert sent", slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// NoopLockoutNotifier is used when no alert recipient is configured
type NoopLockoutNotifier struct{}

func (NoopLockoutNotifier) NotifyLockout(ctx context.Context, clientAddress string, lockedUntil time.Time) error {
	return nil
}
