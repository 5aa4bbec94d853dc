package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// AlertNotifier sends security alert notifications to account owners.
// All notifications are fire-and-forget; failures are logged, never surfaced.
type AlertNotifier interface {
	NotifyNewDevice(ctx context.Context, email, deviceName, ipAddress string)
	NotifyAccountLocked(ctx context.Context, email string, lockoutMinutes int)
}

// SESAlertService sends security alerts using AWS SES
type SESAlertService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewSESAlertService creates a new AWS SES alert service
func NewSESAlertService(region, fromAddress string, logger *slog.Logger) (*SESAlertService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESAlertService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// NotifyNewDevice alerts the account owner that an unrecognized device
// signed in.
func (s *SESAlertService) NotifyNewDevice(ctx context.Context, email, deviceName, ipAddress string) {
	subject := "New device signed in to your account"
	body := fmt.Sprintf(
		"A device we haven't seen before just signed in to your account.\n\n"+
			"Device: %s\nIP address: %s\n\n"+
			"If this was you, no action is needed. If not, change your password "+
			"and review your trusted devices right away.",
		deviceName, ipAddress)

	s.send(ctx, email, subject, body)
}

// NotifyAccountLocked alerts the account owner that repeated failures
// locked their account.
func (s *SESAlertService) NotifyAccountLocked(ctx context.Context, email string, lockoutMinutes int) {
	subject := "Your account has been temporarily locked"
	body := fmt.Sprintf(
		"Too many failed sign-in attempts were made against your account, so "+
			"we locked it for %d minutes.\n\n"+
			"If these attempts were not yours, change your password once the "+
			"lock expires.",
		lockoutMinutes)

	s.send(ctx, email, subject, body)
}

func (s *SESAlertService) send(ctx context.Context, email, subject, body string) {
	_, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		s.logger.Error("failed to send security alert email", slog.Any("error", err))
		return
	}

	s.logger.Info("security alert email sent", slog.String("subject", subject))
}

// NoopAlertService is used when email alerts are disabled.
type NoopAlertService struct{}

func (NoopAlertService) NotifyNewDevice(context.Context, string, string, string) {}

func (NoopAlertService) NotifyAccountLocked(context.Context, string, int) {}
