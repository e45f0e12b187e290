package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// AlertService delivers operator alerts (ledger integrity faults) via
// Amazon SES. When no sender is configured the service is disabled and
// alerts are only logged.
type AlertService struct {
	client   *sesv2.Client
	from     string
	fromName string
	to       string
	enabled  bool
}

// NewAlertService creates an alert service. An empty fromEmail yields
// a disabled, log-only service.
func NewAlertService(awsRegion, fromEmail, fromName, toEmail string) (*AlertService, error) {
	if fromEmail == "" || toEmail == "" {
		log.Println("Alert service disabled: SES_FROM_EMAIL / ALERT_EMAIL not configured")
		return &AlertService{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AlertService{
		client:   sesv2.NewFromConfig(cfg),
		from:     fromEmail,
		fromName: fromName,
		to:       toEmail,
		enabled:  true,
	}, nil
}

// IntegrityFault reports a ledger verification failure to the operator
// channel. The chain stays flagged until an operator re-verifies it.
func (s *AlertService) IntegrityFault(ctx context.Context, familyID string, brokenAtSeq int64, reason string) {
	subject := fmt.Sprintf("Ledger integrity fault: family %s", familyID)
	body := fmt.Sprintf(
		"Ledger chain verification failed for family %s.\n\nFirst divergence at seq %d: %s\n\nThe chain is marked suspect until re-verified.\n",
		familyID, brokenAtSeq, reason,
	)

	log.Printf("ALERT: %s (seq %d: %s)", subject, brokenAtSeq, reason)
	if !s.enabled {
		return
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.from)),
		Destination: &types.Destination{
			ToAddresses: []string{s.to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		log.Printf("Warning: failed to send integrity alert for family %s: %v", familyID, err)
	}
}
