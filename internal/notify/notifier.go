// Package notify sends applicant-facing notifications: booking
// confirmations over email/SMS and the offer letter email. All sends are
// best-effort from the coordinator's point of view except the offer letter,
// whose failure must surface so the sent flag is not recorded.
package notify

import (
	"context"
	"fmt"

	"admissions-coordinator/internal/common/config"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Notifier is the outbound notification seam the coordinator depends on.
type Notifier interface {
	// SendBookingConfirmation is best-effort; the caller logs and continues
	// on error.
	SendBookingConfirmation(ctx context.Context, applicant *models.Applicant, sched *models.Schedule) error
	// SendOfferLetter must succeed before the offer is marked sent.
	SendOfferLetter(ctx context.Context, applicant *models.Applicant) error
}

// sesAPI and snsAPI narrow the AWS clients to what the notifier calls.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AWSNotifier sends email over SES and SMS over SNS.
type AWSNotifier struct {
	ses    sesAPI
	sns    snsAPI
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewAWSNotifier(sesClient sesAPI, snsClient snsAPI, cfg config.NotificationConfig, log logger.Logger) *AWSNotifier {
	return &AWSNotifier{
		ses:    sesClient,
		sns:    snsClient,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

func (n *AWSNotifier) SendBookingConfirmation(ctx context.Context, applicant *models.Applicant, sched *models.Schedule) error {
	subject := fmt.Sprintf("Interview scheduled: %s round", sched.RoundType)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s interview has been scheduled.\nMeeting link: %s\n\nGood luck!",
		applicant.Name, sched.RoundType, sched.MeetingLink)

	if n.cfg.Email.Enabled && applicant.Email != "" {
		if err := n.sendEmail(ctx, applicant.Email, subject, body); err != nil {
			return fmt.Errorf("booking confirmation email failed: %w", err)
		}
	}

	if n.cfg.SMS.Enabled && applicant.Phone != "" {
		sms := fmt.Sprintf("Your %s interview is booked. Check your email for the meeting link.", sched.RoundType)
		if err := n.sendSMS(ctx, applicant.Phone, sms); err != nil {
			return fmt.Errorf("booking confirmation sms failed: %w", err)
		}
	}

	return nil
}

func (n *AWSNotifier) SendOfferLetter(ctx context.Context, applicant *models.Applicant) error {
	if !n.cfg.Email.Enabled {
		n.logger.Warn("offer letter send skipped, email disabled", map[string]interface{}{
			"applicantId": applicant.ID,
		})
		return nil
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nCongratulations! Please find your offer letter attached to your applicant portal.\n",
		applicant.Name)
	if err := n.sendEmail(ctx, applicant.Email, "Your offer letter", body); err != nil {
		return fmt.Errorf("offer letter email failed: %w", err)
	}

	n.logger.Info("offer letter sent", map[string]interface{}{"applicantId": applicant.ID})
	return nil
}

func (n *AWSNotifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}

func (n *AWSNotifier) sendSMS(ctx context.Context, phone, message string) error {
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.cfg.SMS.SenderID),
			},
		},
	})
	return err
}

// NoOpNotifier discards notifications; used in tests and local dev.
type NoOpNotifier struct{}

func (NoOpNotifier) SendBookingConfirmation(context.Context, *models.Applicant, *models.Schedule) error {
	return nil
}

func (NoOpNotifier) SendOfferLetter(context.Context, *models.Applicant) error {
	return nil
}
