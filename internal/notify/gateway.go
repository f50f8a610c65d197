// internal/notify/gateway.go

// Package notify renders and sends the three application notification
// templates over SES, and raises operational alerts over SNS.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/outbox"
)

// SESService is the slice of the SES client the gateway uses.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SNSService is the slice of the SNS client the alerter uses.
type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Gateway implements outbox.Gateway over SES.
type Gateway struct {
	sesClient SESService
	fromEmail string
	templates map[outbox.Template]map[string]string
	logger    logger.Logger
}

func NewGateway(sesClient SESService, fromEmail string, log logger.Logger) *Gateway {
	return &Gateway{
		sesClient: sesClient,
		fromEmail: fromEmail,
		templates: loadTemplates(),
		logger:    log.WithFields(map[string]interface{}{"component": "notification-gateway"}),
	}
}

// Send renders the named template with the payload and emails it.
func (g *Gateway) Send(ctx context.Context, template outbox.Template, recipient string, payload map[string]interface{}) error {
	tmpl, exists := g.templates[template]
	if !exists {
		return apperrors.NewNotificationSendFailedError(string(template),
			fmt.Errorf("unknown template: %s", template))
	}
	if recipient == "" {
		return apperrors.NewNotificationSendFailedError(string(template),
			fmt.Errorf("recipient email missing"))
	}

	subject := renderTemplate(tmpl["subject"], payload)
	body := renderTemplate(tmpl["body"], payload)

	_, err := g.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(g.fromEmail),
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError(string(template), err)
	}

	g.logger.Debug("email sent", map[string]interface{}{
		"template":  string(template),
		"recipient": recipient,
	})
	return nil
}

// SNSAlerter publishes operational alerts to an SNS topic. Used when a
// mandatory notification exhausts its retries.
type SNSAlerter struct {
	snsClient SNSService
	topicARN  string
}

func NewSNSAlerter(snsClient SNSService, topicARN string) *SNSAlerter {
	return &SNSAlerter{snsClient: snsClient, topicARN: topicARN}
}

func (a *SNSAlerter) Alert(ctx context.Context, subject, message string) error {
	_, err := a.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}
