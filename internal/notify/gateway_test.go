// internal/notify/gateway_test.go
package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonaws "cites-permits/internal/common/aws"
	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/models"
	"cites-permits/internal/outbox"
)

// The server wires the shared AWS client wrappers into the gateway
// and the alerter.
var (
	_ SESService = (*commonaws.SESClient)(nil)
	_ SNSService = (*commonaws.SNSClient)(nil)
)

type mockSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (m *mockSES) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

type mockSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (m *mockSNS) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{}, nil
}

func testApplication() *models.Application {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return &models.Application{
		ID:         "CITES-LX2M4K-A7B2C",
		PermitType: models.PermitExport,
		ApplicantInfo: models.ApplicantInfo{
			FirstName: "Maria",
			LastName:  "Santos",
			Email:     "maria.santos@example.org",
			Phone:     "+351-21-555-0101",
			Address: models.Address{
				Street: "Rua das Flores 12", City: "Lisbon", ZipCode: "1100-001", Country: "PT",
			},
		},
		Species: models.Species{
			ScientificName: "Panthera onca",
			CommonName:     "Jaguar",
			CITESAppendix:  models.AppendixI,
			Quantity:       2,
			Purpose:        models.PurposeScientificResearch,
			SourceCode:     models.SourceCaptiveBred,
		},
		Shipment: models.ShipmentDetails{
			OriginCountry:      "BR",
			DestinationCountry: "PT",
		},
		Status:         models.StatusApproved,
		SubmissionDate: now,
		LastUpdated:    now,
	}
}

func TestGatewaySendConfirmation(t *testing.T) {
	sesMock := &mockSES{}
	gateway := NewGateway(sesMock, "permits@example.org", logger.NewTestLogger(t))
	app := testApplication()

	err := gateway.Send(context.Background(), outbox.TemplateApplicantConfirmation,
		app.ApplicantInfo.Email, ConfirmationPayload(app))
	require.NoError(t, err)
	require.Len(t, sesMock.inputs, 1)

	input := sesMock.inputs[0]
	assert.Equal(t, "permits@example.org", *input.Source)
	assert.Equal(t, []string{"maria.santos@example.org"}, input.Destination.ToAddresses)
	assert.Equal(t, "CITES Permit Application Confirmation", *input.Message.Subject.Data)

	body := *input.Message.Body.Text.Data
	assert.Contains(t, body, "Dear Maria Santos")
	assert.Contains(t, body, "Application ID: CITES-LX2M4K-A7B2C")
	assert.Contains(t, body, "Species: Jaguar (Panthera onca)")
	assert.Contains(t, body, "Quantity: 2")
	assert.NotContains(t, body, "{{")
}

func TestGatewaySendAdminNotification(t *testing.T) {
	sesMock := &mockSES{}
	gateway := NewGateway(sesMock, "permits@example.org", logger.NewTestLogger(t))
	app := testApplication()

	err := gateway.Send(context.Background(), outbox.TemplateAdminNotification,
		"admin@example.org", AdminPayload(app))
	require.NoError(t, err)
	require.Len(t, sesMock.inputs, 1)

	body := *sesMock.inputs[0].Message.Body.Text.Data
	assert.Contains(t, body, "Applicant: Maria Santos")
	assert.Contains(t, body, "Organization: N/A")
	assert.Contains(t, body, "Source Code: C")
	assert.Contains(t, body, "Documents Submitted: 0")
	assert.NotContains(t, body, "{{")
}

func TestGatewaySendStatusUpdate(t *testing.T) {
	sesMock := &mockSES{}
	gateway := NewGateway(sesMock, "permits@example.org", logger.NewTestLogger(t))
	app := testApplication()
	app.Notes = "documents verified"

	err := gateway.Send(context.Background(), outbox.TemplateStatusUpdate,
		app.ApplicantInfo.Email, StatusUpdatePayload(app))
	require.NoError(t, err)
	require.Len(t, sesMock.inputs, 1)

	input := sesMock.inputs[0]
	assert.Equal(t, "CITES Permit Application Status Update - APPROVED", *input.Message.Subject.Data)
	body := *input.Message.Body.Text.Data
	assert.Contains(t, body, "Current Status: APPROVED")
	assert.Contains(t, body, "Congratulations! Your permit has been approved.")
	assert.Contains(t, body, "Additional Notes: documents verified")
}

func TestGatewaySendUnknownTemplate(t *testing.T) {
	gateway := NewGateway(&mockSES{}, "permits@example.org", logger.NewTestLogger(t))

	err := gateway.Send(context.Background(), outbox.Template("bogus"), "a@b.c", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotificationSendFailed))
}

func TestGatewaySendMissingRecipient(t *testing.T) {
	gateway := NewGateway(&mockSES{}, "permits@example.org", logger.NewTestLogger(t))

	err := gateway.Send(context.Background(), outbox.TemplateApplicantConfirmation, "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotificationSendFailed))
}

func TestGatewaySendSESFailure(t *testing.T) {
	sesMock := &mockSES{err: errors.New("throttled")}
	gateway := NewGateway(sesMock, "permits@example.org", logger.NewTestLogger(t))

	err := gateway.Send(context.Background(), outbox.TemplateApplicantConfirmation,
		"a@b.c", ConfirmationPayload(testApplication()))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotificationSendFailed))
}

func TestSNSAlerter(t *testing.T) {
	snsMock := &mockSNS{}
	alerter := NewSNSAlerter(snsMock, "arn:aws:sns:eu-west-1:123456789012:permit-alerts")

	err := alerter.Alert(context.Background(), "Undeliverable permit notification", "details")
	require.NoError(t, err)
	require.Len(t, snsMock.inputs, 1)
	assert.Equal(t, "arn:aws:sns:eu-west-1:123456789012:permit-alerts", *snsMock.inputs[0].TopicArn)
}

func TestRenderTemplateStripsUnknownPlaceholders(t *testing.T) {
	out := renderTemplate("Hello {{name}}, ref {{missing}} end", map[string]interface{}{"name": "Maria"})
	assert.Equal(t, "Hello Maria, ref  end", out)
}
