// Package outbox is the durable pending-notification queue. Submission
// persists its mandatory notifications here in the same transaction as
// the application record; a background dispatcher delivers them with
// retry and backoff. Delivery failure is an operational concern, never a
// client-visible submission failure.
package outbox

import (
	"context"
	"time"
)

// Template names one of the three notification templates.
type Template string

const (
	TemplateApplicantConfirmation Template = "applicant_confirmation"
	TemplateAdminNotification     Template = "admin_notification"
	TemplateStatusUpdate          Template = "status_update"
)

// Row statuses.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusFailed    = "failed"    // mandatory row that exhausted retries
	StatusAbandoned = "abandoned" // best-effort row that exhausted retries
)

// Message is one queued notification. Seq orders sends within a single
// application: a message is eligible only after every lower-seq message
// of the same application has been sent.
type Message struct {
	ID            string                 `json:"id"`
	ApplicationID string                 `json:"applicationId"`
	Seq           int                    `json:"seq"`
	Template      Template               `json:"template"`
	Recipient     string                 `json:"recipient"`
	Payload       map[string]interface{} `json:"payload"`
	Mandatory     bool                   `json:"mandatory"`
	Attempts      int                    `json:"attempts"`
}

// Queue is the storage contract the dispatcher runs against.
type Queue interface {
	// ClaimDue returns up to limit messages whose next attempt is due,
	// respecting per-application seq ordering.
	ClaimDue(ctx context.Context, limit int) ([]*Message, error)
	MarkSent(ctx context.Context, id string) error
	// Reschedule records a failed attempt and the time of the next one.
	Reschedule(ctx context.Context, id string, attempts int, next time.Time) error
	// MarkExhausted terminally fails a message after its last attempt.
	MarkExhausted(ctx context.Context, id string, mandatory bool) error
}

// Enqueuer is the narrow write-side contract used by the lifecycle
// workflow for best-effort notifications outside any transaction.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg Message) error
}
