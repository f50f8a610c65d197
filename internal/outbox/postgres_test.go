// internal/outbox/postgres_test.go
package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*PostgresQueue, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresQueue(db), mock
}

func TestQueueEnqueueAssignsID(t *testing.T) {
	queue, mock := newTestQueue(t)

	mock.ExpectExec("INSERT INTO notification_outbox").
		WithArgs(sqlmock.AnyArg(), "CITES-LX2M4K-A7B2C", 1, "applicant_confirmation",
			"maria@example.org", sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := queue.Enqueue(context.Background(), Message{
		ApplicationID: "CITES-LX2M4K-A7B2C",
		Seq:           1,
		Template:      TemplateApplicantConfirmation,
		Recipient:     "maria@example.org",
		Payload:       map[string]interface{}{"firstName": "Maria"},
		Mandatory:     true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueClaimDue(t *testing.T) {
	queue, mock := newTestQueue(t)

	rows := sqlmock.NewRows([]string{
		"id", "application_id", "seq", "template", "recipient", "payload", "mandatory", "attempts",
	}).AddRow(
		"11111111-1111-1111-1111-111111111111",
		"CITES-LX2M4K-A7B2C",
		1,
		"applicant_confirmation",
		"maria@example.org",
		[]byte(`{"firstName":"Maria"}`),
		true,
		2,
	)
	mock.ExpectQuery("SELECT (.+) FROM notification_outbox").
		WithArgs(sqlmock.AnyArg(), 10).
		WillReturnRows(rows)

	msgs, err := queue.ClaimDue(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, TemplateApplicantConfirmation, msgs[0].Template)
	assert.Equal(t, "Maria", msgs[0].Payload["firstName"])
	assert.Equal(t, 2, msgs[0].Attempts)
	assert.True(t, msgs[0].Mandatory)
}

func TestQueueMarkSent(t *testing.T) {
	queue, mock := newTestQueue(t)

	mock.ExpectExec("UPDATE notification_outbox").
		WithArgs("msg-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, queue.MarkSent(context.Background(), "msg-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueReschedule(t *testing.T) {
	queue, mock := newTestQueue(t)
	next := time.Now().Add(time.Minute)

	mock.ExpectExec("UPDATE notification_outbox").
		WithArgs("msg-1", 3, next.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, queue.Reschedule(context.Background(), "msg-1", 3, next))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueMarkExhausted(t *testing.T) {
	queue, mock := newTestQueue(t)

	mock.ExpectExec("UPDATE notification_outbox").
		WithArgs("msg-1", StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE notification_outbox").
		WithArgs("msg-2", StatusAbandoned).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, queue.MarkExhausted(context.Background(), "msg-1", true))
	require.NoError(t, queue.MarkExhausted(context.Background(), "msg-2", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}
