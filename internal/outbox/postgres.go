// internal/outbox/postgres.go
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "cites-permits/internal/common/errors"
)

// Execer matches both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const insertSQL = `
	INSERT INTO notification_outbox (
		id, application_id, seq, template, recipient, payload,
		mandatory, attempts, status, next_attempt_at, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 'pending', $8, $8)`

// PostgresQueue stores outbox rows in the notification_outbox table.
// One dispatcher instance per deployment owns the claim loop.
type PostgresQueue struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db, now: time.Now}
}

// InsertTx writes a pending message inside the caller's transaction.
// The application store uses this to enqueue a submission's mandatory
// notifications atomically with the record itself.
func (q *PostgresQueue) InsertTx(ctx context.Context, tx Execer, msg Message) error {
	return q.insert(ctx, tx, msg)
}

// Enqueue writes a pending message outside any transaction. Used for
// best-effort status-update notifications.
func (q *PostgresQueue) Enqueue(ctx context.Context, msg Message) error {
	return q.insert(ctx, q.db, msg)
}

func (q *PostgresQueue) insert(ctx context.Context, ex Execer, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	payloadJSON, err := json.Marshal(msg.Payload)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("marshal payload: %w", err))
	}

	_, err = ex.ExecContext(ctx, insertSQL,
		msg.ID,
		msg.ApplicationID,
		msg.Seq,
		string(msg.Template),
		msg.Recipient,
		payloadJSON,
		msg.Mandatory,
		q.now().UTC(),
	)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("insert outbox row: %w", err))
	}
	return nil
}

// ClaimDue picks the earliest eligible message per application. A row is
// eligible only when no lower-seq row of the same application is still
// pending, which keeps the confirmation-before-admin ordering of a
// submission intact while a terminally failed row does not block its
// successors.
func (q *PostgresQueue) ClaimDue(ctx context.Context, limit int) ([]*Message, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, application_id, seq, template, recipient, payload, mandatory, attempts
		FROM notification_outbox o
		WHERE o.status = 'pending'
		  AND o.next_attempt_at <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM notification_outbox p
			WHERE p.application_id = o.application_id
			  AND p.seq < o.seq
			  AND p.status = 'pending'
		  )
		ORDER BY o.next_attempt_at
		LIMIT $2`,
		q.now().UTC(), limit,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("claim outbox rows: %w", err))
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var (
			msg         Message
			template    string
			payloadJSON []byte
		)
		if err := rows.Scan(&msg.ID, &msg.ApplicationID, &msg.Seq, &template,
			&msg.Recipient, &payloadJSON, &msg.Mandatory, &msg.Attempts); err != nil {
			return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("scan outbox row: %w", err))
		}
		msg.Template = Template(template)
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &msg.Payload); err != nil {
				return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("unmarshal payload: %w", err))
			}
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailedError(err)
	}
	return msgs, nil
}

func (q *PostgresQueue) MarkSent(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = 'sent', sent_at = $2
		WHERE id = $1`,
		id, q.now().UTC(),
	)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("mark sent: %w", err))
	}
	return nil
}

func (q *PostgresQueue) Reschedule(ctx context.Context, id string, attempts int, next time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE notification_outbox
		SET attempts = $2, next_attempt_at = $3
		WHERE id = $1`,
		id, attempts, next.UTC(),
	)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("reschedule: %w", err))
	}
	return nil
}

func (q *PostgresQueue) MarkExhausted(ctx context.Context, id string, mandatory bool) error {
	status := StatusAbandoned
	if mandatory {
		status = StatusFailed
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = $2
		WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("mark exhausted: %w", err))
	}
	return nil
}
