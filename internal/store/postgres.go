// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/models"
	"cites-permits/internal/outbox"
)

const applicationColumns = `
	id, permit_type, applicant, species, shipment, documents,
	status, status_history, notes, submission_date, last_updated`

// PostgresStore is the system-of-record implementation. Structured
// sub-documents live in JSONB columns; the status transition is a CAS
// on last_updated so concurrent reviewers cannot silently overwrite
// each other.
type PostgresStore struct {
	db     *sql.DB
	queue  *outbox.PostgresQueue
	logger logger.Logger
	now    func() time.Time
}

func NewPostgresStore(db *sql.DB, queue *outbox.PostgresQueue, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		queue:  queue,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
		now:    time.Now,
	}
}

// Create persists the application and its outbox messages in one
// transaction. A unique-violation on the primary key surfaces as a
// duplicate-application error so the caller can regenerate the number.
func (s *PostgresStore) Create(ctx context.Context, app *models.Application, msgs ...outbox.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	applicant, err := json.Marshal(app.ApplicantInfo)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("marshal applicant: %w", err))
	}
	species, err := json.Marshal(app.Species)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("marshal species: %w", err))
	}
	shipment, err := json.Marshal(app.Shipment)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("marshal shipment: %w", err))
	}
	documents, err := json.Marshal(app.Documents)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("marshal documents: %w", err))
	}
	history, err := json.Marshal(app.StatusHistory)
	if err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("marshal status history: %w", err))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		app.ID,
		string(app.PermitType),
		applicant,
		species,
		shipment,
		documents,
		string(app.Status),
		history,
		app.Notes,
		app.SubmissionDate.UTC(),
		app.LastUpdated.UTC(),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperrors.NewDuplicateApplicationError(app.ID)
		}
		return apperrors.NewPersistenceFailedError(fmt.Errorf("insert application: %w", err))
	}

	for _, msg := range msgs {
		if err := s.queue.InsertTx(ctx, tx, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceFailedError(fmt.Errorf("commit: %w", err))
	}

	s.logger.Info("application created", map[string]interface{}{
		"applicationId": app.ID,
		"permitType":    string(app.PermitType),
		"notifications": len(msgs),
	})
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE id = $1`,
		id,
	)
	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("get application: %w", err))
	}
	return app, nil
}

// List returns one page of applications, newest submission first.
func (s *PostgresStore) List(ctx context.Context, filter Filter, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (
			applicant->>'firstName' ILIKE $%d OR
			applicant->>'lastName' ILIKE $%d OR
			applicant->>'email' ILIKE $%d OR
			species->>'commonName' ILIKE $%d OR
			species->>'scientificName' ILIKE $%d)`, n, n, n, n, n)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications "+where, args...,
	).Scan(&total); err != nil {
		return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("count applications: %w", err))
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM applications
		%s
		ORDER BY submission_date DESC
		LIMIT $%d OFFSET $%d`,
		applicationColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("list applications: %w", err))
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("scan application: %w", err))
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceFailedError(err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &Page{
		Applications: apps,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
	}, nil
}

// UpdateStatus appends the previous state to the history and moves the
// record to newStatus. The write is guarded by a CAS on last_updated;
// one retry absorbs a benign race before the caller sees a conflict.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, newStatus models.Status, notes string) (*models.Application, error) {
	for attempt := 0; attempt < 2; attempt++ {
		app, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		prev := models.StatusHistoryEntry{
			Status:    app.Status,
			Timestamp: app.LastUpdated,
			Notes:     app.Notes,
		}
		history := append(append([]models.StatusHistoryEntry{}, app.StatusHistory...), prev)
		historyJSON, err := json.Marshal(history)
		if err != nil {
			return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("marshal status history: %w", err))
		}

		// An empty notes argument keeps the existing notes; the history
		// entry above already preserves the prior value.
		newNotes := app.Notes
		if notes != "" {
			newNotes = notes
		}

		updated := s.now().UTC()
		res, err := s.db.ExecContext(ctx, `
			UPDATE applications
			SET status = $2, status_history = $3, notes = $4, last_updated = $5
			WHERE id = $1 AND last_updated = $6`,
			id, string(newStatus), historyJSON, newNotes, updated, app.LastUpdated.UTC(),
		)
		if err != nil {
			return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("update status: %w", err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, apperrors.NewPersistenceFailedError(fmt.Errorf("rows affected: %w", err))
		}
		if affected == 0 {
			// Another writer moved the record between read and write.
			s.logger.Warn("status update lost race, retrying", map[string]interface{}{
				"applicationId": id,
				"attempt":       attempt + 1,
			})
			continue
		}

		app.Status = newStatus
		app.StatusHistory = history
		app.Notes = newNotes
		app.LastUpdated = updated
		s.logger.Info("application status updated", map[string]interface{}{
			"applicationId": id,
			"status":        string(newStatus),
		})
		return app, nil
	}
	return nil, apperrors.NewConflictError(id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app        models.Application
		permitType string
		status     string
		applicant  []byte
		species    []byte
		shipment   []byte
		documents  []byte
		history    []byte
	)
	err := row.Scan(
		&app.ID,
		&permitType,
		&applicant,
		&species,
		&shipment,
		&documents,
		&status,
		&history,
		&app.Notes,
		&app.SubmissionDate,
		&app.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	app.PermitType = models.PermitType(permitType)
	app.Status = models.Status(status)
	if err := json.Unmarshal(applicant, &app.ApplicantInfo); err != nil {
		return nil, fmt.Errorf("unmarshal applicant: %w", err)
	}
	if err := json.Unmarshal(species, &app.Species); err != nil {
		return nil, fmt.Errorf("unmarshal species: %w", err)
	}
	if err := json.Unmarshal(shipment, &app.Shipment); err != nil {
		return nil, fmt.Errorf("unmarshal shipment: %w", err)
	}
	if len(documents) > 0 {
		if err := json.Unmarshal(documents, &app.Documents); err != nil {
			return nil, fmt.Errorf("unmarshal documents: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &app.StatusHistory); err != nil {
			return nil, fmt.Errorf("unmarshal status history: %w", err)
		}
	}
	return &app, nil
}
