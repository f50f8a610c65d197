// internal/workflow/submission.go

// Package workflow holds the two request pipelines: submission and
// status lifecycle.
package workflow

import (
	"context"
	"time"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/common/metrics"
	"cites-permits/internal/models"
	"cites-permits/internal/notify"
	"cites-permits/internal/outbox"
	"cites-permits/internal/store"
)

// NumberGenerator produces application numbers.
type NumberGenerator interface {
	Generate() string
}

// Indexer mirrors applications into the secondary search index.
type Indexer interface {
	Index(ctx context.Context, app *models.Application)
}

// SubmissionWorkflow turns validated submission data into a persisted
// application. The record and both mandatory notification outbox rows
// commit in one transaction, so a submission either fully exists with
// its notifications queued or not at all.
type SubmissionWorkflow struct {
	store      store.ApplicationStore
	generator  NumberGenerator
	indexer    Indexer
	adminEmail string
	logger     logger.Logger
	now        func() time.Time
}

func NewSubmissionWorkflow(st store.ApplicationStore, gen NumberGenerator, indexer Indexer, adminEmail string, log logger.Logger) *SubmissionWorkflow {
	return &SubmissionWorkflow{
		store:      st,
		generator:  gen,
		indexer:    indexer,
		adminEmail: adminEmail,
		logger:     log.WithFields(map[string]interface{}{"workflow": "submission"}),
		now:        time.Now,
	}
}

// Submit persists the application and enqueues the applicant
// confirmation (seq 1) and admin notification (seq 2). On an
// application-number collision it regenerates once before giving up.
func (w *SubmissionWorkflow) Submit(ctx context.Context, data *models.SubmissionData) (*models.Receipt, error) {
	now := w.now().UTC()
	app := &models.Application{
		ID:             w.generator.Generate(),
		ApplicantInfo:  data.ApplicantInfo,
		PermitType:     data.PermitType,
		Species:        data.Species,
		Shipment:       data.Shipment,
		Documents:      data.Documents,
		Status:         models.InitialStatus,
		StatusHistory:  []models.StatusHistoryEntry{},
		SubmissionDate: now,
		LastUpdated:    now,
	}

	err := w.create(ctx, app)
	if apperrors.IsCode(err, apperrors.ErrCodeDuplicateApplication) {
		w.logger.Warn("application number collision, regenerating", map[string]interface{}{
			"applicationId": app.ID,
		})
		app.ID = w.generator.Generate()
		err = w.create(ctx, app)
	}
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues("success").Inc()
	w.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"permitType":    string(app.PermitType),
		"species":       app.Species.ScientificName,
	})

	if w.indexer != nil {
		w.indexer.Index(ctx, app)
	}

	return &models.Receipt{
		ApplicationNumber: app.ID,
		Status:            app.Status,
		SubmittedAt:       app.SubmissionDate,
	}, nil
}

func (w *SubmissionWorkflow) create(ctx context.Context, app *models.Application) error {
	confirmation := outbox.Message{
		ApplicationID: app.ID,
		Seq:           1,
		Template:      outbox.TemplateApplicantConfirmation,
		Recipient:     app.ApplicantInfo.Email,
		Payload:       notify.ConfirmationPayload(app),
		Mandatory:     true,
	}
	admin := outbox.Message{
		ApplicationID: app.ID,
		Seq:           2,
		Template:      outbox.TemplateAdminNotification,
		Recipient:     w.adminEmail,
		Payload:       notify.AdminPayload(app),
		Mandatory:     true,
	}
	return w.store.Create(ctx, app, confirmation, admin)
}
