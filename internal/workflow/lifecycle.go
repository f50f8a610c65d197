// internal/workflow/lifecycle.go
package workflow

import (
	"context"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/common/metrics"
	"cites-permits/internal/models"
	"cites-permits/internal/notify"
	"cites-permits/internal/outbox"
	"cites-permits/internal/store"
)

// LifecycleWorkflow applies status transitions. The status-update
// notification is best effort: an enqueue failure is logged and never
// fails the transition, unlike the mandatory submission notifications.
type LifecycleWorkflow struct {
	store    store.ApplicationStore
	enqueuer outbox.Enqueuer
	indexer  Indexer
	logger   logger.Logger
}

func NewLifecycleWorkflow(st store.ApplicationStore, enq outbox.Enqueuer, indexer Indexer, log logger.Logger) *LifecycleWorkflow {
	return &LifecycleWorkflow{
		store:    st,
		enqueuer: enq,
		indexer:  indexer,
		logger:   log.WithFields(map[string]interface{}{"workflow": "lifecycle"}),
	}
}

// Transition moves the application to newStatus, appending the previous
// state to its history.
func (w *LifecycleWorkflow) Transition(ctx context.Context, id string, newStatus models.Status, notes string) (*models.Application, error) {
	if !newStatus.IsValid() {
		return nil, apperrors.NewInvalidStatusError(string(newStatus))
	}

	app, err := w.store.UpdateStatus(ctx, id, newStatus, notes)
	if err != nil {
		metrics.StatusTransitionsTotal.WithLabelValues(string(newStatus), "failure").Inc()
		return nil, err
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(newStatus), "success").Inc()
	w.logger.Info("application transitioned", map[string]interface{}{
		"applicationId": app.ID,
		"status":        string(newStatus),
	})

	msg := outbox.Message{
		ApplicationID: app.ID,
		Seq:           len(app.StatusHistory) + 2,
		Template:      outbox.TemplateStatusUpdate,
		Recipient:     app.ApplicantInfo.Email,
		Payload:       notify.StatusUpdatePayload(app),
		Mandatory:     false,
	}
	if err := w.enqueuer.Enqueue(ctx, msg); err != nil {
		w.logger.Warn("status update notification not enqueued", map[string]interface{}{
			"error":         err,
			"applicationId": app.ID,
		})
	}

	if w.indexer != nil {
		w.indexer.Index(ctx, app)
	}

	return app, nil
}
