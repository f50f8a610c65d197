// Package store persists permit applications. PostgreSQL is the system
// of record and the uniqueness authority for application numbers.
package store

import (
	"context"

	"cites-permits/internal/models"
	"cites-permits/internal/outbox"
)

// Filter narrows a listing. Status is an exact match; Search is a
// case-insensitive substring over applicant name, email and species names.
type Filter struct {
	Status models.Status
	Search string
}

// Page is one page of a listing, newest submission first.
type Page struct {
	Applications []models.Application `json:"applications"`
	Total        int                  `json:"total"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"pageSize"`
	TotalPages   int                  `json:"totalPages"`
}

// ApplicationStore is the durable record of applications.
//
// Create writes the record and any outbox messages in one transaction,
// so a submission's mandatory notifications are enqueued atomically with
// the persist. UpdateStatus performs the history-appending
// read-modify-write atomically with respect to other writers of the
// same record.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application, msgs ...outbox.Message) error
	Get(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, filter Filter, page, pageSize int) (*Page, error)
	UpdateStatus(ctx context.Context, id string, newStatus models.Status, notes string) (*models.Application, error)
}
