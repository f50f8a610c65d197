// internal/httpapi/handlers.go

// Package httpapi is the HTTP surface of the permit service.
package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cites-permits/internal/common/logger"
	"cites-permits/internal/documents"
	"cites-permits/internal/models"
	"cites-permits/internal/store"
	"cites-permits/internal/validation"
	"cites-permits/internal/workflow"
)

const maxBodyBytes = 1 << 20 // request bodies, not uploads

// Handler exposes the application and document endpoints.
type Handler struct {
	validator  *validation.Validator
	submission *workflow.SubmissionWorkflow
	lifecycle  *workflow.LifecycleWorkflow
	store      store.ApplicationStore
	documents  *documents.Service
	logger     logger.Logger
}

func NewHandler(
	validator *validation.Validator,
	submission *workflow.SubmissionWorkflow,
	lifecycle *workflow.LifecycleWorkflow,
	st store.ApplicationStore,
	docs *documents.Service,
	log logger.Logger,
) *Handler {
	return &Handler{
		validator:  validator,
		submission: submission,
		lifecycle:  lifecycle,
		store:      st,
		documents:  docs,
		logger:     log.WithFields(map[string]interface{}{"component": "httpapi"}),
	}
}

// SubmitApplication handles POST /applications.
func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeValidationErrors(w, []validation.FieldError{{
			Field:   "body",
			Message: "cannot read request body",
			Code:    validation.CodeInvalidFormat,
		}})
		return
	}

	data, fieldErrs := h.validator.Validate(body)
	if len(fieldErrs) > 0 {
		writeValidationErrors(w, fieldErrs)
		return
	}

	receipt, err := h.submission.Submit(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, receipt)
}

// GetApplication handles GET /applications/{id}.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	app, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, app)
}

// ListApplications handles GET /applications.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Status: models.Status(q.Get("status")),
		Search: q.Get("search"),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		writeValidationErrors(w, []validation.FieldError{{
			Field:   "status",
			Message: "unknown status filter",
			Code:    validation.CodeInvalidEnum,
		}})
		return
	}

	page := intQuery(q.Get("page"), 1)
	pageSize := intQuery(q.Get("pageSize"), 20)

	result, err := h.store.List(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

type transitionRequest struct {
	Status models.Status `json:"status"`
	Notes  string        `json:"notes"`
}

// TransitionApplication handles PATCH /applications/{id}/status.
func (h *Handler) TransitionApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationErrors(w, []validation.FieldError{{
			Field:   "body",
			Message: "request body is not valid JSON",
			Code:    validation.CodeInvalidFormat,
		}})
		return
	}

	app, err := h.lifecycle.Transition(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, app)
}

// UploadDocuments handles POST /documents (multipart, field "documents").
func (h *Handler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(documents.DefaultMaxSizeBytes); err != nil {
		writeValidationErrors(w, []validation.FieldError{{
			Field:   "documents",
			Message: "cannot parse multipart form",
			Code:    validation.CodeInvalidFormat,
		}})
		return
	}

	files := r.MultipartForm.File["documents"]
	if len(files) == 0 {
		writeValidationErrors(w, []validation.FieldError{{
			Field:   "documents",
			Message: "no files provided",
			Code:    validation.CodeMissingRequired,
		}})
		return
	}

	uploads := make([]documents.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			uploads = append(uploads, documents.Upload{Meta: documents.Meta{OriginalName: fh.Filename}})
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			uploads = append(uploads, documents.Upload{Meta: documents.Meta{OriginalName: fh.Filename}})
			continue
		}
		uploads = append(uploads, documents.Upload{
			Data: data,
			Meta: documents.Meta{
				OriginalName: fh.Filename,
				ContentType:  fh.Header.Get("Content-Type"),
			},
		})
	}

	results := h.documents.UploadAll(r.Context(), uploads)
	writeSuccess(w, http.StatusOK, results)
}

// DeleteDocument handles DELETE /documents/{id}.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.documents.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"storageId": id})
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
