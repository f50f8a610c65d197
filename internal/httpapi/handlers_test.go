// internal/httpapi/handlers_test.go
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/documents"
	"cites-permits/internal/models"
	"cites-permits/internal/outbox"
	"cites-permits/internal/store"
	"cites-permits/internal/validation"
	"cites-permits/internal/workflow"
)

type memStore struct {
	apps      map[string]*models.Application
	createErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{apps: map[string]*models.Application{}}
}

func (s *memStore) Create(_ context.Context, app *models.Application, _ ...outbox.Message) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.apps[app.ID] = app
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*models.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(id)
	}
	return app, nil
}

func (s *memStore) List(_ context.Context, filter store.Filter, page, pageSize int) (*store.Page, error) {
	apps := []models.Application{}
	for _, app := range s.apps {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		apps = append(apps, *app)
	}
	return &store.Page{
		Applications: apps,
		Total:        len(apps),
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   1,
	}, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id string, newStatus models.Status, notes string) (*models.Application, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	app, ok := s.apps[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(id)
	}
	app.StatusHistory = append(app.StatusHistory, models.StatusHistoryEntry{
		Status:    app.Status,
		Timestamp: app.LastUpdated,
		Notes:     app.Notes,
	})
	app.Status = newStatus
	if notes != "" {
		app.Notes = notes
	}
	app.LastUpdated = time.Now().UTC()
	return app, nil
}

type memEnqueuer struct{ msgs []outbox.Message }

func (e *memEnqueuer) Enqueue(_ context.Context, msg outbox.Message) error {
	e.msgs = append(e.msgs, msg)
	return nil
}

type memDocStorage struct{ deleted []string }

func (m *memDocStorage) Store(_ context.Context, _ []byte, meta documents.Meta) (*models.Document, error) {
	return &models.Document{StorageID: "doc-1", OriginalName: meta.OriginalName, UploadedAt: time.Now().UTC()}, nil
}

func (m *memDocStorage) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type fixedGenerator struct{ id string }

func (g fixedGenerator) Generate() string { return g.id }

func newTestServer(t *testing.T, st store.ApplicationStore) *httptest.Server {
	log := logger.NewTestLogger(t)
	validator, err := validation.NewValidator(nil)
	require.NoError(t, err)

	submission := workflow.NewSubmissionWorkflow(st, fixedGenerator{id: "CITES-LX2M4K-A7B2C"}, nil, "admin@example.org", log)
	lifecycle := workflow.NewLifecycleWorkflow(st, &memEnqueuer{}, nil, log)
	docs := documents.NewService(&memDocStorage{}, 0, log)

	handler := NewHandler(validator, submission, lifecycle, st, docs, log)
	srv := httptest.NewServer(NewRouter(handler, log))
	t.Cleanup(srv.Close)
	return srv
}

func submissionBody() string {
	return `{
		"applicantInfo": {
			"firstName": "Maria",
			"lastName": "Santos",
			"email": "maria.santos@example.org",
			"phone": "+351-21-555-0101",
			"address": {"street": "Rua das Flores 12", "city": "Lisbon", "country": "PT"}
		},
		"permitType": "export",
		"species": {
			"scientificName": "Panthera onca",
			"commonName": "Jaguar",
			"citesAppendix": "I",
			"quantity": 1,
			"purpose": "scientific research",
			"sourceCode": "C"
		},
		"shipmentDetails": {"originCountry": "BR", "destinationCountry": "PT"}
	}`
}

func decodeEnvelope(t *testing.T, res *http.Response) map[string]interface{} {
	t.Helper()
	defer res.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestSubmitApplicationCreated(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	res, err := http.Post(srv.URL+"/applications", "application/json", strings.NewReader(submissionBody()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	body := decodeEnvelope(t, res)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "CITES-LX2M4K-A7B2C", data["applicationNumber"])
	assert.Equal(t, "pending", data["status"])
}

func TestSubmitApplicationValidationFailure(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	res, err := http.Post(srv.URL+"/applications", "application/json", strings.NewReader(`{"permitType":"export"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	body := decodeEnvelope(t, res)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["errors"])
}

func TestGetApplication(t *testing.T) {
	st := newMemStore()
	st.apps["CITES-LX2M4K-A7B2C"] = &models.Application{
		ID:     "CITES-LX2M4K-A7B2C",
		Status: models.StatusPending,
	}
	srv := newTestServer(t, st)

	res, err := http.Get(srv.URL + "/applications/CITES-LX2M4K-A7B2C")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeEnvelope(t, res)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "CITES-LX2M4K-A7B2C", data["id"])
}

func TestGetApplicationNotFound(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	res, err := http.Get(srv.URL + "/applications/CITES-MISSING-00000")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestListApplicationsRejectsUnknownStatusFilter(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	res, err := http.Get(srv.URL + "/applications?status=archived")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestListApplications(t *testing.T) {
	st := newMemStore()
	st.apps["CITES-AAA11-11111"] = &models.Application{ID: "CITES-AAA11-11111", Status: models.StatusApproved}
	st.apps["CITES-BBB22-22222"] = &models.Application{ID: "CITES-BBB22-22222", Status: models.StatusPending}
	srv := newTestServer(t, st)

	res, err := http.Get(srv.URL + "/applications?status=approved")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeEnvelope(t, res)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
}

func patchStatus(t *testing.T, srv *httptest.Server, id, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/applications/"+id+"/status", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

func TestTransitionApplication(t *testing.T) {
	st := newMemStore()
	st.apps["CITES-LX2M4K-A7B2C"] = &models.Application{
		ID:            "CITES-LX2M4K-A7B2C",
		ApplicantInfo: models.ApplicantInfo{Email: "maria@example.org"},
		Status:        models.StatusPending,
		LastUpdated:   time.Now().UTC(),
	}
	srv := newTestServer(t, st)

	res := patchStatus(t, srv, "CITES-LX2M4K-A7B2C", `{"status":"approved","notes":"ok"}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeEnvelope(t, res)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "approved", data["status"])
	history := data["statusHistory"].([]interface{})
	assert.Len(t, history, 1)
}

func TestTransitionApplicationInvalidStatus(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	res := patchStatus(t, srv, "CITES-LX2M4K-A7B2C", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestTransitionApplicationConflict(t *testing.T) {
	st := newMemStore()
	st.updateErr = apperrors.NewConflictError("CITES-LX2M4K-A7B2C")
	srv := newTestServer(t, st)

	res := patchStatus(t, srv, "CITES-LX2M4K-A7B2C", `{"status":"approved"}`)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestUploadDocumentsPartialSuccess(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("documents", "license.pdf")
	require.NoError(t, err)
	fw.Write([]byte("pdf bytes"))
	fw, err = mw.CreateFormFile("documents", "malware.exe")
	require.NoError(t, err)
	fw.Write([]byte("exe bytes"))
	require.NoError(t, mw.Close())

	res, err := http.Post(srv.URL+"/documents", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeEnvelope(t, res)
	results := body["data"].([]interface{})
	require.Len(t, results, 2)
	first := results[0].(map[string]interface{})
	second := results[1].(map[string]interface{})
	assert.NotNil(t, first["document"])
	assert.NotEmpty(t, second["error"])
}

func TestDeleteDocument(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/documents/doc-1", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, newMemStore())

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestRecovererCatchesPanics(t *testing.T) {
	mw := recoverer(logger.NewNoOpLogger())
	h := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
