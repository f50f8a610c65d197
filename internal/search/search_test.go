// internal/search/search_test.go
package search

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/models"
)

// stubTransport returns canned Elasticsearch responses.
type stubTransport struct {
	status   int
	body     string
	requests []*http.Request
}

func (t *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.requests = append(t.requests, req)
	return &http.Response{
		StatusCode: t.status,
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}, "Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(t.body)),
	}, nil
}

func newTestIndexer(t *testing.T, transport *stubTransport) *Indexer {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{"http://localhost:9200"},
		Transport:    transport,
		DisableRetry: true,
	})
	require.NoError(t, err)
	return NewIndexer(client, "", logger.NewTestLogger(t))
}

func TestIndexSendsSummary(t *testing.T) {
	transport := &stubTransport{status: http.StatusCreated, body: `{"result":"created"}`}
	indexer := newTestIndexer(t, transport)

	app := &models.Application{
		ID:             "CITES-LX2M4K-A7B2C",
		PermitType:     models.PermitExport,
		Status:         models.StatusPending,
		ApplicantInfo:  models.ApplicantInfo{FirstName: "Maria", LastName: "Santos", Email: "maria@example.org"},
		Species:        models.Species{CommonName: "Jaguar", ScientificName: "Panthera onca"},
		SubmissionDate: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	indexer.Index(context.Background(), app)

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Contains(t, req.URL.Path, "/permit-applications/_doc/CITES-LX2M4K-A7B2C")
}

func TestIndexFailureIsSwallowed(t *testing.T) {
	transport := &stubTransport{status: http.StatusServiceUnavailable, body: `{"error":"unavailable"}`}
	indexer := newTestIndexer(t, transport)

	indexer.Index(context.Background(), &models.Application{ID: "CITES-LX2M4K-A7B2C"})
	assert.Len(t, transport.requests, 1)
}

func TestSearchParsesHits(t *testing.T) {
	transport := &stubTransport{
		status: http.StatusOK,
		body: `{
			"hits": {
				"total": {"value": 12},
				"hits": [
					{"_id": "CITES-AAA11-11111"},
					{"_id": "CITES-BBB22-22222"}
				]
			}
		}`,
	}
	indexer := newTestIndexer(t, transport)

	result, err := indexer.Search(context.Background(), "jaguar", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 12, result.Total)
	assert.Equal(t, []string{"CITES-AAA11-11111", "CITES-BBB22-22222"}, result.IDs)
}

func TestSearchErrorStatus(t *testing.T) {
	transport := &stubTransport{status: http.StatusBadRequest, body: `{"error":"bad query"}`}
	indexer := newTestIndexer(t, transport)

	_, err := indexer.Search(context.Background(), "jaguar", 1, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSearchQueryFailed))
}
