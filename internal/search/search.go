// internal/search/search.go

// Package search mirrors application summaries into Elasticsearch for
// the free-text listing path. Indexing is best effort; the Postgres
// ILIKE path stays the contract of record when the index is absent.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "cites-permits/internal/common/errors"
	"cites-permits/internal/common/logger"
	"cites-permits/internal/models"
)

const DefaultIndexName = "permit-applications"

// summary is the indexed projection of an application.
type summary struct {
	ApplicationID  string `json:"applicationId"`
	PermitType     string `json:"permitType"`
	Status         string `json:"status"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	CommonName     string `json:"commonName"`
	ScientificName string `json:"scientificName"`
	SubmissionDate string `json:"submissionDate"`
}

// Result is one page of matching application ids.
type Result struct {
	IDs   []string
	Total int
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = DefaultIndexName
	}
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search-indexer"}),
	}
}

// Index upserts the application summary. Failures are logged and
// swallowed; the index is a secondary view.
func (i *Indexer) Index(ctx context.Context, app *models.Application) {
	doc := summary{
		ApplicationID:  app.ID,
		PermitType:     string(app.PermitType),
		Status:         string(app.Status),
		FirstName:      app.ApplicantInfo.FirstName,
		LastName:       app.ApplicantInfo.LastName,
		Email:          app.ApplicantInfo.Email,
		CommonName:     app.Species.CommonName,
		ScientificName: app.Species.ScientificName,
		SubmissionDate: app.SubmissionDate.UTC().Format("2006-01-02T15:04:05Z"),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		i.logger.Warn("index marshal failed", map[string]interface{}{"error": err})
		return
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: app.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		i.logger.Warn("index request failed", map[string]interface{}{
			"error":         err,
			"applicationId": app.ID,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Warn("index request rejected", map[string]interface{}{
			"status":        res.Status(),
			"applicationId": app.ID,
		})
		return
	}

	i.logger.Debug("application indexed", map[string]interface{}{
		"applicationId": app.ID,
	})
}

// Search runs a free-text query and returns matching application ids.
func (i *Indexer) Search(ctx context.Context, term string, page, pageSize int) (*Result, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	from := (page - 1) * pageSize

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"firstName^2", "lastName^2", "email", "commonName^3", "scientificName^3"},
				"type":   "best_fields",
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"submissionDate": map[string]interface{}{"order": "desc"}},
		},
	}

	body, err := json.Marshal(queryBody)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &pageSize,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("decode search response: %w", err))
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return &Result{IDs: ids, Total: parsed.Hits.Total.Value}, nil
}
