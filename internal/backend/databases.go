package backend

import (
	"context"
	"net/http"
	"net/url"

	"restate/internal/backend/model"
	"restate/internal/backend/query"
	apperrors "restate/internal/shared/errors"
)

// Databases reads documents from collections.
type Databases struct {
	client *Client
}

// NewDatabases creates the databases service.
func NewDatabases(c *Client) *Databases {
	return &Databases{client: c}
}

// ListDocuments lists documents matching queries.
func (d *Databases) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []query.Query) (*model.DocumentList, error) {
	if err := requireIDs(databaseID, collectionID); err != nil {
		return nil, err
	}
	params := url.Values{}
	for _, q := range query.Strings(queries) {
		params.Add("queries[]", q)
	}
	list := &model.DocumentList{}
	if err := d.client.call(ctx, "databases.listDocuments", http.MethodGet, collectionPath(databaseID, collectionID)+"/documents", params, nil, list); err != nil {
		return nil, err
	}
	if list.Documents == nil {
		list.Documents = []model.Document{}
	}
	return list, nil
}

// GetDocument fetches one document by id.
func (d *Databases) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*model.Document, error) {
	if err := requireIDs(databaseID, collectionID); err != nil {
		return nil, err
	}
	if documentID == "" {
		return nil, apperrors.NewValidationError("documentId is required").WithCause(apperrors.ErrInvalidInput)
	}
	doc := &model.Document{}
	path := collectionPath(databaseID, collectionID) + "/documents/" + url.PathEscape(documentID)
	if err := d.client.call(ctx, "databases.getDocument", http.MethodGet, path, nil, nil, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func collectionPath(databaseID, collectionID string) string {
	return "/databases/" + url.PathEscape(databaseID) + "/collections/" + url.PathEscape(collectionID)
}

func requireIDs(databaseID, collectionID string) error {
	if databaseID == "" {
		return apperrors.NewConfigurationError("databaseId")
	}
	if collectionID == "" {
		return apperrors.NewConfigurationError("collectionId")
	}
	return nil
}
