package repository

import (
	"context"

	backendmodel "restate/internal/backend/model"
	"restate/internal/backend/query"
)

// DocumentGateway reads documents from backend collections.
type DocumentGateway interface {
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries []query.Query) (*backendmodel.DocumentList, error)
	GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*backendmodel.Document, error)
}

// CollectionLocator resolves where properties are stored. It fails when the ids are not configured.
type CollectionLocator interface {
	PropertiesCollection() (databaseID, collectionID string, err error)
}
