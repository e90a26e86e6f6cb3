package usecase

import (
	"context"
	"fmt"

	"restate/internal/backend/model"
	"restate/internal/backend/query"
	"restate/internal/property/domain/repository"
	"restate/internal/shared/logger"
	"restate/internal/shared/utils"
)

// FilterAll disables the type filter.
const FilterAll = "All"

// LatestLimit is the number of documents GetLatestProperties returns.
const LatestLimit = 5

// Property attributes used for filtering and search
const (
	AttrType    = "type"
	AttrName    = "name"
	AttrAddress = "address"
)

// PropertiesParams narrows a property listing. Zero values mean no filter,
// no search and no limit.
type PropertiesParams struct {
	Filter string `json:"filter" query:"filter"`
	Query  string `json:"query" query:"query"`
	Limit  int    `json:"limit,omitempty" query:"limit"`
}

// PropertyUsecaseInterface defines the query use cases. Failures are logged
// and reported as empty results.
type PropertyUsecaseInterface interface {
	GetLatestProperties(ctx context.Context) []model.Document
	GetProperties(ctx context.Context, params PropertiesParams) []model.Document
	GetPropertyByID(ctx context.Context, id string) *model.Document
}

// PropertyUsecase reads the properties collection.
type PropertyUsecase struct {
	documents repository.DocumentGateway
	locator   repository.CollectionLocator
	log       logger.Logger
}

// NewPropertyUsecase creates the query use cases.
func NewPropertyUsecase(documents repository.DocumentGateway, locator repository.CollectionLocator, log logger.Logger) *PropertyUsecase {
	if log == nil {
		log = logger.Nop()
	}
	return &PropertyUsecase{
		documents: documents,
		locator:   locator,
		log:       log.WithComponent("property_usecase"),
	}
}

// LatestPropertiesQueries returns the five oldest-created documents first.
func LatestPropertiesQueries() []query.Query {
	return []query.Query{
		query.OrderAsc(model.AttrCreatedAt),
		query.Limit(LatestLimit),
	}
}

// BuildPropertiesQueries builds the listing queries for params: newest
// first, an optional type filter, an optional search over name, address and
// type, and an optional limit.
func BuildPropertiesQueries(params PropertiesParams) []query.Query {
	queries := []query.Query{query.OrderDesc(model.AttrCreatedAt)}

	if params.Filter != "" && params.Filter != FilterAll {
		queries = append(queries, query.Equal(AttrType, params.Filter))
	}
	if params.Query != "" {
		queries = append(queries, query.Or(
			query.Search(AttrName, params.Query),
			query.Search(AttrAddress, params.Query),
			query.Search(AttrType, params.Query),
		))
	}
	if params.Limit > 0 {
		queries = append(queries, query.Limit(params.Limit))
	}
	return queries
}

// GetLatestProperties returns the latest properties, or an empty list on failure.
func (uc *PropertyUsecase) GetLatestProperties(ctx context.Context) []model.Document {
	ctx = utils.WithOperation(ctx, "get_latest_properties")
	docs, err := uc.list(ctx, LatestPropertiesQueries())
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to get latest properties: %v", err)
		return []model.Document{}
	}
	return docs
}

// GetProperties returns the properties matching params, or an empty list on failure.
func (uc *PropertyUsecase) GetProperties(ctx context.Context, params PropertiesParams) []model.Document {
	ctx = utils.WithOperation(ctx, "get_properties")
	docs, err := uc.list(ctx, BuildPropertiesQueries(params))
	if err != nil {
		uc.log.WithContext(ctx).WithFields(map[string]interface{}{
			"filter": params.Filter,
			"query":  params.Query,
			"limit":  params.Limit,
		}).Errorf("Failed to get properties: %v", err)
		return []model.Document{}
	}
	return docs
}

// GetPropertyByID returns one property, or nil when it is missing or the lookup fails.
func (uc *PropertyUsecase) GetPropertyByID(ctx context.Context, id string) *model.Document {
	ctx = utils.WithOperation(ctx, "get_property_by_id")
	databaseID, collectionID, err := uc.locator.PropertiesCollection()
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to get property %s: %v", id, err)
		return nil
	}
	doc, err := uc.documents.GetDocument(ctx, databaseID, collectionID, id)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to get property %s: %v", id, err)
		return nil
	}
	return doc
}

func (uc *PropertyUsecase) list(ctx context.Context, queries []query.Query) ([]model.Document, error) {
	databaseID, collectionID, err := uc.locator.PropertiesCollection()
	if err != nil {
		return nil, err
	}
	list, err := uc.documents.ListDocuments(ctx, databaseID, collectionID, queries)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if list == nil || list.Documents == nil {
		return []model.Document{}, nil
	}
	return list.Documents, nil
}
