package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const propertyJSON = `{
	"$id": "prop-1",
	"$collectionId": "properties",
	"$databaseId": "restate",
	"$createdAt": "2024-11-02T10:15:30.123+00:00",
	"$updatedAt": "2024-11-03T08:00:00.000+00:00",
	"$permissions": ["read(\"any\")"],
	"name": "Merialla Villa",
	"address": "12 Harbour Road",
	"type": "Villa",
	"price": 5400,
	"facilities": ["Pool", "Wifi"]
}`

func TestDocument_UnmarshalSplitsSystemAttributes(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(propertyJSON), &doc))

	assert.Equal(t, "prop-1", doc.ID)
	assert.Equal(t, "properties", doc.CollectionID)
	assert.Equal(t, "restate", doc.DatabaseID)
	assert.Equal(t, time.Date(2024, 11, 2, 10, 15, 30, 123000000, time.UTC), doc.CreatedAt.UTC())
	assert.Equal(t, []string{`read("any")`}, doc.Permissions)

	assert.Equal(t, "Merialla Villa", doc.String("name"))
	assert.Equal(t, "Villa", doc.String("type"))
	assert.Equal(t, float64(5400), doc.Data["price"])
	assert.NotContains(t, doc.Data, AttrID)
	assert.NotContains(t, doc.Data, AttrCreatedAt)
}

func TestDocument_Field(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(propertyJSON), &doc))

	v, ok := doc.Field(AttrCreatedAt)
	require.True(t, ok)
	assert.Equal(t, doc.CreatedAt, v)

	v, ok = doc.Field("address")
	require.True(t, ok)
	assert.Equal(t, "12 Harbour Road", v)

	_, ok = doc.Field("missing")
	assert.False(t, ok)
	assert.Equal(t, "", doc.String("price"))
}

func TestDocument_MarshalFlattens(t *testing.T) {
	doc := Document{
		ID:           "p-2",
		CollectionID: "properties",
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Data:         map[string]interface{}{"name": "Loft"},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &flat))
	assert.Equal(t, "p-2", flat["$id"])
	assert.Equal(t, "Loft", flat["name"])
	assert.Equal(t, "2024-01-01T00:00:00Z", flat["$createdAt"])
	assert.Equal(t, []interface{}{}, flat["$permissions"])
}

func TestDocument_UnmarshalRejectsBadTimestamp(t *testing.T) {
	var doc Document
	err := json.Unmarshal([]byte(`{"$id":"x","$createdAt":"yesterday"}`), &doc)
	assert.Error(t, err)
}

func TestDocumentList_Unmarshal(t *testing.T) {
	var list DocumentList
	require.NoError(t, json.Unmarshal([]byte(`{"total":1,"documents":[`+propertyJSON+`]}`), &list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "prop-1", list.Documents[0].ID)
}
