package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// System attribute names
const (
	AttrID           = "$id"
	AttrCollectionID = "$collectionId"
	AttrDatabaseID   = "$databaseId"
	AttrCreatedAt    = "$createdAt"
	AttrUpdatedAt    = "$updatedAt"
	AttrPermissions  = "$permissions"
)

// Document is an opaque record from a collection. System attributes are
// lifted into fields; everything else stays in Data.
type Document struct {
	ID           string
	CollectionID string
	DatabaseID   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Permissions  []string
	Data         map[string]interface{}
}

// DocumentList is one page of a collection listing.
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// Field returns a system or data attribute by name.
func (d Document) Field(name string) (interface{}, bool) {
	switch name {
	case AttrID:
		return d.ID, true
	case AttrCollectionID:
		return d.CollectionID, true
	case AttrDatabaseID:
		return d.DatabaseID, true
	case AttrCreatedAt:
		return d.CreatedAt, true
	case AttrUpdatedAt:
		return d.UpdatedAt, true
	case AttrPermissions:
		return d.Permissions, true
	}
	v, ok := d.Data[name]
	return v, ok
}

// String returns a data attribute as a string, or "" when absent or not a string.
func (d Document) String(name string) string {
	if v, ok := d.Data[name].(string); ok {
		return v
	}
	return ""
}

// MarshalJSON flattens the document back into the backend's wire shape.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Data)+6)
	for k, v := range d.Data {
		out[k] = v
	}
	out[AttrID] = d.ID
	out[AttrCollectionID] = d.CollectionID
	out[AttrDatabaseID] = d.DatabaseID
	out[AttrCreatedAt] = d.CreatedAt
	out[AttrUpdatedAt] = d.UpdatedAt
	permissions := d.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	out[AttrPermissions] = permissions
	return json.Marshal(out)
}

// UnmarshalJSON splits system attributes from data attributes.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var doc Document
	var err error
	if doc.ID, err = stringAttr(raw, AttrID); err != nil {
		return err
	}
	if doc.CollectionID, err = stringAttr(raw, AttrCollectionID); err != nil {
		return err
	}
	if doc.DatabaseID, err = stringAttr(raw, AttrDatabaseID); err != nil {
		return err
	}
	if doc.CreatedAt, err = timeAttr(raw, AttrCreatedAt); err != nil {
		return err
	}
	if doc.UpdatedAt, err = timeAttr(raw, AttrUpdatedAt); err != nil {
		return err
	}
	if p, ok := raw[AttrPermissions]; ok {
		if err := json.Unmarshal(p, &doc.Permissions); err != nil {
			return fmt.Errorf("decode %s: %w", AttrPermissions, err)
		}
	}

	for _, k := range []string{AttrID, AttrCollectionID, AttrDatabaseID, AttrCreatedAt, AttrUpdatedAt, AttrPermissions} {
		delete(raw, k)
	}
	doc.Data = make(map[string]interface{}, len(raw))
	for k, v := range raw {
		var val interface{}
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		doc.Data[k] = val
	}

	*d = doc
	return nil
}

func stringAttr(raw map[string]json.RawMessage, key string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("decode %s: %w", key, err)
	}
	return s, nil
}

func timeAttr(raw map[string]json.RawMessage, key string) (time.Time, error) {
	s, err := stringAttr(raw, key)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return t, nil
}
