package document

import (
	"errors"
	"time"
)

// Errors form the operation-boundary taxonomy. A policy deny is always
// ErrPermissionDenied and never anything else; callers distinguish the kinds
// with errors.Is.
var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("store unavailable")
)

// Document is one record of a named collection. Fields are untyped; some
// carry authorization meaning (uid, isAdmin, userIds) but the store itself
// does not interpret them.
type Document struct {
	Collection string                 `json:"collection" bson:"collection"`
	ID         string                 `json:"id" bson:"id"`
	Fields     map[string]interface{} `json:"fields" bson:"fields"`
	CreatedAt  time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a copy whose field map is independent of the original, so
// callers can mutate results without aliasing stored state. Nested values
// are shared.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Fields = cloneFields(d.Fields)
	return &out
}

func cloneFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Query narrows a list operation: equality filters on fields plus an
// optional limit. The zero value matches the whole collection.
type Query struct {
	Filters map[string]interface{}
	Limit   int
}

// Matches reports whether the document satisfies every filter.
func (q *Query) Matches(d *Document) bool {
	if q == nil {
		return true
	}
	for k, want := range q.Filters {
		if d.Fields[k] != want {
			return false
		}
	}
	return true
}
