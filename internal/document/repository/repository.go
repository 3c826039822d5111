package repository

import (
	"context"

	"github.com/docgate/docgate/internal/document"
)

// Repository is the privileged, rule-free persistence channel. Only the
// service layer (which evaluates rules first) and test fixtures should touch
// it directly.
type Repository interface {
	// Get returns the document or document.ErrNotFound.
	Get(ctx context.Context, collection, id string) (*document.Document, error)
	// List returns the documents of a collection matching the query.
	List(ctx context.Context, collection string, q *document.Query) ([]*document.Document, error)
	// Set creates or fully replaces a document.
	Set(ctx context.Context, d *document.Document) error
	// Update merges fields into an existing document; ErrNotFound when absent.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Delete removes a document; ErrNotFound when absent.
	Delete(ctx context.Context, collection, id string) error
	// Clear drops every document. Used by test harness resets.
	Clear(ctx context.Context) error
}
