package service

import (
	"context"
	"errors"

	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/internal/document/repository"
	"github.com/docgate/docgate/internal/rules"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/google/uuid"
)

// Identity is the requester on whose behalf an operation runs. The zero
// value is the unauthenticated requester.
type Identity struct {
	UID string
}

// Anonymous is the unauthenticated requester.
var Anonymous = Identity{}

// Service is the rule-enforced document store. Every operation builds a
// rules request, evaluates the bound rule set and only then touches the
// repository. A deny is always document.ErrPermissionDenied with no partial
// effect.
type Service interface {
	Get(ctx context.Context, ident Identity, collection, id string) (*document.Document, error)
	List(ctx context.Context, ident Identity, collection string, q *document.Query) ([]*document.Document, error)
	// Add creates a document under a generated id.
	Add(ctx context.Context, ident Identity, collection string, fields map[string]interface{}) (string, error)
	// Set creates or replaces; rule-wise it counts as create when the target
	// is absent and as update when it exists.
	Set(ctx context.Context, ident Identity, collection, id string, fields map[string]interface{}) error
	Update(ctx context.Context, ident Identity, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, ident Identity, collection, id string) error
}

// New binds a repository to a rule set.
func New(repo repository.Repository, rs *rules.RuleSet) Service {
	return &guardedService{repo: repo, rules: rs}
}

type guardedService struct {
	repo  repository.Repository
	rules *rules.RuleSet
}

// lookup adapts the repository to the read-only auxiliary lookups the rule
// evaluator may issue. Lookup failures count as absent: fail closed.
func (s *guardedService) lookup(ctx context.Context) rules.LookupFunc {
	return func(collection, id string) (map[string]interface{}, bool) {
		d, err := s.repo.Get(ctx, collection, id)
		if err != nil {
			return nil, false
		}
		return d.Fields, true
	}
}

func (s *guardedService) decide(ctx context.Context, req *rules.Request) error {
	allowed := s.rules.Allowed(req, s.lookup(ctx))
	metrics.PolicyDecision(req.Collection, string(req.Op), allowed)
	if !allowed {
		return document.ErrPermissionDenied
	}
	return nil
}

func (s *guardedService) Get(ctx context.Context, ident Identity, collection, id string) (*document.Document, error) {
	existing, err := s.repo.Get(ctx, collection, id)
	if err != nil && !errors.Is(err, document.ErrNotFound) {
		return nil, err
	}
	req := &rules.Request{Op: rules.OpGet, Collection: collection, DocID: id, UID: ident.UID}
	if existing != nil {
		req.Resource = existing.Fields
	}
	if err := s.decide(ctx, req); err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, document.ErrNotFound
	}
	return existing, nil
}

func (s *guardedService) List(ctx context.Context, ident Identity, collection string, q *document.Query) ([]*document.Document, error) {
	docs, err := s.repo.List(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	// The predicate must hold for every candidate before anything is
	// returned: one denied document fails the whole query.
	for _, d := range docs {
		req := &rules.Request{
			Op: rules.OpList, Collection: collection, DocID: d.ID,
			UID: ident.UID, Resource: d.Fields,
		}
		if err := s.decide(ctx, req); err != nil {
			return nil, err
		}
	}
	if len(docs) == 0 {
		// An empty result still requires the collection to be listable at all.
		req := &rules.Request{Op: rules.OpList, Collection: collection, UID: ident.UID}
		if err := s.decide(ctx, req); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (s *guardedService) Add(ctx context.Context, ident Identity, collection string, fields map[string]interface{}) (string, error) {
	id := uuid.NewString()
	req := &rules.Request{
		Op: rules.OpCreate, Collection: collection, DocID: id,
		UID: ident.UID, NewResource: fields,
	}
	if err := s.decide(ctx, req); err != nil {
		return "", err
	}
	d := &document.Document{Collection: collection, ID: id, Fields: fields}
	if err := s.repo.Set(ctx, d); err != nil {
		return "", err
	}
	return d.ID, nil
}

func (s *guardedService) Set(ctx context.Context, ident Identity, collection, id string, fields map[string]interface{}) error {
	existing, err := s.repo.Get(ctx, collection, id)
	if err != nil && !errors.Is(err, document.ErrNotFound) {
		return err
	}
	req := &rules.Request{
		Op: rules.OpCreate, Collection: collection, DocID: id,
		UID: ident.UID, NewResource: fields,
	}
	if existing != nil {
		req.Op = rules.OpUpdate
		req.Resource = existing.Fields
	}
	if err := s.decide(ctx, req); err != nil {
		return err
	}
	return s.repo.Set(ctx, &document.Document{Collection: collection, ID: id, Fields: fields})
}

func (s *guardedService) Update(ctx context.Context, ident Identity, collection, id string, fields map[string]interface{}) error {
	existing, err := s.repo.Get(ctx, collection, id)
	if err != nil && !errors.Is(err, document.ErrNotFound) {
		return err
	}
	req := &rules.Request{
		Op: rules.OpUpdate, Collection: collection, DocID: id,
		UID: ident.UID, NewResource: fields,
	}
	if existing != nil {
		req.Resource = existing.Fields
	}
	// Rules first: a denied update reports permission-denied even when the
	// target is missing, so callers can't probe for existence.
	if err := s.decide(ctx, req); err != nil {
		return err
	}
	if existing == nil {
		return document.ErrNotFound
	}
	return s.repo.Update(ctx, collection, id, fields)
}

func (s *guardedService) Delete(ctx context.Context, ident Identity, collection, id string) error {
	existing, err := s.repo.Get(ctx, collection, id)
	if err != nil && !errors.Is(err, document.ErrNotFound) {
		return err
	}
	req := &rules.Request{Op: rules.OpDelete, Collection: collection, DocID: id, UID: ident.UID}
	if existing != nil {
		req.Resource = existing.Fields
	}
	if err := s.decide(ctx, req); err != nil {
		return err
	}
	if existing == nil {
		return document.ErrNotFound
	}
	return s.repo.Delete(ctx, collection, id)
}
