package rulestest

import (
	"context"
	"errors"
	"testing"

	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/internal/document/repository"
	"github.com/docgate/docgate/internal/document/service"
	"github.com/docgate/docgate/internal/rules"
)

// Config describes a rules test environment. The zero value gets a generated
// project id and the built-in demo rule set.
type Config struct {
	// ProjectID isolates environments that run in the same process. Purely
	// informational for in-memory backends.
	ProjectID string
	// Rules is the rule set under test. Defaults to rules.Default().
	Rules *rules.RuleSet
}

// Env is an isolated rules test environment: a fresh in-memory store bound
// to the rule set under test, plus per-identity clients and a rules-bypass
// channel for seeding fixtures.
type Env struct {
	projectID string
	repo      repository.Repository
	svc       service.Service
}

// New builds a test environment. The environment needs no teardown beyond
// garbage collection; Clear resets the store between cases.
func New(t *testing.T, cfg Config) *Env {
	t.Helper()
	if cfg.ProjectID == "" {
		cfg.ProjectID = "rulestest-" + t.Name()
	}
	rs := cfg.Rules
	if rs == nil {
		rs = rules.Default()
	}
	repo := repository.NewMemoryRepo()
	return &Env{
		projectID: cfg.ProjectID,
		repo:      repo,
		svc:       service.New(repo, rs),
	}
}

// ProjectID reports the environment's project id.
func (e *Env) ProjectID() string { return e.projectID }

// AsUser returns a client whose operations run as the given uid.
func (e *Env) AsUser(uid string) *Client {
	return &Client{env: e, ident: service.Identity{UID: uid}}
}

// AsUnauthenticated returns a client with no identity.
func (e *Env) AsUnauthenticated() *Client {
	return &Client{env: e, ident: service.Anonymous}
}

// WithRulesBypassed hands fn direct repository access with no rule
// evaluation, for seeding and inspecting state the rules would forbid.
func (e *Env) WithRulesBypassed(fn func(repository.Repository)) {
	fn(e.repo)
}

// Clear drops every document in the environment.
func (e *Env) Clear(t *testing.T) {
	t.Helper()
	if err := e.repo.Clear(context.Background()); err != nil {
		t.Fatalf("clear store: %v", err)
	}
}

// Client issues document operations as one fixed identity against the
// environment's rule-enforced store.
type Client struct {
	env   *Env
	ident service.Identity
}

func (c *Client) Get(ctx context.Context, collection, id string) (*document.Document, error) {
	return c.env.svc.Get(ctx, c.ident, collection, id)
}

func (c *Client) List(ctx context.Context, collection string, q *document.Query) ([]*document.Document, error) {
	return c.env.svc.List(ctx, c.ident, collection, q)
}

func (c *Client) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	return c.env.svc.Add(ctx, c.ident, collection, fields)
}

func (c *Client) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return c.env.svc.Set(ctx, c.ident, collection, id, fields)
}

func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return c.env.svc.Update(ctx, c.ident, collection, id, fields)
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.env.svc.Delete(ctx, c.ident, collection, id)
}

// RequireAllowed fails the test unless err is nil.
func RequireAllowed(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected operation to be allowed, got %v", err)
	}
}

// RequireDenied fails the test unless err is exactly a permission denial.
// A not-found or transport error is a test failure, not a pass: denials
// must be distinguishable from other outcomes.
func RequireDenied(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected permission denied, operation succeeded")
	}
	if !errors.Is(err, document.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}
