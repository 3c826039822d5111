package rules

// Operation is the kind of document-store access being requested.
type Operation string

const (
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Request is the full input to a policy decision: the operation, its target,
// the requester identity and the document payloads involved. An empty UID
// means the requester is unauthenticated.
type Request struct {
	Op         Operation
	Collection string
	DocID      string
	UID        string

	// Resource holds the currently stored document fields; nil when the
	// target does not exist. NewResource holds the incoming payload; nil
	// for reads and deletes.
	Resource    map[string]interface{}
	NewResource map[string]interface{}
}

// Authenticated reports whether the request carries an identity.
func (r *Request) Authenticated() bool { return r.UID != "" }

// LookupFunc reads an auxiliary document by exact path. It must be
// side-effect free; ok is false when the document is absent.
type LookupFunc func(collection, id string) (map[string]interface{}, bool)

// Condition is one boolean predicate over a request. Every variant is
// fail-closed: missing documents, missing fields and type mismatches
// evaluate to false, never to an error.
type Condition interface {
	Holds(req *Request, lookup LookupFunc) bool
}

// SourceKind selects which document a condition reads its field from.
type SourceKind string

const (
	// FromRequest reads the incoming payload.
	FromRequest SourceKind = "request"
	// FromResource reads the stored document.
	FromResource SourceKind = "resource"
	// FromLookup reads an auxiliary document resolved through LookupFunc.
	FromLookup SourceKind = "lookup"
)

// Source names the document a condition inspects. Collection and ID are only
// meaningful for FromLookup; the id is derived from the request, never from
// a scan.
type Source struct {
	Kind       SourceKind
	Collection string
	ID         Ref
}

func (s Source) fields(req *Request, lookup LookupFunc) (map[string]interface{}, bool) {
	switch s.Kind {
	case FromRequest:
		return req.NewResource, req.NewResource != nil
	case FromResource:
		return req.Resource, req.Resource != nil
	case FromLookup:
		if lookup == nil {
			return nil, false
		}
		id, ok := s.ID.resolve(req)
		if !ok || id == "" {
			return nil, false
		}
		return lookup(s.Collection, id)
	}
	return nil, false
}

// RefKind selects where a referenced string value comes from.
type RefKind string

const (
	// RefAuthUID resolves to the requester uid.
	RefAuthUID RefKind = "auth"
	// RefRequestField resolves to a string field of the incoming payload.
	RefRequestField RefKind = "request"
	// RefResourceField resolves to a string field of the stored document.
	RefResourceField RefKind = "resource"
)

// Ref is a request-derived string value, used for equality targets and for
// auxiliary lookup ids.
type Ref struct {
	Kind  RefKind
	Field string
}

func (r Ref) resolve(req *Request) (string, bool) {
	switch r.Kind {
	case RefAuthUID:
		return req.UID, req.UID != ""
	case RefRequestField:
		return stringField(req.NewResource, r.Field)
	case RefResourceField:
		return stringField(req.Resource, r.Field)
	}
	return "", false
}

func stringField(fields map[string]interface{}, name string) (string, bool) {
	if fields == nil {
		return "", false
	}
	v, ok := fields[name].(string)
	return v, ok && v != ""
}

// Anyone allows every requester, authenticated or not.
type Anyone struct{}

func (Anyone) Holds(*Request, LookupFunc) bool { return true }

// Authenticated requires a signed-in requester.
type Authenticated struct{}

func (Authenticated) Holds(req *Request, _ LookupFunc) bool { return req.Authenticated() }

// AllOf is a conjunction; it short-circuits on the first failing condition.
// An empty conjunction holds.
type AllOf []Condition

func (c AllOf) Holds(req *Request, lookup LookupFunc) bool {
	for _, cond := range c {
		if !cond.Holds(req, lookup) {
			return false
		}
	}
	return true
}

// Equals requires a string field of the source document to exactly equal the
// referenced value. Ownership checks are Equals against RefAuthUID.
type Equals struct {
	From  Source
	Field string
	To    Ref
}

func (c Equals) Holds(req *Request, lookup LookupFunc) bool {
	fields, ok := c.From.fields(req, lookup)
	if !ok {
		return false
	}
	got, ok := stringField(fields, c.Field)
	if !ok {
		return false
	}
	want, ok := c.To.resolve(req)
	return ok && got == want
}

// Contains requires a list field of the source document to contain the
// requester uid. Membership is order-insensitive.
type Contains struct {
	From  Source
	Field string
}

func (c Contains) Holds(req *Request, lookup LookupFunc) bool {
	if !req.Authenticated() {
		return false
	}
	fields, ok := c.From.fields(req, lookup)
	if !ok {
		return false
	}
	switch list := fields[c.Field].(type) {
	case []string:
		for _, v := range list {
			if v == req.UID {
				return true
			}
		}
	case []interface{}:
		for _, v := range list {
			if s, ok := v.(string); ok && s == req.UID {
				return true
			}
		}
	}
	return false
}

// IsTrue requires a boolean field of the source document to be true.
type IsTrue struct {
	From  Source
	Field string
}

func (c IsTrue) Holds(req *Request, lookup LookupFunc) bool {
	fields, ok := c.From.fields(req, lookup)
	if !ok {
		return false
	}
	v, ok := fields[c.Field].(bool)
	return ok && v
}

// CollectionRule holds the per-operation conditions for one collection.
// A nil condition denies the operation.
type CollectionRule struct {
	Get    Condition
	List   Condition
	Create Condition
	Update Condition
	Delete Condition
}

func (r CollectionRule) condition(op Operation) Condition {
	switch op {
	case OpGet:
		return r.Get
	case OpList:
		return r.List
	case OpCreate:
		return r.Create
	case OpUpdate:
		return r.Update
	case OpDelete:
		return r.Delete
	}
	return nil
}

// RuleSet maps collection names to their rules. Collections without a
// declared rule deny every operation; this default-deny is the evaluator's
// base case, not a convention of individual rules.
type RuleSet struct {
	collections map[string]CollectionRule
}

// NewRuleSet returns an empty, deny-everything rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{collections: make(map[string]CollectionRule)}
}

// Declare binds a rule to a collection, replacing any previous rule.
func (rs *RuleSet) Declare(collection string, rule CollectionRule) {
	rs.collections[collection] = rule
}

// Collections returns the names of declared collections.
func (rs *RuleSet) Collections() []string {
	out := make([]string, 0, len(rs.collections))
	for name := range rs.collections {
		out = append(out, name)
	}
	return out
}

// Allowed evaluates the rule set against one request. It is a pure function
// of the request and whatever documents lookup returns.
func (rs *RuleSet) Allowed(req *Request, lookup LookupFunc) bool {
	rule, ok := rs.collections[req.Collection]
	if !ok {
		return false
	}
	cond := rule.condition(req.Op)
	if cond == nil {
		return false
	}
	return cond.Holds(req, lookup)
}
