package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Rule files are JSON mirroring the condition types one-to-one:
//
//	{
//	  "collections": {
//	    "comments": {
//	      "get":  {"anyone": true},
//	      "list": {"anyone": true},
//	      "create": {"allOf": [
//	        {"authenticated": true},
//	        {"equals": {"source": "request", "field": "uid", "to": "auth"}}
//	      ]}
//	    }
//	  }
//	}
//
// Undeclared collections and operations deny, exactly as with rule sets
// built in code.

type ruleFile struct {
	Collections map[string]collectionSpec `json:"collections"`
}

type collectionSpec struct {
	Get    *condSpec `json:"get,omitempty"`
	List   *condSpec `json:"list,omitempty"`
	Create *condSpec `json:"create,omitempty"`
	Update *condSpec `json:"update,omitempty"`
	Delete *condSpec `json:"delete,omitempty"`
}

type condSpec struct {
	Anyone        bool       `json:"anyone,omitempty"`
	Authenticated bool       `json:"authenticated,omitempty"`
	AllOf         []condSpec `json:"allOf,omitempty"`
	Equals        *fieldSpec `json:"equals,omitempty"`
	Contains      *fieldSpec `json:"contains,omitempty"`
	IsTrue        *fieldSpec `json:"isTrue,omitempty"`
}

type fieldSpec struct {
	Source     string   `json:"source"`
	Collection string   `json:"collection,omitempty"`
	ID         *refSpec `json:"id,omitempty"`
	Field      string   `json:"field"`
	To         string   `json:"to,omitempty"`
}

type refSpec struct {
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

// ParseFile loads a rule set from a JSON rule file on disk.
func ParseFile(path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()
	rs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return rs, nil
}

// Parse reads a JSON rule file. Unknown condition shapes are an error rather
// than a silent allow or deny.
func Parse(r io.Reader) (*RuleSet, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var file ruleFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	rs := NewRuleSet()
	for name, spec := range file.Collections {
		rule := CollectionRule{}
		for op, cs := range map[Operation]*condSpec{
			OpGet: spec.Get, OpList: spec.List, OpCreate: spec.Create,
			OpUpdate: spec.Update, OpDelete: spec.Delete,
		} {
			if cs == nil {
				continue
			}
			cond, err := cs.condition()
			if err != nil {
				return nil, fmt.Errorf("collection %q, %s: %w", name, op, err)
			}
			switch op {
			case OpGet:
				rule.Get = cond
			case OpList:
				rule.List = cond
			case OpCreate:
				rule.Create = cond
			case OpUpdate:
				rule.Update = cond
			case OpDelete:
				rule.Delete = cond
			}
		}
		rs.Declare(name, rule)
	}
	return rs, nil
}

func (cs *condSpec) condition() (Condition, error) {
	set := 0
	if cs.Anyone {
		set++
	}
	if cs.Authenticated {
		set++
	}
	if cs.AllOf != nil {
		set++
	}
	if cs.Equals != nil {
		set++
	}
	if cs.Contains != nil {
		set++
	}
	if cs.IsTrue != nil {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("condition must have exactly one variant, got %d", set)
	}

	switch {
	case cs.Anyone:
		return Anyone{}, nil
	case cs.Authenticated:
		return Authenticated{}, nil
	case cs.AllOf != nil:
		conj := make(AllOf, 0, len(cs.AllOf))
		for i := range cs.AllOf {
			cond, err := cs.AllOf[i].condition()
			if err != nil {
				return nil, fmt.Errorf("allOf[%d]: %w", i, err)
			}
			conj = append(conj, cond)
		}
		return conj, nil
	case cs.Equals != nil:
		src, err := cs.Equals.source()
		if err != nil {
			return nil, err
		}
		to, err := parseRef(&refSpec{Kind: cs.Equals.To})
		if err != nil {
			return nil, fmt.Errorf("equals target: %w", err)
		}
		if cs.Equals.Field == "" {
			return nil, fmt.Errorf("equals requires a field")
		}
		return Equals{From: src, Field: cs.Equals.Field, To: to}, nil
	case cs.Contains != nil:
		src, err := cs.Contains.source()
		if err != nil {
			return nil, err
		}
		if cs.Contains.Field == "" {
			return nil, fmt.Errorf("contains requires a field")
		}
		return Contains{From: src, Field: cs.Contains.Field}, nil
	default:
		src, err := cs.IsTrue.source()
		if err != nil {
			return nil, err
		}
		if cs.IsTrue.Field == "" {
			return nil, fmt.Errorf("isTrue requires a field")
		}
		return IsTrue{From: src, Field: cs.IsTrue.Field}, nil
	}
}

func (fs *fieldSpec) source() (Source, error) {
	switch SourceKind(fs.Source) {
	case FromRequest:
		return Source{Kind: FromRequest}, nil
	case FromResource:
		return Source{Kind: FromResource}, nil
	case FromLookup:
		if fs.Collection == "" || fs.ID == nil {
			return Source{}, fmt.Errorf("lookup source requires collection and id")
		}
		id, err := parseRef(fs.ID)
		if err != nil {
			return Source{}, fmt.Errorf("lookup id: %w", err)
		}
		return Source{Kind: FromLookup, Collection: fs.Collection, ID: id}, nil
	}
	return Source{}, fmt.Errorf("unknown source %q", fs.Source)
}

func parseRef(rs *refSpec) (Ref, error) {
	switch RefKind(rs.Kind) {
	case RefAuthUID:
		return Ref{Kind: RefAuthUID}, nil
	case RefRequestField, RefResourceField:
		if rs.Field == "" {
			return Ref{}, fmt.Errorf("%s ref requires a field", rs.Kind)
		}
		return Ref{Kind: RefKind(rs.Kind), Field: rs.Field}, nil
	}
	return Ref{}, fmt.Errorf("unknown ref kind %q", rs.Kind)
}
