package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleRules = `{
  "collections": {
    "comments": {
      "get":  {"anyone": true},
      "list": {"anyone": true},
      "create": {"allOf": [
        {"authenticated": true},
        {"equals": {"source": "request", "field": "uid", "to": "auth"}}
      ]}
    },
    "chatMessages": {
      "create": {"allOf": [
        {"authenticated": true},
        {"contains": {
          "source": "lookup",
          "collection": "chatGroups",
          "id": {"kind": "request", "field": "chatGroupId"},
          "field": "userIds"
        }}
      ]}
    },
    "adminNotes": {
      "get": {"isTrue": {
        "source": "lookup",
        "collection": "users",
        "id": {"kind": "auth"},
        "field": "isAdmin"
      }}
    }
  }
}`

func TestParseAndEvaluate(t *testing.T) {
	rs, err := Parse(strings.NewReader(sampleRules))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"comments", "chatMessages", "adminNotes"}, rs.Collections())

	// anyone may read comments
	require.True(t, rs.Allowed(&Request{Op: OpGet, Collection: "comments", DocID: "c1"}, nil))
	// only the owner may create one
	require.True(t, rs.Allowed(&Request{
		Op: OpCreate, Collection: "comments", DocID: "c1", UID: "u1",
		NewResource: map[string]interface{}{"uid": "u1"},
	}, nil))
	require.False(t, rs.Allowed(&Request{
		Op: OpCreate, Collection: "comments", DocID: "c1", UID: "u1",
		NewResource: map[string]interface{}{"uid": "u2"},
	}, nil))
	// update was never declared
	require.False(t, rs.Allowed(&Request{
		Op: OpUpdate, Collection: "comments", DocID: "c1", UID: "u1",
		NewResource: map[string]interface{}{"uid": "u1"},
	}, nil))

	lookup := fixedLookup(map[string]map[string]interface{}{
		"chatGroups/g1": {"userIds": []interface{}{"u1"}},
		"users/admin":   {"isAdmin": true},
	})
	require.True(t, rs.Allowed(&Request{
		Op: OpCreate, Collection: "chatMessages", DocID: "m1", UID: "u1",
		NewResource: map[string]interface{}{"chatGroupId": "g1"},
	}, lookup))
	require.False(t, rs.Allowed(&Request{
		Op: OpCreate, Collection: "chatMessages", DocID: "m1", UID: "u2",
		NewResource: map[string]interface{}{"chatGroupId": "g1"},
	}, lookup))

	require.True(t, rs.Allowed(&Request{Op: OpGet, Collection: "adminNotes", DocID: "n1", UID: "admin"}, lookup))
	require.False(t, rs.Allowed(&Request{Op: OpGet, Collection: "adminNotes", DocID: "n1", UID: "u1"}, lookup))
}

func TestParseRejectsAmbiguousConditions(t *testing.T) {
	_, err := Parse(strings.NewReader(`{
  "collections": {"x": {"get": {"anyone": true, "authenticated": true}}}
}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one variant")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader(`{
  "collections": {"x": {"get": {"wildcard": true}}}
}`))
	require.Error(t, err)
}

func TestParseRejectsIncompleteLookup(t *testing.T) {
	_, err := Parse(strings.NewReader(`{
  "collections": {"x": {"get": {"isTrue": {"source": "lookup", "field": "isAdmin"}}}}
}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "lookup source requires collection and id")
}

func TestParseRejectsBadRef(t *testing.T) {
	_, err := Parse(strings.NewReader(`{
  "collections": {"x": {"create": {"equals": {"source": "request", "field": "uid", "to": "nonsense"}}}}
}`))
	require.Error(t, err)
}
