// Command rulescheck evaluates a rule file against a single described
// request and exits 0 when allowed, 1 when denied. Useful for sanity
// checking a rules change before deploying it:
//
//	rulescheck -rules rules.json -op create -collection comments \
//	    -uid alice -new '{"uid":"alice","text":"hi"}'
//
// Auxiliary lookups read from an optional seed file shaped as
// {"collection": {"id": {fields...}}}.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/docgate/docgate/internal/rules"
)

func main() {
	var (
		rulesFile  = flag.String("rules", "", "rules file (empty: built-in rule set)")
		seedFile   = flag.String("seed", "", "optional seed documents for lookups")
		op         = flag.String("op", "get", "operation: get|list|create|update|delete")
		collection = flag.String("collection", "", "target collection")
		docID      = flag.String("id", "", "target document id")
		uid        = flag.String("uid", "", "requester uid (empty: unauthenticated)")
		resource   = flag.String("resource", "", "existing document fields as JSON")
		newDoc     = flag.String("new", "", "incoming document fields as JSON")
	)
	flag.Parse()

	if *collection == "" {
		fmt.Fprintln(os.Stderr, "rulescheck: -collection is required")
		os.Exit(2)
	}

	rs, err := loadRules(*rulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rulescheck: %v\n", err)
		os.Exit(2)
	}
	lookup, err := loadSeed(*seedFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rulescheck: %v\n", err)
		os.Exit(2)
	}

	req := &rules.Request{
		Op:         rules.Operation(*op),
		Collection: *collection,
		DocID:      *docID,
		UID:        *uid,
	}
	if req.Resource, err = parseFields(*resource); err != nil {
		fmt.Fprintf(os.Stderr, "rulescheck: bad -resource: %v\n", err)
		os.Exit(2)
	}
	if req.NewResource, err = parseFields(*newDoc); err != nil {
		fmt.Fprintf(os.Stderr, "rulescheck: bad -new: %v\n", err)
		os.Exit(2)
	}

	if rs.Allowed(req, lookup) {
		fmt.Println("ALLOW")
		return
	}
	fmt.Println("DENY")
	os.Exit(1)
}

func loadRules(path string) (*rules.RuleSet, error) {
	if path == "" {
		return rules.Default(), nil
	}
	return rules.ParseFile(path)
}

func loadSeed(path string) (rules.LookupFunc, error) {
	if path == "" {
		return func(string, string) (map[string]interface{}, bool) { return nil, false }, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed map[string]map[string]map[string]interface{}
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return func(collection, id string) (map[string]interface{}, bool) {
		fields, ok := seed[collection][id]
		return fields, ok
	}, nil
}

func parseFields(s string) (map[string]interface{}, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
