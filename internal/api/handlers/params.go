package handlers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

//go:embed save_schema.json
var saveSchemaJSON []byte

func compileSaveSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("save_schema.json", bytes.NewReader(saveSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("save_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateJSON checks raw against schema before it is decoded into a
// typed request.
func validateJSON(schema *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("request does not match schema: %w", err)
	}
	return nil
}

// dateParam parses an optional YYYY-MM-DD query parameter.
func dateParam(q url.Values, name string) (*civil.Date, error) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: expected YYYY-MM-DD", name)
	}
	return &d, nil
}

// limitParam parses an optional positive limit, capped at max.
func limitParam(q url.Values, name string, def, max int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: expected a positive integer", name)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
