// Package validate checks inbound payloads against embedded JSON Schemas.
package validate

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "github.com/kartikbazzad/bunbase/marketplace/pkg/errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names.
const (
	RegisterBuyer  = "register_buyer"
	RegisterAgent  = "register_agent"
	RegisterSeller = "register_seller"
	CreateRequest  = "create_request"
	CreateProposal = "create_proposal"
)

// Validator holds the compiled schemas. It is safe for concurrent use.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(entries))}
	for _, e := range entries {
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("invalid json schema %s: %w", e.Name(), err)
		}
		v.schemas[strings.TrimSuffix(e.Name(), ".json")] = schema
	}
	return v, nil
}

// MustNew is New for package-level wiring and tests.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks doc against the named schema. doc is marshalled to JSON first, so
// zero-valued omitempty fields count as missing.
func (v *Validator) Validate(name string, doc interface{}) error {
	schema, ok := v.schemas[name]
	if !ok {
		return apperrors.Internal(fmt.Errorf("unknown schema %q", name))
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return apperrors.Internal(fmt.Errorf("schema validation error: %w", err))
	}
	if result.Valid() {
		return nil
	}

	var missing, invalid []string
	for _, desc := range result.Errors() {
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok {
				missing = append(missing, prop)
				continue
			}
		}
		invalid = append(invalid, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	sort.Strings(missing)
	sort.Strings(invalid)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "Missing required fields: "+strings.Join(missing, ", "))
	}
	parts = append(parts, invalid...)
	return apperrors.Validation(strings.Join(parts, "; "))
}
