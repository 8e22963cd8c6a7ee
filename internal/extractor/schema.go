package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "catalog_record.json"

// recordSchema is the contract every model output must satisfy before the
// semantic checks run.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["groups"],
  "properties": {
    "groups": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/$defs/group"}
    }
  },
  "$defs": {
    "group": {
      "type": "object",
      "required": ["name", "entries"],
      "properties": {
        "name": {"type": "string"},
        "secondary_name": {"type": ["string", "null"]},
        "description": {"type": ["string", "null"]},
        "entries": {"type": "array", "items": {"$ref": "#/$defs/entry"}}
      }
    },
    "entry": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "code": {"type": ["string", "null"]},
        "name": {"type": "string"},
        "secondary_name": {"type": ["string", "null"]},
        "description": {"type": ["string", "null"]}
      }
    }
  }
}`

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(recordSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// schemaViolations validates a decoded JSON value and flattens every leaf
// violation into a readable message.
func schemaViolations(schema *jsonschema.Schema, v interface{}) []string {
	err := schema.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var out []string
	collectLeaves(ve, &out)
	return dedupe(out)
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		*out = append(*out, fmt.Sprintf("%s: %s", instancePath(ve.InstanceLocation), ve.Message))
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

// instancePath turns a JSON pointer (/groups/0/entries/2) into groups[0].entries[2].
func instancePath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return "record"
	}
	var b strings.Builder
	for _, tok := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if tok != "" && strings.Trim(tok, "0123456789") == "" {
			b.WriteString("[" + tok + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(tok)
	}
	return b.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
