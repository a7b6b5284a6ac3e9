// Package jsonio provides a JSON import/export adapter for relation tuples,
// validated against an embedded JSON Schema before being handed to the
// Service. This performs no namespace/relation resolution itself — that
// remains the Service's job, lazily, at check/expand time.
package jsonio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
	"github.com/Mindburn-Labs/zanzibar/pkg/authz/fixture"
)

const tuplesSchemaText = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["tuples"],
  "properties": {
    "tuples": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["object", "relation", "user"],
        "properties": {
          "object":   {"type": "string", "minLength": 1},
          "relation": {"type": "string", "minLength": 1},
          "user":     {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

const tuplesSchemaURL = "https://zanzibar.local/schemas/tuples.schema.json"

var tuplesSchema = mustCompile(tuplesSchemaURL, tuplesSchemaText)

func mustCompile(url, text string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(text)); err != nil {
		panic(fmt.Sprintf("jsonio: invalid embedded schema: %v", err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("jsonio: schema compile failed: %v", err))
	}
	return compiled
}

// tupleDoc is the wire shape of one tuple: "namespace:id" object notation
// and "namespace:id#relation" userset notation, mirroring pkg/authz/fixture.
type tupleDoc struct {
	Object   string `json:"object"`
	Relation string `json:"relation"`
	User     string `json:"user"`
}

type tuplesDoc struct {
	Tuples []tupleDoc `json:"tuples"`
}

// ImportTuples validates data against the embedded schema, then parses it
// into RelationTuples.
func ImportTuples(data []byte) ([]authz.RelationTuple, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("jsonio: invalid json: %w", err)
	}
	if err := tuplesSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("jsonio: schema validation: %w", err)
	}

	var doc tuplesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonio: decode: %w", err)
	}

	tuples := make([]authz.RelationTuple, 0, len(doc.Tuples))
	for i, t := range doc.Tuples {
		object, err := fixture.ParseObject(t.Object)
		if err != nil {
			return nil, fmt.Errorf("jsonio: tuples[%d]: %w", i, err)
		}
		user, err := fixture.ParseUser(t.User)
		if err != nil {
			return nil, fmt.Errorf("jsonio: tuples[%d]: %w", i, err)
		}
		tuples = append(tuples, authz.RelationTuple{Object: object, Relation: authz.Relation(t.Relation), User: user})
	}
	return tuples, nil
}

// ExportTuples serializes tuples into the same schema-validated JSON shape
// ImportTuples accepts.
func ExportTuples(tuples []authz.RelationTuple) ([]byte, error) {
	doc := tuplesDoc{Tuples: make([]tupleDoc, len(tuples))}
	for i, t := range tuples {
		doc.Tuples[i] = tupleDoc{
			Object:   t.Object.String(),
			Relation: string(t.Relation),
			User:     t.User.String(),
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}
