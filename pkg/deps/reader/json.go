package reader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/matzehuels/slimdeps/pkg/deps"
)

//go:embed schema.json
var schemaSource string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func manifestSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("slimdeps.schema.json", schemaSource)
	})
	return schema, schemaErr
}

// JSON reads slimdeps.json manifests.
type JSON struct{}

// Format returns "json".
func (JSON) Format() string { return "json" }

// Read validates the document against the manifest schema and decodes it.
func (JSON) Read(r io.Reader) (*deps.Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	sch, err := manifestSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, invalid("json", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, invalid("json", err)
	}

	var data deps.Data
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return nil, invalid("json", err)
	}
	return finish(&data)
}

// Write encodes data as an indented slimdeps.json document.
func (JSON) Write(w io.Writer, data *deps.Data) error {
	out := *data
	if out.Repositories == nil {
		out.Repositories = []deps.Repository{}
	}
	if out.Dependencies == nil {
		out.Dependencies = []deps.Dependency{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&out)
}
