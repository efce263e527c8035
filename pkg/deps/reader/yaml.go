package reader

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/slimdeps/pkg/deps"
)

// YAML reads manifests written as YAML documents. Only the first document
// in the stream is read.
type YAML struct{}

// Format returns "yaml".
func (YAML) Format() string { return "yaml" }

// Read decodes a YAML manifest. Unknown fields are rejected.
func (YAML) Read(r io.Reader) (*deps.Data, error) {
	var data deps.Data
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("yaml", errors.New("empty document"))
		}
		return nil, invalid("yaml", err)
	}
	return finish(&data)
}
