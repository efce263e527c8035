package reader

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/slimdeps/pkg/deps"
)

// TOML reads manifests written as TOML tables:
//
//	[[repositories]]
//	url = "https://repo1.maven.org/maven2/"
//
//	[[dependencies]]
//	group = "com.google.code.gson"
//	artifact = "gson"
//	version = "2.10.1"
type TOML struct{}

// Format returns "toml".
func (TOML) Format() string { return "toml" }

// Read decodes a TOML manifest. Unknown keys are rejected.
func (TOML) Read(r io.Reader) (*deps.Data, error) {
	var data deps.Data
	md, err := toml.NewDecoder(r).Decode(&data)
	if err != nil {
		return nil, invalid("toml", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, invalid("toml", fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")))
	}
	return finish(&data)
}
