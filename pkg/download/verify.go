package download

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// SignatureSuffix is appended to an artifact URL to locate its detached
// signature.
const SignatureSuffix = ".asc"

// Verifier checks a detached signature for an artifact before it is
// published to the store.
type Verifier interface {
	Verify(d deps.Dependency, artifact io.Reader, signature []byte) error
}

// PGPVerifier verifies armored (or binary) detached OpenPGP signatures
// against a fixed keyring.
type PGPVerifier struct {
	keyring openpgp.EntityList
}

// NewPGPVerifier reads an armored keyring.
func NewPGPVerifier(keyring io.Reader) (*PGPVerifier, error) {
	entities, err := openpgp.ReadArmoredKeyRing(keyring)
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("keyring contains no keys")
	}
	return &PGPVerifier{keyring: entities}, nil
}

// LoadPGPVerifier reads an armored keyring file, falling back to the binary
// format.
func LoadPGPVerifier(path string) (*PGPVerifier, error) {
	//nolint:gosec // G304: keyring path is user configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if v, err := NewPGPVerifier(bytes.NewReader(data)); err == nil {
		return v, nil
	}
	entities, err := openpgp.ReadKeyRing(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read keyring %s: %w", path, err)
	}
	return &PGPVerifier{keyring: entities}, nil
}

// Verify checks signature over artifact. Failures are reported as
// [errs.IntegrityError] with algorithm "pgp".
func (v *PGPVerifier) Verify(d deps.Dependency, artifact io.Reader, signature []byte) error {
	var err error
	if bytes.HasPrefix(bytes.TrimSpace(signature), []byte("-----BEGIN PGP SIGNATURE")) {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, artifact, bytes.NewReader(signature), nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, artifact, bytes.NewReader(signature), nil)
	}
	if err != nil {
		return &errs.IntegrityError{Dependency: d.String(), Algorithm: "pgp", Cause: err}
	}
	return nil
}
