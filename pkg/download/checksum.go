package download

import (
	"crypto/md5"  //nolint:gosec // legacy repositories still publish md5 sidecars
	"crypto/sha1" //nolint:gosec // Maven Central publishes sha1 sidecars
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// Checksum is an expected digest of an artifact.
type Checksum struct {
	Algorithm string // md5, sha1, sha256 or sha512
	Hex       string // lower-case hex digest
}

// IsZero reports whether no checksum is set.
func (c Checksum) IsZero() bool { return c.Hex == "" }

// String returns "algorithm:hex".
func (c Checksum) String() string { return c.Algorithm + ":" + c.Hex }

var digestLengths = map[int]string{
	32:  "md5",
	40:  "sha1",
	64:  "sha256",
	128: "sha512",
}

// ParseChecksum parses "algorithm:hex" or a bare hex digest whose length
// implies the algorithm. An empty string yields the zero Checksum.
func ParseChecksum(s string) (Checksum, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Checksum{}, nil
	}
	alg, digest, found := strings.Cut(s, ":")
	if !found {
		digest = s
		alg = digestLengths[len(digest)]
		if alg == "" {
			return Checksum{}, errs.New(errs.ErrCodeInvalidManifest, "cannot infer checksum algorithm from %d hex characters", len(digest))
		}
	}
	alg = strings.ToLower(strings.ReplaceAll(alg, "-", ""))
	digest = strings.ToLower(digest)

	if _, err := newHash(alg); err != nil {
		return Checksum{}, err
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return Checksum{}, errs.Wrap(errs.ErrCodeInvalidManifest, err, "checksum %q is not hex", s)
	}
	if want, ok := digestLengths[len(digest)]; !ok || want != alg {
		return Checksum{}, errs.New(errs.ErrCodeInvalidManifest, "checksum length does not match %s", alg)
	}
	return Checksum{Algorithm: alg, Hex: digest}, nil
}

// parseSidecar reads the digest from a .sha1/.sha256 sidecar file. Sidecars
// may contain the digest followed by a file name.
func parseSidecar(alg string, data []byte) (Checksum, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return Checksum{}, fmt.Errorf("empty %s sidecar", alg)
	}
	return ParseChecksum(alg + ":" + fields[0])
}

func newHash(alg string) (hash.Hash, error) {
	switch alg {
	case "md5":
		return md5.New(), nil //nolint:gosec
	case "sha1":
		return sha1.New(), nil //nolint:gosec
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported checksum algorithm %q", alg)
	}
}

// FileChecksum computes the digest of the file at path.
func FileChecksum(path, alg string) (Checksum, error) {
	h, err := newHash(alg)
	if err != nil {
		return Checksum{}, err
	}
	//nolint:gosec // G304: path is inside the artifact store
	f, err := os.Open(path)
	if err != nil {
		return Checksum{}, err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return Checksum{}, err
	}
	return Checksum{Algorithm: alg, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}
