package cas

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"lukechampine.com/blake3"
)

// HashAlgo selects the function Store uses for its internal
// content_hash (used for dedup and chunk-catalog keys). It is
// independent of the Git object hash the OID itself is computed with.
type HashAlgo string

const (
	// HashAlgoSHA256 is the default content-hash algorithm.
	HashAlgoSHA256 HashAlgo = "sha256"
	// HashAlgoBLAKE3 is the faster alternate content-hash algorithm.
	HashAlgoBLAKE3 HashAlgo = "blake3"
)

func (a HashAlgo) newHasher() (hash.Hash, error) {
	switch a {
	case "", HashAlgoSHA256:
		return sha256.New(), nil
	case HashAlgoBLAKE3:
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("cas: unknown hash algo %q", a)
	}
}

// contentHash hashes bytes with algo and returns the hex digest, used as
// the dedup and chunk-catalog key.
func contentHash(algo HashAlgo, data []byte) (string, error) {
	h, err := algo.newHasher()
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// gitOID computes the standard Git object hash for content of the given
// kind: H("<kind> <len>\0" + content), hex-encoded, where H is sha1 by
// default. This is the caller-facing identifier Store.store returns,
// distinct from the internal content_hash used for dedup.
func gitOID(kind string, content []byte) string {
	return gitOIDWithHasher(sha1.New(), kind, content)
}

// gitOIDWithHasher computes the object hash using h. Its only caller,
// gitOID, passes sha1; no configuration key selects another hasher.
func gitOIDWithHasher(h hash.Hash, kind string, content []byte) string {
	h.Reset()
	fmt.Fprintf(h, "%s %d\x00", kind, len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
