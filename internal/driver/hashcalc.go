package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"spvregular/internal/regularize"
	"spvregular/internal/version"
)

// Digest is a SHA-256 sum.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// combineDigest: H(content || part1 || part2 ...). parts must come in a fixed order.
func combineDigest(content Digest, parts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, p := range parts {
		_, _ = h.Write(p[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func contentDigest(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// optionsDigest covers everything besides the input that changes the output
// bytes of a run: the tool version and the pass name handed to the verifier.
func optionsDigest(opts regularize.Options) Digest {
	name := opts.PassName
	if name == "" {
		name = regularize.PassName
	}
	return contentDigest(fmt.Appendf(nil, "%s\x00%s\x00schema=%d", version.Version, name, diskCacheSchemaVersion))
}

// CacheKey is the disk cache key of regularizing data with opts.
func CacheKey(data []byte, opts regularize.Options) Digest {
	return combineDigest(contentDigest(data), optionsDigest(opts))
}
