package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Algorithm names a token derivation scheme.
type Algorithm string

const (
	AlgorithmSHA1       Algorithm = "sha1"
	AlgorithmHMACSHA256 Algorithm = "hmac-sha256"
	AlgorithmBLAKE2b    Algorithm = "blake2b"
)

// Algorithms lists the supported algorithm names.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmSHA1, AlgorithmHMACSHA256, AlgorithmBLAKE2b}
}

// Codec signs and verifies argument sets with one algorithm.
type Codec struct {
	algorithm Algorithm
}

// NewCodec returns a codec for algorithm. An empty name selects sha1.
func NewCodec(algorithm Algorithm) (*Codec, error) {
	if algorithm == "" {
		algorithm = AlgorithmSHA1
	}
	switch algorithm {
	case AlgorithmSHA1, AlgorithmHMACSHA256, AlgorithmBLAKE2b:
		return &Codec{algorithm: algorithm}, nil
	default:
		return nil, NewValidationError("unsupported signature algorithm: %s", algorithm)
	}
}

// Algorithm returns the codec's algorithm.
func (c *Codec) Algorithm() Algorithm {
	return c.algorithm
}

// Sign derives the token for secret and args.
func (c *Codec) Sign(secret string, args map[string]string) string {
	message := Canonical(args)

	var h hash.Hash
	switch c.algorithm {
	case AlgorithmHMACSHA256:
		h = hmac.New(sha256.New, []byte(secret))
	case AlgorithmBLAKE2b:
		h = newBLAKE2b(secret)
	default:
		h = sha1.New()
		h.Write([]byte(secret))
	}
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

// Tokens derives one token per secret, dropping duplicates and keeping the
// order of first appearance.
func (c *Codec) Tokens(secrets []string, args map[string]string) []string {
	tokens := make([]string, 0, len(secrets))
	seen := make(map[string]struct{}, len(secrets))
	for _, secret := range secrets {
		token := c.Sign(secret, args)
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// Verify reports whether provided equals the token of any candidate secret.
func (c *Codec) Verify(candidates []string, args map[string]string, provided string) bool {
	if provided == "" {
		return false
	}
	matched := false
	for _, token := range c.Tokens(candidates, args) {
		if subtle.ConstantTimeCompare([]byte(token), []byte(provided)) == 1 {
			matched = true
		}
	}
	return matched
}

// Canonical concatenates every argument name and value, names sorted.
func Canonical(args map[string]string) string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(args[name])
	}
	return b.String()
}

// newBLAKE2b returns a keyed BLAKE2b-256. Keys longer than 64 bytes are
// first reduced with an unkeyed BLAKE2b-512 so any secret length works.
func newBLAKE2b(secret string) hash.Hash {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// Unreachable: key length is bounded above.
		panic(err)
	}
	return h
}

var defaultCodec = &Codec{algorithm: AlgorithmSHA1}

// Sign derives a legacy sha1 token.
func Sign(secret string, args map[string]string) string {
	return defaultCodec.Sign(secret, args)
}

// Verify checks provided against candidates with the legacy sha1 scheme.
func Verify(candidates []string, args map[string]string, provided string) bool {
	return defaultCodec.Verify(candidates, args, provided)
}
