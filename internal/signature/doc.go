// Package signature derives and checks request signatures.
//
// A signature proves knowledge of a source's secret combined with the exact
// request arguments. The canonical input is the secret followed by every
// argument name and value, with names in sorted order:
//
//	secret + name1 + value1 + name2 + value2 + ...
//
// Sorting makes the input independent of how arguments were transmitted.
// The input is hashed and hex encoded.
//
// # Algorithms
//
//   - sha1 (default): SHA-1 over the whole canonical input. This is the
//     legacy scheme and what existing clients compute.
//   - hmac-sha256: HMAC-SHA256 keyed with the secret over the name/value
//     part of the canonical input.
//   - blake2b: keyed BLAKE2b-256, same split as hmac-sha256.
//
// The protocol shape (sorted input, hex token, any-key-matches) is the same
// for every algorithm.
//
// # Usage
//
//	codec, err := signature.NewCodec(signature.AlgorithmSHA1)
//	token := codec.Sign("secret", map[string]string{"b": "2", "a": "1"})
//	ok := codec.Verify([]string{"old", "secret"}, args, token)
//
// # Security Considerations
//
//   - Tokens are compared in constant time.
//   - SHA-1 is kept for compatibility; prefer a keyed algorithm for new
//     deployments.
package signature
