package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign_KnownVectors(t *testing.T) {
	args := map[string]string{"b": "2", "a": "1"}

	tests := []struct {
		algorithm Algorithm
		want      string
	}{
		{AlgorithmSHA1, "7996bf123512dad342791516ba19e4ecbba216f3"},
		{AlgorithmHMACSHA256, "612aa7a58c61f4149be543976824709c309687349368ad1f734bcacdd020b43c"},
		{AlgorithmBLAKE2b, "3bec26e3cc4040c8c5115303f870516cb9fd77246d5273b1da6b1e7365c5f276"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			codec, err := NewCodec(tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, codec.Sign("k", args))
		})
	}
}

func TestSign_PackageLevelIsSHA1(t *testing.T) {
	assert.Equal(t, "7996bf123512dad342791516ba19e4ecbba216f3", Sign("k", map[string]string{"a": "1", "b": "2"}))
	assert.Equal(t, "13fbd79c3d390e5d6585a21e11ff5ec1970cff0c", Sign("k", nil), "no arguments signs the key alone")
}

func TestSign_OrderIndependent(t *testing.T) {
	names := []string{"zeta", "alpha", "mid", "beta", "omega"}

	for _, algorithm := range Algorithms() {
		codec, err := NewCodec(algorithm)
		require.NoError(t, err)

		var reference string
		for shift := 0; shift < len(names); shift++ {
			args := make(map[string]string, len(names))
			for i := range names {
				name := names[(i+shift)%len(names)]
				args[name] = strings.ToUpper(name)
			}
			token := codec.Sign("secret", args)
			if reference == "" {
				reference = token
			}
			assert.Equal(t, reference, token, "algorithm %s", algorithm)
		}
	}
}

func TestSign_ValueChangeAltersToken(t *testing.T) {
	base := Sign("k", map[string]string{"a": "1", "b": "2"})
	assert.NotEqual(t, base, Sign("k", map[string]string{"a": "1", "b": "3"}))
	assert.NotEqual(t, base, Sign("other", map[string]string{"a": "1", "b": "2"}))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "a1b2c3", Canonical(map[string]string{"c": "3", "a": "1", "b": "2"}))
	assert.Equal(t, "", Canonical(nil))
}

func TestVerify(t *testing.T) {
	args := map[string]string{"id": "42"}
	token := Sign("second", args)

	tests := []struct {
		name       string
		candidates []string
		provided   string
		want       bool
	}{
		{"any key matches", []string{"first", "second"}, token, true},
		{"no key matches", []string{"first", "third"}, token, false},
		{"no candidates", nil, token, false},
		{"empty signature", []string{"second"}, "", false},
		{"tampered signature", []string{"second"}, token[:len(token)-1] + "0", token[len(token)-1] == '0'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(tt.candidates, args, tt.provided))
		})
	}
}

func TestTokens_Deduplicates(t *testing.T) {
	codec, err := NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmSHA1, codec.Algorithm())

	tokens := codec.Tokens([]string{"a", "b", "a"}, nil)
	assert.Len(t, tokens, 2)
	assert.Equal(t, codec.Sign("a", nil), tokens[0])
}

func TestNewCodec_Unsupported(t *testing.T) {
	_, err := NewCodec("md5")
	require.Error(t, err)
	assert.IsType(t, ValidationError{}, err)
}

func TestBLAKE2b_LongKey(t *testing.T) {
	codec, err := NewCodec(AlgorithmBLAKE2b)
	require.NoError(t, err)

	long := strings.Repeat("k", 100)
	token := codec.Sign(long, map[string]string{"a": "1"})
	assert.Len(t, token, 64)
	assert.NotEqual(t, token, codec.Sign(long+"x", map[string]string{"a": "1"}))
}
