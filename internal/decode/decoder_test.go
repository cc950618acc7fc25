package decode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plugin-router/internal/catalog"
	"plugin-router/internal/common/errors"
	"plugin-router/internal/query"
)

var schema = catalog.ResourceSchema{
	"user": {
		"get": {Arguments: map[string]catalog.ArgumentSchema{
			"id":   {},
			"name": {Encoding: "base64"},
			"tag":  {Encoding: "hex"},
			"q":    {Encoding: "url"},
			"tok":  {Encoding: "base64url"},
			"bad":  {Encoding: "rot13"},
		}},
		"search": {},
	},
}

func build(method string, args map[string]string) query.Query {
	return query.New(query.Params{Source: "S", Ressource: "user", Method: method, Arguments: args})
}

func TestDecode(t *testing.T) {
	d := New()
	q := build("get", map[string]string{
		"id":   "42",
		"name": "aMOpbMOobmU=",
		"tag":  "6869",
		"q":    "a%20b%26c",
		"tok":  "Pz8-",
	})

	decoded, err := d.Decode(q, schema)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"id":   "42",
		"name": "hélène",
		"tag":  "hi",
		"q":    "a b&c",
		"tok":  "??>",
	}, decoded.Arguments())

	v, _ := q.Argument("name")
	assert.Equal(t, "aMOpbMOobmU=", v, "input query is unchanged")
}

func TestDecode_UndeclaredArgumentsBlock(t *testing.T) {
	decoded, err := New().Decode(build("search", map[string]string{"anything": "x"}), schema)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"anything": "x"}, decoded.Arguments())
}

func TestDecode_Errors(t *testing.T) {
	d := New()

	tests := []struct {
		name string
		q    query.Query
		want errors.ErrorType
	}{
		{"unknown ressource", query.New(query.Params{Ressource: "group", Method: "get"}), errors.ErrTypeArgument},
		{"unknown method", build("delete", nil), errors.ErrTypeArgument},
		{"undeclared argument", build("get", map[string]string{"extra": "1"}), errors.ErrTypeArgument},
		{"unknown algorithm", build("get", map[string]string{"bad": "x"}), errors.ErrTypeDecodeAlgorithm},
		{"malformed value", build("get", map[string]string{"name": "!!"}), errors.ErrTypeArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.q, schema)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.GetType(err))
		})
	}
}

func TestRegister(t *testing.T) {
	d := New()
	d.Register("upper", func(v string) (string, error) { return strings.ToUpper(v), nil })
	assert.Contains(t, d.Algorithms(), "upper")

	s := catalog.ResourceSchema{"user": {"get": {Arguments: map[string]catalog.ArgumentSchema{"n": {Encoding: "upper"}}}}}
	decoded, err := d.Decode(build("get", map[string]string{"n": "abc"}), s)
	require.NoError(t, err)
	v, _ := decoded.Argument("n")
	assert.Equal(t, "ABC", v)
}
