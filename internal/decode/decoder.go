// Package decode replaces encoded request arguments with their plain
// values before the check pipeline runs.
package decode

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"unicode/utf8"

	"plugin-router/internal/catalog"
	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/registry"
	"plugin-router/internal/query"
)

// Func decodes one argument value.
type Func func(value string) (string, error)

// Decoder applies the algorithm named by each argument's schema encoding.
type Decoder struct {
	algorithms *registry.Registry[Func]
}

// New returns a decoder with the built-in algorithms registered.
func New() *Decoder {
	d := &Decoder{algorithms: registry.New[Func]("decode algorithm")}
	d.Register("base64", decodeBase64)
	d.Register("base64url", decodeBase64URL)
	d.Register("hex", decodeHex)
	d.Register("url", url.QueryUnescape)
	return d
}

// Register adds or replaces an algorithm.
func (d *Decoder) Register(name string, fn Func) {
	d.algorithms.Register(name, fn)
}

// Algorithms returns the registered algorithm names.
func (d *Decoder) Algorithms() []string {
	return d.algorithms.Names()
}

// Decode returns q with every argument whose schema entry names an encoding
// replaced by its decoded value. q itself is left unchanged.
//
// The ressource and method must exist in schema. When the method declares
// an arguments block every query argument must appear in it.
func (d *Decoder) Decode(q query.Query, schema catalog.ResourceSchema) (query.Query, error) {
	methods, ok := schema[q.Ressource()]
	if !ok {
		return q, errors.ArgumentError(fmt.Sprintf("ressource %s not found", q.Ressource())).
			WithContext("ressource", q.Ressource())
	}
	method, ok := methods[q.Method()]
	if !ok {
		return q, errors.ArgumentError(fmt.Sprintf("method %s not found for ressource %s", q.Method(), q.Ressource())).
			WithContext("ressource", q.Ressource()).
			WithContext("method", q.Method())
	}
	if len(method.Arguments) == 0 {
		return q, nil
	}

	args := q.Arguments()
	for _, name := range q.ArgumentNames() {
		argument, declared := method.Arguments[name]
		if !declared {
			return q, errors.ArgumentError(fmt.Sprintf("argument %s not declared", name)).
				WithContext("argument", name)
		}
		if argument.Encoding == "" {
			continue
		}

		fn, err := d.algorithms.Get(argument.Encoding)
		if err != nil {
			return q, errors.DecodeAlgorithmNotFoundError(argument.Encoding)
		}
		decoded, err := fn(args[name])
		if err != nil {
			return q, (&errors.AppError{
				Type:    errors.ErrTypeArgument,
				Message: fmt.Sprintf("argument %s is not valid %s", name, argument.Encoding),
				Cause:   err,
			}).WithContext("argument", name)
		}
		args[name] = decoded
	}

	return q.WithArguments(args), nil
}

func decodeBase64(value string) (string, error) {
	return decodeBytes(base64.StdEncoding.DecodeString(value))
}

func decodeBase64URL(value string) (string, error) {
	return decodeBytes(base64.URLEncoding.DecodeString(value))
}

func decodeHex(value string) (string, error) {
	return decodeBytes(hex.DecodeString(value))
}

func decodeBytes(raw []byte, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("decoded value is not valid utf-8")
	}
	return string(raw), nil
}
