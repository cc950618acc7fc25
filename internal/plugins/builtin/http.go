package builtin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"plugin-router/internal/catalog"
	"plugin-router/internal/common/errors"
	commonhttp "plugin-router/internal/common/http"
	"plugin-router/internal/plugins"
)

// HTTPName is the registry name of the http plugin.
const HTTPName = "http"

// HTTP forwards a call to a backend URL and returns its decoded body.
//
// Parameter set keys:
//
//	url      required; "{ressource}" and "{method}" are substituted
//	method   GET (default) or POST
//	headers  map of header name to value
//	query    map of fixed query parameters, sent before the arguments
type HTTP struct {
	client *commonhttp.Client
}

// NewHTTP creates the plugin around client.
func NewHTTP(client *commonhttp.Client) *HTTP {
	return &HTTP{client: client}
}

func (p *HTTP) Name() string { return HTTPName }

// EntryPoint implements plugins.Plugin. Every "<ressource>_<method>" name is
// served.
func (p *HTTP) EntryPoint(name string) (plugins.Handler, bool) {
	ressource, method, ok := strings.Cut(name, "_")
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, params catalog.ParameterSet, args map[string]string) (interface{}, error) {
		return p.call(ctx, ressource, method, params, args)
	}, true
}

func (p *HTTP) call(ctx context.Context, ressource, method string, params catalog.ParameterSet, args map[string]string) (interface{}, error) {
	target := params.String("url")
	if target == "" {
		return nil, errors.ValidationError("http plugin: url parameter is required")
	}
	target = strings.NewReplacer("{ressource}", url.PathEscape(ressource), "{method}", url.PathEscape(method)).Replace(target)

	verb := strings.ToUpper(params.String("method"))
	switch verb {
	case "":
		verb = http.MethodGet
	case http.MethodGet, http.MethodPost:
	default:
		return nil, errors.ValidationError(fmt.Sprintf("http plugin: unsupported method %s", verb))
	}

	query := url.Values{}
	for k, v := range stringMap(params["query"]) {
		query.Set(k, v)
	}
	for k, v := range args {
		query.Set(k, v)
	}

	resp, err := p.client.Do(ctx, verb, target, query, stringMap(params["headers"]))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// stringMap converts a YAML mapping to strings; other shapes yield nil.
func stringMap(raw interface{}) map[string]string {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}
