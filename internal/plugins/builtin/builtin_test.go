package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plugin-router/internal/catalog"
	"plugin-router/internal/common/errors"
	commonhttp "plugin-router/internal/common/http"
	"plugin-router/internal/plugins"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	h, ok := Static{}.EntryPoint("user_get")
	require.True(t, ok)

	tests := []struct {
		name   string
		params catalog.ParameterSet
		want   interface{}
	}{
		{"returns data", catalog.ParameterSet{"data": "hello"}, "hello"},
		{"listed method", catalog.ParameterSet{"data": 1, "methods": []interface{}{"user_get"}}, 1},
		{"unlisted method", catalog.ParameterSet{"data": 1, "methods": []interface{}{"user_list"}}, nil},
		{"no data", catalog.ParameterSet{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h(ctx, tt.params, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/get" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"id":"` + r.URL.Query().Get("id") + `","v":"` + r.URL.Query().Get("v") + `","h":"` + r.Header.Get("X-Api") + `","m":"` + r.Method + `"}`))
	}))
	defer server.Close()

	p := NewHTTP(commonhttp.NewClient(commonhttp.WithTimeout(2 * time.Second)))
	h, ok := p.EntryPoint("users_get")
	require.True(t, ok)

	params := catalog.ParameterSet{
		"url":     server.URL + "/{ressource}/{method}",
		"method":  "post",
		"headers": map[string]interface{}{"X-Api": "secret"},
		"query":   map[string]interface{}{"v": 2},
	}
	got, err := h(context.Background(), params, map[string]string{"id": "7"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": "7", "v": "2", "h": "secret", "m": "POST"}, got)

	_, err = h(context.Background(), catalog.ParameterSet{}, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = h(context.Background(), catalog.ParameterSet{"url": server.URL, "method": "DELETE"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, ok = p.EntryPoint("nounderscore")
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	r := plugins.NewRegistry()
	Register(r, commonhttp.NewClient())
	assert.Equal(t, []string{"http", "static"}, r.Names())
}
