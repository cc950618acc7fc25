package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetworks(t *testing.T) {
	networks, err := ParseNetworks("10.0.0.0/8, 192.0.2.7,,::1")
	require.NoError(t, err)
	require.Len(t, networks, 3)
	assert.Equal(t, "10.0.0.0/8", networks[0].String())
	assert.Equal(t, "192.0.2.7/32", networks[1].String())
	assert.Equal(t, "::1/128", networks[2].String())

	networks, err = ParseNetworks("")
	require.NoError(t, err)
	assert.Empty(t, networks)

	_, err = ParseNetworks("10.0.0.0/8,proxy.local")
	assert.Error(t, err)
}

func TestContainsIP(t *testing.T) {
	networks, err := ParseNetworks("10.0.0.0/8,::1")
	require.NoError(t, err)

	assert.True(t, ContainsIP(networks, "10.20.30.40"))
	assert.True(t, ContainsIP(networks, "::1"))
	assert.False(t, ContainsIP(networks, "192.0.2.1"))
	assert.False(t, ContainsIP(networks, "not-an-ip"))
	assert.False(t, ContainsIP(nil, "10.0.0.1"))
}

func TestClientIPExtractor_Extract(t *testing.T) {
	trusted, err := ParseNetworks("172.16.0.0/12")
	require.NoError(t, err)

	tests := []struct {
		name      string
		trusted   bool
		remote    string
		forwarded string
		want      string
	}{
		{"no trusted proxies ignores header", false, "192.0.2.1:1234", "10.0.0.5", "192.0.2.1"},
		{"untrusted peer ignores header", true, "192.0.2.1:1234", "10.0.0.5", "192.0.2.1"},
		{"trusted peer uses appended hop", true, "172.16.0.2:1234", "203.0.113.9", "203.0.113.9"},
		{"spoofed left hop ignored", true, "172.16.0.2:1234", "10.0.0.5, 203.0.113.9", "203.0.113.9"},
		{"proxy chain skips trusted hops", true, "172.16.0.2:1234", "10.0.0.5, 203.0.113.9, 172.16.0.3", "203.0.113.9"},
		{"all hops trusted falls back to peer", true, "172.16.0.2:1234", "172.16.0.9", "172.16.0.2"},
		{"trusted peer without header", true, "172.16.0.2:1234", "", "172.16.0.2"},
		{"remote addr without port", false, "192.0.2.1", "", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e *ClientIPExtractor
			if tt.trusted {
				e = NewClientIPExtractor(trusted)
			}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set(HeaderXForwardedFor, tt.forwarded)
			}

			assert.Equal(t, tt.want, e.Extract(req))
		})
	}
}
