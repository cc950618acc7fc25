package builtin

import (
	commonhttp "plugin-router/internal/common/http"
	"plugin-router/internal/plugins"
)

// Register adds the built-in plugins to r.
func Register(r *plugins.Registry, client *commonhttp.Client) {
	r.Register(Static{})
	r.Register(NewHTTP(client))
}
