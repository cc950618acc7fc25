package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
)

const testSources = `
demo:
  sources:
    partner:
      apikey: k1
      ip: ["10\\.0\\.0\\..*"]
      plugins:
        zeta:
          - {url: "http://z"}
        alpha:
          - {url: "http://a1"}
          - {url: "http://a2"}
    internal:
      apikey: [k2, k3]
      plugins:
        "alpha2|alpha":
          - {}
    open:
      plugins:
        static:
`

const testRessources = `
user:
  get:
    request_method: GET
    arguments:
      id: {required: true}
      name: {encoding: base64}
  search: {}
`

const testACL = `
user:
  get: ["127\\.0\\.0\\.1", "10\\..*"]
`

func TestParse(t *testing.T) {
	tree, err := Parse([]byte(testACL), []byte(testSources), []byte(testRessources))
	require.NoError(t, err)

	project, ok := tree.Projects["demo"]
	require.True(t, ok)
	assert.Equal(t, []string{"internal", "open", "partner"}, project.SourceNames())

	t.Run("apikey scalar and list", func(t *testing.T) {
		assert.Equal(t, APIKeys{"k1"}, project.Sources["partner"].APIKeys)
		assert.Equal(t, APIKeys{"k2", "k3"}, project.Sources["internal"].APIKeys)
		assert.Empty(t, project.Sources["open"].APIKeys)
	})

	t.Run("ip lists", func(t *testing.T) {
		assert.True(t, project.Sources["partner"].RestrictsIP())
		assert.False(t, project.Sources["open"].RestrictsIP())
	})

	t.Run("plugins keep document order", func(t *testing.T) {
		plugins := project.Sources["partner"].Plugins
		assert.Equal(t, []string{"zeta", "alpha"}, plugins.Names())

		sets, ok := plugins.Get("alpha")
		require.True(t, ok)
		require.Len(t, sets, 2)
		assert.Equal(t, "http://a2", sets[1].String("url"))
	})

	t.Run("null parameter list", func(t *testing.T) {
		sets, ok := project.Sources["open"].Plugins.Get("static")
		assert.True(t, ok)
		assert.Empty(t, sets)
	})

	t.Run("schema", func(t *testing.T) {
		get, ok := tree.Ressources.Method("user", "get")
		require.True(t, ok)
		assert.Equal(t, "GET", get.RequestMethod)
		assert.True(t, get.DeclaresArguments())
		assert.True(t, get.Arguments["id"].Required)
		assert.Equal(t, "base64", get.Arguments["name"].Encoding)

		search, ok := tree.Ressources.Method("user", "search")
		require.True(t, ok)
		assert.False(t, search.DeclaresArguments())

		_, ok = tree.Ressources.Method("user", "delete")
		assert.False(t, ok)
		_, ok = tree.Ressources.Method("group", "get")
		assert.False(t, ok)
	})

	t.Run("acl", func(t *testing.T) {
		patterns, ok := tree.ACL.Patterns("user", "get")
		require.True(t, ok)
		assert.Len(t, patterns, 2)
		_, ok = tree.ACL.Patterns("user", "search")
		assert.False(t, ok)
	})
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		acl     string
		sources string
	}{
		{
			name:    "bad yaml",
			sources: "demo: [",
		},
		{
			name:    "bad source ip pattern",
			sources: "demo:\n  sources:\n    s:\n      ip: [\"(\"]\n",
		},
		{
			name:    "bad acl pattern",
			acl:     "user:\n  get: [\"[\"]\n",
			sources: "demo:\n  sources: {}\n",
		},
		{
			name:    "empty apikey",
			sources: "demo:\n  sources:\n    s:\n      apikey: [\"\"]\n",
		},
		{
			name:    "empty plugin registry name",
			sources: "demo:\n  sources:\n    s:\n      plugins:\n        \"alias|\": []\n",
		},
		{
			name:    "reserved source name",
			sources: "demo:\n  sources:\n    all: {}\n",
		},
		{
			name:    "apikey mapping",
			sources: "demo:\n  sources:\n    s:\n      apikey: {a: b}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.acl), []byte(tt.sources), nil)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeConfig), "got %v", err)
		})
	}
}

func TestSplitPluginName(t *testing.T) {
	tests := []struct {
		raw   string
		alias string
		name  string
	}{
		{"geo", "geo", "geo"},
		{"geo2|geo", "geo2|geo", "geo"},
		{"a|b|c", "a|b|c", "b|c"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			alias, name := SplitPluginName(tt.raw)
			assert.Equal(t, tt.alias, alias)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestPluginMap_Append(t *testing.T) {
	m := NewPluginMap(
		PluginEntry{Name: "p", ParameterSets: []ParameterSet{{"v": "a"}}},
		PluginEntry{Name: "q"},
	)
	m.Append("p", ParameterSet{"v": "b"})

	assert.Equal(t, []string{"p", "q"}, m.Names())
	assert.Equal(t, 2, m.Len())

	sets, _ := m.Get("p")
	require.Len(t, sets, 2)
	assert.Equal(t, "a", sets[0].String("v"))
	assert.Equal(t, "b", sets[1].String("v"))

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "q", entries[1].Name)
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	paths := writeCatalog(t, dir, testSources)

	tree, err := FileLoader{Paths: paths}.Load()
	require.NoError(t, err)
	assert.Contains(t, tree.Projects, "demo")

	t.Run("missing sources file", func(t *testing.T) {
		_, err := FileLoader{Paths: Paths{Sources: filepath.Join(dir, "nope.yml"), Ressources: paths.Ressources}}.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("directory instead of file", func(t *testing.T) {
		_, err := FileLoader{Paths: Paths{Sources: dir, Ressources: paths.Ressources}}.Load()
		require.Error(t, err)
	})

	t.Run("acl is optional", func(t *testing.T) {
		_, err := FileLoader{Paths: Paths{Sources: paths.Sources, Ressources: paths.Ressources}}.Load()
		require.NoError(t, err)
	})
}

func TestStore_Reload(t *testing.T) {
	loader := &switchLoader{}
	loader.tree.Store(&Tree{Projects: map[string]Project{"one": {}}})

	store, err := NewStore(loader, logging.Nop())
	require.NoError(t, err)
	first := store.Snapshot()
	assert.Contains(t, first.Projects, "one")

	loader.tree.Store(&Tree{Projects: map[string]Project{"two": {}}})
	require.NoError(t, store.Reload())
	assert.Contains(t, store.Snapshot().Projects, "two")
	assert.Contains(t, first.Projects, "one", "snapshots are never modified")
	assert.Equal(t, 1, store.Status().Reloads)

	loader.fail.Store(true)
	require.Error(t, store.Reload())
	assert.Contains(t, store.Snapshot().Projects, "two", "failed reload keeps current tree")
	assert.NotEmpty(t, store.Status().LastError)
}

func TestNewStore_Error(t *testing.T) {
	loader := &switchLoader{}
	loader.fail.Store(true)

	_, err := NewStore(loader, logging.Nop())
	require.Error(t, err)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	paths := writeCatalog(t, dir, testSources)

	store, err := NewStore(FileLoader{Paths: paths}, logging.Nop())
	require.NoError(t, err)

	watcher, err := NewWatcher(paths.Files(), store,
		WithDebounceDelay(10*time.Millisecond),
		WithWatcherLogger(logging.Nop()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	defer func() { _ = watcher.Stop() }()

	updated := "other:\n  sources:\n    s: {}\n"
	require.NoError(t, os.WriteFile(paths.Sources, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := store.Snapshot().Projects["other"]
		return ok
	}, 2*time.Second, 20*time.Millisecond)
}

type switchLoader struct {
	tree atomic.Pointer[Tree]
	fail atomic.Bool
}

func (l *switchLoader) Load() (*Tree, error) {
	if l.fail.Load() {
		return nil, errors.ConfigError("broken")
	}
	return l.tree.Load(), nil
}

func writeCatalog(t *testing.T, dir, sources string) Paths {
	t.Helper()
	paths := Paths{
		ACL:        filepath.Join(dir, "acl.yml"),
		Sources:    filepath.Join(dir, "sources.yml"),
		Ressources: filepath.Join(dir, "ressources.yml"),
	}
	require.NoError(t, os.WriteFile(paths.ACL, []byte(testACL), 0o644))
	require.NoError(t, os.WriteFile(paths.Sources, []byte(sources), 0o644))
	require.NoError(t, os.WriteFile(paths.Ressources, []byte(testRessources), 0o644))
	return paths
}
