package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"plugin-router/internal/common/errors"
)

// Loader produces a validated configuration tree.
type Loader interface {
	Load() (*Tree, error)
}

// Paths locates the three configuration roots on disk.
type Paths struct {
	ACL        string
	Sources    string
	Ressources string
}

// Files returns the non-empty paths.
func (p Paths) Files() []string {
	files := make([]string, 0, 3)
	for _, f := range []string{p.ACL, p.Sources, p.Ressources} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// FileLoader reads the roots from YAML files. An empty ACL path means no
// ressource/method ACL is configured.
type FileLoader struct {
	Paths Paths
}

// Load implements Loader.
func (l FileLoader) Load() (*Tree, error) {
	aclData, err := readOptional(l.Paths.ACL)
	if err != nil {
		return nil, err
	}
	sourcesData, err := readRequired(l.Paths.Sources, "sources")
	if err != nil {
		return nil, err
	}
	ressourcesData, err := readRequired(l.Paths.Ressources, "ressources")
	if err != nil {
		return nil, err
	}
	return Parse(aclData, sourcesData, ressourcesData)
}

// RawLoader parses the roots from in-memory YAML documents.
type RawLoader struct {
	ACL        string
	Sources    string
	Ressources string
}

// Load implements Loader.
func (l RawLoader) Load() (*Tree, error) {
	return Parse([]byte(l.ACL), []byte(l.Sources), []byte(l.Ressources))
}

// Parse decodes and validates the three roots.
func Parse(aclData, sourcesData, ressourcesData []byte) (*Tree, error) {
	tree := &Tree{
		Projects:   map[string]Project{},
		ACL:        ACL{},
		Ressources: ResourceSchema{},
	}

	if err := decode(aclData, &tree.ACL, "acl"); err != nil {
		return nil, err
	}
	if err := decode(sourcesData, &tree.Projects, "sources"); err != nil {
		return nil, err
	}
	if err := decode(ressourcesData, &tree.Ressources, "ressources"); err != nil {
		return nil, err
	}

	if err := tree.Validate(); err != nil {
		return nil, err
	}
	return tree, nil
}

func decode(data []byte, out interface{}, root string) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return &errors.AppError{
			Type:    errors.ErrTypeConfig,
			Message: fmt.Sprintf("failed to parse %s", root),
			Cause:   err,
		}
	}
	return nil
}

func readRequired(path, root string) ([]byte, error) {
	if path == "" {
		return nil, errors.ConfigError(fmt.Sprintf("%s path is empty", root))
	}
	return readFile(path)
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return readFile(path)
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("config file does not exist: %s", path))
		}
		return nil, &errors.AppError{Type: errors.ErrTypeConfig, Message: "failed to stat config file", Cause: err}
	}
	if info.IsDir() {
		return nil, errors.ConfigError(fmt.Sprintf("config path is a directory, not a file: %s", path))
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &errors.AppError{Type: errors.ErrTypeConfig, Message: "failed to read config file", Cause: err}
	}
	return data, nil
}
