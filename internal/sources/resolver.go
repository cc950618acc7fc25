package sources

import (
	"fmt"
	"sort"

	"plugin-router/internal/catalog"
	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/signature"
)

// Named pairs a source with its configured name.
type Named struct {
	Name   string
	Source catalog.Source
}

// Config controls resolution.
type Config struct {
	CheckSignature bool
	// DefaultProject is used when a request names no project.
	DefaultProject string
}

// Resolver authorizes source selectors against one catalog tree.
type Resolver struct {
	config Config
	codec  *signature.Codec
	logger logging.Logger
}

// NewResolver creates a resolver. A nil codec selects the legacy sha1 codec.
func NewResolver(config Config, codec *signature.Codec, logger logging.Logger) *Resolver {
	if codec == nil {
		codec, _ = signature.NewCodec(signature.AlgorithmSHA1)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Resolver{
		config: config,
		codec:  codec,
		logger: logger.WithFields(logging.String("component", "sources")),
	}
}

// ProjectName returns name, or the default project when name is empty.
func (r *Resolver) ProjectName(name string) string {
	if name == "" {
		return r.config.DefaultProject
	}
	return name
}

// Project returns the named project from tree, falling back to the default
// project for an empty name.
func (r *Resolver) Project(tree *catalog.Tree, name string) (string, catalog.Project, error) {
	name = r.ProjectName(name)
	project, ok := tree.Projects[name]
	if !ok {
		return name, catalog.Project{}, errors.NotFoundError(fmt.Sprintf("project %s", name)).WithContext("project", name)
	}
	return name, project, nil
}

// Resolve returns the sources of projectName targeted by selector that
// accept sig for args.
//
// Unknown projects and unknown explicit source names fail with a not_found
// error before any signature is checked. Sources that declare keys are kept
// only when sig matches one of their tokens; sources without keys, or all
// sources when checking is disabled, are kept unconditionally. An empty
// result fails with a signature error.
func (r *Resolver) Resolve(tree *catalog.Tree, projectName string, selector Selector, sig string, args map[string]string) ([]Named, error) {
	projectName, project, err := r.Project(tree, projectName)
	if err != nil {
		return nil, err
	}

	candidates := selector.Candidates(project)
	for _, name := range candidates {
		if _, ok := project.Sources[name]; !ok {
			return nil, errors.NotFoundError(fmt.Sprintf("source %s", name)).
				WithContext("project", projectName).
				WithContext("source", name)
		}
	}

	authorized := make([]Named, 0, len(candidates))
	for _, name := range candidates {
		source := project.Sources[name]
		if r.config.CheckSignature && len(source.APIKeys) > 0 {
			if !r.codec.Verify(source.APIKeys, args, sig) {
				r.logger.Debug("Signature rejected by source",
					logging.String("project", projectName),
					logging.String("source", name),
				)
				continue
			}
		}
		authorized = append(authorized, Named{Name: name, Source: source})
	}

	if len(authorized) == 0 {
		return nil, errors.WrongSignatureError(sig).WithContext("project", projectName)
	}

	return authorized, nil
}

// SourceNames returns the sorted source names of projectName. With an empty
// name it returns the sorted project names.
func (r *Resolver) SourceNames(tree *catalog.Tree, projectName string) ([]string, error) {
	if projectName == "" {
		names := make([]string, 0, len(tree.Projects))
		for name := range tree.Projects {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}

	project, ok := tree.Projects[projectName]
	if !ok {
		return nil, errors.NotFoundError(fmt.Sprintf("project %s", projectName)).WithContext("project", projectName)
	}
	return project.SourceNames(), nil
}

// Merge concatenates the plugin maps of sources in order. Parameter sets of
// a plugin name declared by several sources are appended in source order.
func Merge(sources []Named) catalog.PluginMap {
	var merged catalog.PluginMap
	for _, named := range sources {
		for _, entry := range named.Source.Plugins.Entries() {
			merged.Append(entry.Name, entry.ParameterSets...)
		}
	}
	return merged
}

// Names returns the names of sources in order.
func Names(sources []Named) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}
