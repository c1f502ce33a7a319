package tree

import (
	"path"
	"strings"
)

// Factory adapts a freshly loaded tree before it is returned or attached as
// a sub-tree, e.g. to validate it or wrap it with derived templates.
type Factory func(*Node) *Node

// Registry maps tree definition names to factories. It is an explicit value
// passed to a Loader, not process-wide state; the core is single-threaded,
// so Registry performs no locking.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs a factory for trees loaded under the given definition
// name. The name is normalized like Lookup's argument.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[normalizeTreeName(name)] = factory
}

// Lookup returns the factory registered for a definition name, or nil.
func (r *Registry) Lookup(name string) Factory {
	return r.factories[normalizeTreeName(name)]
}

// normalizeTreeName strips any directory prefix and .tree suffixes so that
// "a/b/eddy.tree" and "eddy" register the same entry.
func normalizeTreeName(name string) string {
	name = path.Base(name)
	for strings.HasSuffix(name, ".tree") {
		name = strings.TrimSuffix(name, ".tree")
	}
	return name
}
