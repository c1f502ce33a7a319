// Package tree models a hierarchical layout of templated paths: each Node
// holds the path templates of one directory level, variable bindings that
// sub-trees inherit, and named child sub-trees. Trees are loaded from a
// line-oriented definition format (see Loader) and are logically immutable:
// Update returns a deep copy instead of mutating.
package tree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/agentic-research/pathtree/internal/template"
)

// Node is one directory level of a templated-path layout. Short names are
// unique across Templates and SubTrees within a node. The parent link is
// navigation-only: the root owns the structure, children never outlive it.
type Node struct {
	Name      string
	Templates map[string]string
	Variables map[string]string
	SubTrees  map[string]*Node

	parent *Node
	fsys   billy.Filesystem
	cache  map[string]template.Template
}

// New creates an empty node with the given name.
func New(name string) *Node {
	return &Node{
		Name:      name,
		Templates: map[string]string{},
		Variables: map[string]string{},
		SubTrees:  map[string]*Node{},
	}
}

// Parent returns the enclosing node, or nil for a top-level tree.
func (n *Node) Parent() *Node { return n.parent }

// Root walks the parent chain to the top-level tree.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// SetFS sets the filesystem used for globbing and existence checks. It is
// stored on this node but consulted tree-wide via the root.
func (n *Node) SetFS(fsys billy.Filesystem) { n.fsys = fsys }

// FS returns the filesystem the tree is matched against, defaulting to the
// host filesystem.
func (n *Node) FS() billy.Filesystem {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.fsys != nil {
			return cur.fsys
		}
	}
	return osfs.New("/")
}

// AddTemplate registers a template under a short name. Short names share a
// namespace with sub-trees.
func (n *Node) AddTemplate(shortName, text string) error {
	if n.defined(shortName) {
		return fmt.Errorf("duplicate short name %q in tree %q", shortName, n.Name)
	}
	n.Templates[shortName] = text
	return nil
}

// AddSubTree attaches a child tree under a short name and wires its parent
// link.
func (n *Node) AddSubTree(shortName string, sub *Node) error {
	if n.defined(shortName) {
		return fmt.Errorf("duplicate short name %q in tree %q", shortName, n.Name)
	}
	n.SubTrees[shortName] = sub
	sub.parent = n
	return nil
}

func (n *Node) defined(shortName string) bool {
	if _, ok := n.Templates[shortName]; ok {
		return true
	}
	_, ok := n.SubTrees[shortName]
	return ok
}

// AllVariables returns the effective bindings at this node: the parent's,
// overridden by this node's own.
func (n *Node) AllVariables() template.Bindings {
	var b template.Bindings
	if n.parent == nil {
		b = make(template.Bindings, len(n.Variables))
	} else {
		b = n.parent.AllVariables()
	}
	for k, v := range n.Variables {
		b[k] = v
	}
	return b
}

// GetVariable looks a variable up from this node through the parent chain,
// first real value wins.
func (n *Node) GetVariable(name string) (string, error) {
	for cur := n; cur != nil; cur = cur.parent {
		if v, ok := cur.Variables[name]; ok && v != template.Unset {
			return v, nil
		}
	}
	return "", &template.MissingError{Scope: n.Name, Names: []string{name}}
}

// templateNode resolves a possibly qualified short name: "sub/name" descends
// into a sub-tree, "../name" ascends to the parent, an unqualified name is
// looked up locally.
func (n *Node) templateNode(name string) (*Node, string, error) {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		head, rest := name[:i], name[i+1:]
		if head == ".." {
			if n.parent == nil {
				return nil, "", &UndefinedError{Name: name, Tree: n.Name}
			}
			return n.parent.templateNode(rest)
		}
		sub, ok := n.SubTrees[head]
		if !ok {
			return nil, "", &UndefinedError{Name: name, Tree: n.Name}
		}
		return sub.templateNode(rest)
	}
	text, ok := n.Templates[name]
	if !ok {
		return nil, "", &UndefinedError{Name: name, Tree: n.Name}
	}
	return n, text, nil
}

// GetTemplate resolves a qualified short name and returns the parsed
// template together with the bindings visible at the owning node.
func (n *Node) GetTemplate(shortName string) (template.Template, template.Bindings, error) {
	owner, text, err := n.templateNode(shortName)
	if err != nil {
		return template.Template{}, nil, err
	}
	tmpl, err := owner.parsed(text)
	if err != nil {
		return template.Template{}, nil, err
	}
	return tmpl, owner.AllVariables(), nil
}

// parsed parses template text, caching per node.
func (n *Node) parsed(text string) (template.Template, error) {
	if tmpl, ok := n.cache[text]; ok {
		return tmpl, nil
	}
	tmpl, err := template.Parse(text)
	if err != nil {
		return template.Template{}, err
	}
	if n.cache == nil {
		n.cache = map[string]template.Template{}
	}
	n.cache[text] = tmpl
	return tmpl, nil
}

// Get resolves a short name to its concrete path using the effective
// bindings. Unbound required variables yield a MissingError naming the
// short name.
func (n *Node) Get(shortName string) (string, error) {
	tmpl, vars, err := n.GetTemplate(shortName)
	if err != nil {
		return "", err
	}
	p, err := tmpl.Resolve(vars)
	if err != nil {
		var missing *template.MissingError
		if errors.As(err, &missing) {
			return "", &template.MissingError{Scope: shortName, Names: missing.Names}
		}
		return "", err
	}
	return p, nil
}

// GetAllVars returns one binding set per existing path matching the short
// name's template, globbing over the variables in globVars
// (template.GlobAll for all undetermined ones).
func (n *Node) GetAllVars(shortName string, globVars []string) ([]template.Bindings, error) {
	tmpl, vars, err := n.GetTemplate(shortName)
	if err != nil {
		return nil, err
	}
	return tmpl.GetAll(n.FS(), vars, globVars)
}

// GetAll returns every existing path matching the short name's template,
// sorted.
func (n *Node) GetAll(shortName string, globVars []string) ([]string, error) {
	tmpl, vars, err := n.GetTemplate(shortName)
	if err != nil {
		return nil, err
	}
	sets, err := tmpl.GetAll(n.FS(), vars, globVars)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(sets))
	for _, b := range sets {
		merged := vars.Clone()
		for k, v := range b {
			if v != template.Unset {
				merged[k] = v
			} else {
				delete(merged, k)
			}
		}
		p, err := tmpl.Resolve(merged)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// ExtractVariables recovers the variable values that lead to filename under
// the given short name's template. Already-bound tree variables are treated
// as known.
func (n *Node) ExtractVariables(shortName, filename string) (template.Bindings, error) {
	tmpl, vars, err := n.GetTemplate(shortName)
	if err != nil {
		return nil, err
	}
	return tmpl.ExtractVariables(filename, vars)
}

// Update returns a deep copy of the whole tree with vars merged in: at the
// tree's own root when setParent is true (so sub-trees and siblings see the
// change through inheritance), at this node otherwise. Binding a variable
// to template.Unset removes it. The receiver is never mutated.
func (n *Node) Update(vars template.Bindings, setParent bool) *Node {
	c := n.deepCopy(nil, "", nil)
	target := c
	if setParent {
		target = c.Root()
	}
	for k, v := range vars {
		if v == template.Unset {
			delete(target.Variables, k)
		} else {
			target.Variables[k] = v
		}
	}
	return c
}

// deepCopy copies this node and everything reachable from it, including the
// parent chain, so that the copy is a fully disjoint tree positioned at the
// same place. replaceKey/replacement substitute an already-copied child when
// copying upwards.
func (n *Node) deepCopy(newParent *Node, replaceKey string, replacement *Node) *Node {
	c := &Node{
		Name:      n.Name,
		Templates: copyMap(n.Templates),
		Variables: copyMap(n.Variables),
		SubTrees:  make(map[string]*Node, len(n.SubTrees)),
		parent:    newParent,
		fsys:      n.fsys,
	}
	for key, sub := range n.SubTrees {
		if key == replaceKey && replacement != nil {
			c.SubTrees[key] = replacement
			continue
		}
		c.SubTrees[key] = sub.deepCopy(c, "", nil)
	}
	if n.parent != nil && newParent == nil {
		for key, ref := range n.parent.SubTrees {
			if ref == n {
				c.parent = n.parent.deepCopy(nil, key, c)
				break
			}
		}
	}
	return c
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Defines reports whether every given (possibly qualified) short name has a
// template in this tree.
func (n *Node) Defines(shortNames ...string) bool {
	for _, name := range shortNames {
		if _, _, err := n.templateNode(name); err != nil {
			return false
		}
	}
	return true
}

// CheckDefined is Defines with an UndefinedError naming the first missing
// short name.
func (n *Node) CheckDefined(shortNames ...string) error {
	for _, name := range shortNames {
		if _, _, err := n.templateNode(name); err != nil {
			return err
		}
	}
	return nil
}

// OnDisk reports whether at least one file exists for every short name,
// globbing over globVars. Undefined short names and unresolvable required
// variables surface as errors.
func (n *Node) OnDisk(shortNames []string, globVars []string) (bool, error) {
	if err := n.CheckDefined(shortNames...); err != nil {
		return false, err
	}
	for _, name := range shortNames {
		paths, err := n.GetAll(name, globVars)
		if err != nil {
			return false, err
		}
		if len(paths) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// TemplateVariables returns the variables of one template, or of every
// template reachable from this tree when shortName is empty. The two flags
// restrict the result to the required or optional subset.
func (n *Node) TemplateVariables(shortName string, includeRequired, includeOptional bool) ([]string, error) {
	if !includeRequired && !includeOptional {
		return nil, nil
	}
	set := map[string]struct{}{}
	if shortName != "" {
		owner, text, err := n.templateNode(shortName)
		if err != nil {
			return nil, err
		}
		tmpl, err := owner.parsed(text)
		if err != nil {
			return nil, err
		}
		addTemplateVars(tmpl, includeRequired, includeOptional, set)
		return sortedSet(set), nil
	}
	if err := n.collectTreeVars(includeRequired, includeOptional, set); err != nil {
		return nil, err
	}
	return sortedSet(set), nil
}

func (n *Node) collectTreeVars(includeRequired, includeOptional bool, into map[string]struct{}) error {
	for _, text := range n.Templates {
		tmpl, err := n.parsed(text)
		if err != nil {
			return err
		}
		addTemplateVars(tmpl, includeRequired, includeOptional, into)
	}
	for _, sub := range n.SubTrees {
		if err := sub.collectTreeVars(includeRequired, includeOptional, into); err != nil {
			return err
		}
	}
	return nil
}

func addTemplateVars(tmpl template.Template, includeRequired, includeOptional bool, into map[string]struct{}) {
	if includeRequired {
		for _, name := range tmpl.RequiredVariables() {
			into[name] = struct{}{}
		}
	}
	if includeOptional {
		for _, name := range tmpl.OptionalVariables() {
			into[name] = struct{}{}
		}
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PartialFill returns a copy of the tree with every currently known
// variable substituted into the templates and all Variables maps cleared.
func (n *Node) PartialFill() (*Node, error) {
	c := n.deepCopy(nil, "", nil)
	if err := c.Root().partialFill(); err != nil {
		return nil, err
	}
	return c, nil
}

func (n *Node) partialFill() error {
	vars := n.AllVariables()
	for short, text := range n.Templates {
		tmpl, err := n.parsed(text)
		if err != nil {
			return err
		}
		n.Templates[short] = tmpl.FillKnown(vars).String()
	}
	n.cache = nil
	for _, sub := range n.SubTrees {
		if err := sub.partialFill(); err != nil {
			return err
		}
	}
	n.Variables = map[string]string{}
	return nil
}
