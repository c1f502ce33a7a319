// Package query scans the realized directory structure of a tree, records
// every on-disk match, and builds per-template indexes supporting fast
// lookups by variable value: a dense N-dimensional array (one axis per
// variable, in deterministic sorted order) plus roaring bitmaps per
// (variable, value) pair for list-style queries.
package query

import (
	"fmt"
	"sort"

	"github.com/agentic-research/pathtree/internal/template"
	"github.com/agentic-research/pathtree/internal/tree"
)

// Match is one concrete on-disk file together with the short name and the
// variable values that produced it. Matches are immutable once created;
// equality and ordering are defined by filename.
type Match struct {
	Filename  string
	ShortName string
	Variables template.Bindings
}

// Less orders matches by filename.
func (m Match) Less(other Match) bool { return m.Filename < other.Filename }

// Scan finds every existing file matched by any template reachable from the
// tree, recursing through sub-trees. Short names of sub-tree templates are
// qualified ("sub/name") to keep them unique across the scan. Only regular
// files count as matches.
func Scan(n *tree.Node) ([]Match, error) {
	var matches []Match
	if err := scanInto(n, "", &matches); err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Less(matches[j]) })
	return matches, nil
}

func scanInto(n *tree.Node, prefix string, into *[]Match) error {
	shorts := make([]string, 0, len(n.Templates))
	for short := range n.Templates {
		shorts = append(shorts, short)
	}
	sort.Strings(shorts)

	fsys := n.FS()
	for _, short := range shorts {
		tmpl, vars, err := n.GetTemplate(short)
		if err != nil {
			return err
		}
		sets, err := tmpl.GetAll(fsys, vars, template.GlobAll)
		if err != nil {
			return fmt.Errorf("scan %s%s: %w", prefix, short, err)
		}
		for _, b := range sets {
			merged := vars.Clone()
			for k, v := range b {
				if v == template.Unset {
					delete(merged, k)
				} else {
					merged[k] = v
				}
			}
			filename, err := tmpl.Resolve(merged)
			if err != nil {
				return fmt.Errorf("scan %s%s: %w", prefix, short, err)
			}
			info, err := fsys.Lstat(filename)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			*into = append(*into, Match{
				Filename:  filename,
				ShortName: prefix + short,
				Variables: b.Clone(),
			})
		}
	}

	subs := make([]string, 0, len(n.SubTrees))
	for name := range n.SubTrees {
		subs = append(subs, name)
	}
	sort.Strings(subs)
	for _, name := range subs {
		if err := scanInto(n.SubTrees[name], prefix+name+"/", into); err != nil {
			return err
		}
	}
	return nil
}

// AllVariables aggregates the value domain of every variable across the
// matches. The first result maps variable name to the sorted list of
// distinct values seen (template.Unset sorts first); the second maps short
// name to the sorted list of variables occurring in at least one of its
// matches.
func AllVariables(matches []Match) (map[string][]string, map[string][]string) {
	values := map[string]map[string]struct{}{}
	perShort := map[string]map[string]struct{}{}
	for _, m := range matches {
		vars := perShort[m.ShortName]
		if vars == nil {
			vars = map[string]struct{}{}
			perShort[m.ShortName] = vars
		}
		for name, value := range m.Variables {
			vars[name] = struct{}{}
			if values[name] == nil {
				values[name] = map[string]struct{}{}
			}
			values[name][value] = struct{}{}
		}
	}

	domains := make(map[string][]string, len(values))
	for name, set := range values {
		domains[name] = sortedValues(set)
	}
	axes := make(map[string][]string, len(perShort))
	for short, set := range perShort {
		axes[short] = sortedValues(set)
	}
	return domains, axes
}

func sortedValues(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
