package tree

import (
	"path"
	"regexp"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/pathtree/internal/template"
)

// Loader reads tree definition files. Definitions are resolved against Dirs
// (an include-style search path) on FS; the same FS is later used by the
// loaded tree for globbing. Registry, when set, lets callers substitute a
// tree variant for a given definition name.
type Loader struct {
	FS       billy.Filesystem
	Dirs     []string
	Registry *Registry
}

// NewLoader returns a Loader over the host filesystem with the given search
// directories. Callers on the host filesystem should pass absolute paths.
func NewLoader(dirs ...string) *Loader {
	return &Loader{FS: osfs.New("/"), Dirs: dirs}
}

var (
	subTreeLine   = regexp.MustCompile(`^(\s*)->\s*(\S+)\s*(.*?)\s*\((\S+)\)\s*$`)
	namedPathLine = regexp.MustCompile(`^(\s*)(\S+)\s*\((\S+)\)\s*$`)
	plainPathLine = regexp.MustCompile(`^(\s*)(\S+)\s*$`)
	assignLine    = regexp.MustCompile(`^\s*(\S+)\s*=\s*(.*?)\s*$`)
)

const (
	forbiddenNameChars  = `<>"/\|?*`
	forbiddenShortChars = `(){}/`
)

// Load reads the named tree definition, resolving sub-tree inclusions
// recursively. directory is prepended to every top-level path, so all of the
// tree's templates resolve relative to it. vars override variable
// assignments made in the definition file itself.
func (l *Loader) Load(name, directory string, vars template.Bindings) (*Node, error) {
	filename, err := l.find(name)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(l.FS, filename)
	if err != nil {
		return nil, err
	}
	treeName := strings.TrimSuffix(path.Base(filename), ".tree")

	// Sub-tree inclusions first search next to the including file.
	sub := &Loader{
		FS:       l.FS,
		Dirs:     append([]string{path.Dir(filename)}, l.Dirs...),
		Registry: l.Registry,
	}

	node, err := sub.parseDefinition(filename, treeName, string(data), directory)
	if err != nil {
		return nil, err
	}
	for k, v := range vars {
		node.Variables[k] = v
	}
	if l.Registry != nil {
		if factory := l.Registry.Lookup(treeName); factory != nil {
			node = factory(node)
		}
	}
	return node, nil
}

// find locates a tree definition: the name itself, then name.tree, then both
// forms under every search directory.
func (l *Loader) find(name string) (string, error) {
	var candidates []string
	if path.IsAbs(name) || len(l.Dirs) == 0 {
		candidates = []string{name, name + ".tree"}
	} else {
		candidates = []string{name, name + ".tree"}
		for _, dir := range l.Dirs {
			candidates = append(candidates, path.Join(dir, name), path.Join(dir, name)+".tree")
		}
	}
	for _, c := range candidates {
		if info, err := l.FS.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", &UndefinedError{Name: name}
}

// parseDefinition parses the line-oriented definition format: variable
// assignments, sub-tree inclusions, and path segments whose indentation
// encodes directory nesting.
func (l *Loader) parseDefinition(filename, treeName, text, directory string) (*Node, error) {
	node := New(treeName)
	node.fsys = l.FS
	if directory == "." {
		directory = ""
	}

	var levels []int // indentation stack, one entry per open directory level
	var current string

	for lineNo, fullLine := range strings.Split(text, "\n") {
		line := fullLine
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fail := func(reason string) error {
			return &ParseError{File: filename, LineNo: lineNo + 1, Line: strings.TrimSpace(fullLine), Reason: reason}
		}

		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "->"):
			m := subTreeLine.FindStringSubmatch(line)
			if m == nil {
				return nil, fail("unparsable sub-tree inclusion")
			}
			indent, subName, varsStr, shortName := len(m[1]), m[2], m[3], m[4]
			if strings.ContainsAny(shortName, forbiddenShortChars) {
				return nil, fail("invalid character in short name")
			}
			subDir, newLevels, newCurrent, ok := subTreeDir(levels, current, directory, indent)
			if !ok {
				return nil, fail("indentation drops to a level that was never opened")
			}
			levels, current = newLevels, newCurrent
			subVars, err := parseInlineVars(varsStr)
			if err != nil {
				return nil, fail("unparsable variable assignment in sub-tree inclusion")
			}
			subTree, err := l.Load(subName, subDir, subVars)
			if err != nil {
				return nil, err
			}
			subTree.Name = shortName
			if err := node.AddSubTree(shortName, subTree); err != nil {
				return nil, fail("duplicate short name")
			}

		case strings.Contains(line, "="):
			m := assignLine.FindStringSubmatch(line)
			if m == nil || strings.Contains(m[1], "=") {
				return nil, fail("unparsable variable assignment")
			}
			node.Variables[m[1]] = m[2]

		default:
			var indent int
			var name, shortName string
			if m := namedPathLine.FindStringSubmatch(line); m != nil {
				indent, name, shortName = len(m[1]), m[2], m[3]
				// Only explicit short names are checked: a derived one may
				// legitimately contain template braces.
				if strings.ContainsAny(shortName, forbiddenShortChars) {
					return nil, fail("invalid character in short name")
				}
			} else if m := plainPathLine.FindStringSubmatch(line); m != nil {
				indent, name = len(m[1]), m[2]
				shortName = strings.SplitN(name, ".", 2)[0]
			} else {
				return nil, fail("unrecognized line")
			}
			if strings.ContainsAny(name, forbiddenNameChars) {
				return nil, fail("invalid character in file or directory name")
			}

			newLevels, newCurrent, ok := pathAt(levels, current, directory, indent, name)
			if !ok {
				return nil, fail("indentation drops to a level that was never opened")
			}
			levels, current = newLevels, newCurrent
			if err := node.AddTemplate(shortName, current); err != nil {
				return nil, fail("duplicate short name")
			}
		}
	}
	return node, nil
}

// pathAt applies one path line to the indentation stack and returns the full
// path for that line. A dedent must land exactly on a previously opened
// level.
func pathAt(levels []int, current, directory string, indent int, name string) ([]int, string, bool) {
	switch {
	case len(levels) == 0:
		return []int{indent}, joinPath(directory, name), true
	case indent > levels[len(levels)-1]:
		return append(levels, indent), current + "/" + name, true
	case indent == levels[len(levels)-1]:
		return levels, joinPath(parentPath(current), name), true
	default:
		idx := -1
		for i, lvl := range levels {
			if lvl == indent {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, "", false
		}
		for i := 0; i < len(levels)-idx-1; i++ {
			current = parentPath(current)
		}
		return levels[:idx+1], joinPath(parentPath(current), name), true
	}
}

// subTreeDir computes the directory a sub-tree inclusion attaches to.
func subTreeDir(levels []int, current, directory string, indent int) (string, []int, string, bool) {
	switch {
	case len(levels) == 0:
		return directory, levels, current, true
	case indent > levels[len(levels)-1]:
		return current, levels, current, true
	case indent == levels[len(levels)-1]:
		return parentPath(current), levels, current, true
	default:
		idx := -1
		for i, lvl := range levels {
			if lvl == indent {
				idx = i
				break
			}
		}
		if idx < 0 {
			return "", nil, "", false
		}
		for i := 0; i < len(levels)-idx-1; i++ {
			current = parentPath(current)
		}
		return parentPath(current), levels[:idx+1], current, true
	}
}

func parseInlineVars(s string) (template.Bindings, error) {
	out := template.Bindings{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, &ParseError{Line: pair, Reason: "expected key=value"}
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

func parentPath(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}
