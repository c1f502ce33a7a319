package tree

import "fmt"

// UndefinedError reports a reference to something that does not exist: an
// unknown template short name, a sub-tree qualifier with no such child, a
// '../' qualifier on a top-level tree, or a tree definition file that could
// not be found on the search path.
type UndefinedError struct {
	Name string // the name or qualified name that failed to resolve
	Tree string // the tree the lookup started from, if any
}

func (e *UndefinedError) Error() string {
	if e.Tree == "" {
		return fmt.Sprintf("undefined reference %q", e.Name)
	}
	return fmt.Sprintf("undefined reference %q in tree %q", e.Name, e.Tree)
}

// ParseError reports a malformed line in a tree definition file.
type ParseError struct {
	File   string
	LineNo int
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %q", e.File, e.LineNo, e.Reason, e.Line)
}
