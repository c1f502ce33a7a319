package template

import (
	"fmt"
	"sort"
	"strings"
)

// MalformedError reports template text that violates the grammar:
// unbalanced [ ] or { } delimiters, or a { nested inside a variable reference.
type MalformedError struct {
	Text   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed template %q: %s", e.Text, e.Reason)
}

// MissingError reports required variables that had no binding at resolve time.
// Scope names the enclosing template or tree, when known.
type MissingError struct {
	Scope string
	Names []string
}

func (e *MissingError) Error() string {
	names := append([]string(nil), e.Names...)
	sort.Strings(names)
	if e.Scope == "" {
		return fmt.Sprintf("missing variables: %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("missing variables in %s: %s", e.Scope, strings.Join(names, ", "))
}

// AmbiguousError reports an extraction where two or more candidate variable
// assignments matched the filename equally well. Candidates holds every
// top-scoring assignment, so callers can inspect the alternatives.
type AmbiguousError struct {
	Filename   string
	Candidates []Bindings
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous parse of %q: %d equally plausible variable assignments",
		e.Filename, len(e.Candidates))
}

// NoMatchError reports a filename that matched no variant of the template.
type NoMatchError struct {
	Filename string
	Template string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%q does not match template %q", e.Filename, e.Template)
}

// SubsetLimitError reports a template whose optional-variable count exceeds
// MaxOptionalVariables. Enumerating optional subsets is O(2^k), so the limit
// is enforced up front instead of silently iterating.
type SubsetLimitError struct {
	Count int
	Limit int
}

func (e *SubsetLimitError) Error() string {
	return fmt.Sprintf("template has %d optional variables, more than the limit of %d (2^%d subset variants)",
		e.Count, e.Limit, e.Count)
}
