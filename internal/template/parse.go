// Package template implements the templated-path mini language: path
// patterns containing literal text, {variable} references with an optional
// :format hint, and [optional] bracketed sub-patterns that are elided when
// their variables are unbound. It provides parsing, substitution, resolution
// to concrete paths, filesystem globbing over undetermined variables, and
// extraction of variable values back out of matched filenames.
package template

import "strings"

// Part is one element of a parsed template: a Literal, a Variable, or an
// Optional sub-template.
type Part interface {
	String() string
}

// Literal is fixed text, emitted verbatim. Text substituted for a variable
// becomes a Literal and is never re-interpreted as template syntax.
type Literal string

func (l Literal) String() string { return string(l) }

// Variable is a named reference that must be bound to produce a concrete
// path. Format is the optional stringification hint after the colon in
// {name:format}.
type Variable struct {
	Name   string
	Format string
}

func (v Variable) String() string {
	if v.Format == "" {
		return "{" + v.Name + "}"
	}
	return "{" + v.Name + ":" + v.Format + "}"
}

// Optional is a bracketed sub-template, emitted only if every variable
// inside it ends up bound.
type Optional struct {
	Sub Template
}

func (o Optional) String() string { return "[" + o.Sub.String() + "]" }

// Template is an ordered sequence of parts. The zero value is the empty
// template. Templates are immutable: every operation returns a new one.
type Template struct {
	parts []Part
}

// String reconstructs the template text. For any text accepted by Parse,
// Parse(text).String() == text.
func (t Template) String() string {
	var sb strings.Builder
	for _, p := range t.parts {
		sb.WriteString(p.String())
	}
	return sb.String()
}

// Parts returns the ordered part sequence.
func (t Template) Parts() []Part {
	return append([]Part(nil), t.parts...)
}

// Parse turns template text into a Template. Delimiters must be balanced:
// every [ has a matching ] and every { a matching }. Optional regions may
// nest; a { inside a variable reference is rejected.
func Parse(text string) (Template, error) {
	parts, err := parseParts(text, text)
	if err != nil {
		return Template{}, err
	}
	return Template{parts: parts}, nil
}

// MustParse is Parse for template text known to be valid, panicking on error.
func MustParse(text string) Template {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// parseParts parses text into parts. full is the outermost template text,
// used in error messages.
func parseParts(text, full string) ([]Part, error) {
	var parts []Part
	i := 0
	for i < len(text) {
		switch text[i] {
		case '[':
			end, ok := matchBracket(text, i)
			if !ok {
				return nil, &MalformedError{Text: full, Reason: "unbalanced '['"}
			}
			sub, err := parseParts(text[i+1:end], full)
			if err != nil {
				return nil, err
			}
			parts = append(parts, Optional{Sub: Template{parts: sub}})
			i = end + 1
		case ']':
			return nil, &MalformedError{Text: full, Reason: "unbalanced ']'"}
		default:
			j := i
			for j < len(text) && text[j] != '[' && text[j] != ']' {
				j++
			}
			flat, err := parseFlat(text[i:j], full)
			if err != nil {
				return nil, err
			}
			parts = append(parts, flat...)
			i = j
		}
	}
	return parts, nil
}

// parseFlat parses a span containing no optional brackets into Literal and
// Variable parts.
func parseFlat(text, full string) ([]Part, error) {
	var parts []Part
	i := 0
	for i < len(text) {
		open := strings.IndexByte(text[i:], '{')
		closeIdx := strings.IndexByte(text[i:], '}')
		if open < 0 {
			if closeIdx >= 0 {
				return nil, &MalformedError{Text: full, Reason: "unbalanced '}'"}
			}
			parts = append(parts, Literal(text[i:]))
			break
		}
		if closeIdx >= 0 && closeIdx < open {
			return nil, &MalformedError{Text: full, Reason: "unbalanced '}'"}
		}
		if open > 0 {
			parts = append(parts, Literal(text[i:i+open]))
		}
		i += open
		end := strings.IndexByte(text[i:], '}')
		if end < 0 {
			return nil, &MalformedError{Text: full, Reason: "unbalanced '{'"}
		}
		inner := text[i+1 : i+end]
		if strings.IndexByte(inner, '{') >= 0 {
			return nil, &MalformedError{Text: full, Reason: "'{' nested inside a variable reference"}
		}
		name, format := inner, ""
		if c := strings.IndexByte(inner, ':'); c >= 0 {
			name, format = inner[:c], inner[c+1:]
		}
		if name == "" {
			return nil, &MalformedError{Text: full, Reason: "empty variable name"}
		}
		parts = append(parts, Variable{Name: name, Format: format})
		i += end + 1
	}
	return parts, nil
}

// matchBracket returns the index of the ']' matching the '[' at start.
func matchBracket(text string, start int) (int, bool) {
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
