package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// Unset is the sentinel value for a variable that is not bound. It is
	// distinct from every real value a variable can take (captured values
	// are always at least one character) and sorts before all of them.
	Unset = ""

	// Wildcard is the reserved query marker meaning "any value". Binding a
	// variable to Wildcard is equivalent to leaving it unbound.
	Wildcard = "*"
)

// MaxOptionalVariables caps the number of optional variables a single
// template may carry. Subset enumeration is O(2^k) in the optional-variable
// count; templates above the cap fail with a SubsetLimitError instead of
// silently exploding.
var MaxOptionalVariables = 12

// Bindings maps variable names to values. A variable mapped to Unset
// behaves as if it were absent.
type Bindings map[string]string

// Clone returns a shallow copy of the bindings.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// isSet reports whether name has a real (non-Unset) value.
func (b Bindings) isSet(name string) bool {
	v, ok := b[name]
	return ok && v != Unset
}

// signature returns a canonical textual form, used for de-duplication and
// deterministic ordering of binding sets.
func (b Bindings) signature() string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b[k])
		sb.WriteByte(';')
	}
	return sb.String()
}

// Variables returns the sorted set of every variable name in the template,
// inside or outside optional regions.
func (t Template) Variables() []string {
	seen := map[string]struct{}{}
	collectVariables(t.parts, seen)
	return sortedKeys(seen)
}

// RequiredVariables returns the sorted set of variables that appear outside
// every optional region. These must be bound to resolve the template.
func (t Template) RequiredVariables() []string {
	seen := map[string]struct{}{}
	for _, p := range t.parts {
		if v, ok := p.(Variable); ok {
			seen[v.Name] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// OptionalVariables returns the sorted set of variables that appear only
// inside optional regions. Leaving one unbound elides its region instead of
// failing resolution.
func (t Template) OptionalVariables() []string {
	required := map[string]struct{}{}
	all := map[string]struct{}{}
	for _, p := range t.parts {
		if v, ok := p.(Variable); ok {
			required[v.Name] = struct{}{}
		}
	}
	collectVariables(t.parts, all)
	for name := range required {
		delete(all, name)
	}
	return sortedKeys(all)
}

func collectVariables(parts []Part, into map[string]struct{}) {
	for _, p := range parts {
		switch p := p.(type) {
		case Variable:
			into[p.Name] = struct{}{}
		case Optional:
			collectVariables(p.Sub.parts, into)
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FillKnown substitutes every variable bound in vars with its formatted
// value. The substituted text is inserted as an opaque Literal and never
// re-parsed as syntax. An optional region left without any variables is
// flattened into its surrounding template. Iterates to a fixed point of the
// textual form.
func (t Template) FillKnown(vars Bindings) Template {
	cur := t
	prev := ""
	for s := cur.String(); s != prev; s = cur.String() {
		prev = s
		cur = Template{parts: fillParts(cur.parts, vars)}
	}
	return cur
}

func fillParts(parts []Part, vars Bindings) []Part {
	var out []Part
	for _, p := range parts {
		switch p := p.(type) {
		case Literal:
			out = append(out, p)
		case Variable:
			if vars.isSet(p.Name) {
				out = append(out, Literal(formatValue(vars[p.Name], p.Format)))
			} else {
				out = append(out, p)
			}
		case Optional:
			sub := fillParts(p.Sub.parts, vars)
			// An optional region is flattened once it has no required
			// variable of its own; variables inside nested optionals do not
			// keep it alive, they stay undetermined in the inlined parts.
			if len((Template{parts: sub}).RequiredVariables()) == 0 {
				out = append(out, sub...)
			} else {
				out = append(out, Optional{Sub: Template{parts: sub}})
			}
		}
	}
	return out
}

// RemoveOptionals drops optional regions. With a nil target every optional
// part is dropped; otherwise only those whose variable set intersects target
// are dropped, and the survivors are pruned recursively.
func (t Template) RemoveOptionals(target map[string]struct{}) Template {
	return Template{parts: removeOptionals(t.parts, target)}
}

func removeOptionals(parts []Part, target map[string]struct{}) []Part {
	var out []Part
	for _, p := range parts {
		opt, ok := p.(Optional)
		if !ok {
			out = append(out, p)
			continue
		}
		if target == nil {
			continue
		}
		vars := map[string]struct{}{}
		collectVariables(opt.Sub.parts, vars)
		drop := false
		for name := range vars {
			if _, hit := target[name]; hit {
				drop = true
				break
			}
		}
		if drop {
			continue
		}
		out = append(out, Optional{Sub: Template{parts: removeOptionals(opt.Sub.parts, target)}})
	}
	return out
}

// Resolve fills vars into the template, drops every optional region that is
// still undetermined, and returns the concrete path. Required variables
// without a binding yield a MissingError naming all of them.
func (t Template) Resolve(vars Bindings) (string, error) {
	final := t.FillKnown(vars).RemoveOptionals(nil)
	if missing := final.Variables(); len(missing) > 0 {
		return "", &MissingError{Scope: t.String(), Names: missing}
	}
	return collapseSlashes(final.String()), nil
}

// OptionalSubsets enumerates every way of keeping or dropping each optional
// variable independently: for each subset of the optional-variable set it
// yields RemoveOptionals(complement). 2^k variants for k optional variables,
// bounded by MaxOptionalVariables.
func (t Template) OptionalSubsets() ([]Template, error) {
	optional := t.OptionalVariables()
	if len(optional) > MaxOptionalVariables {
		return nil, &SubsetLimitError{Count: len(optional), Limit: MaxOptionalVariables}
	}
	variants := make([]Template, 0, 1<<len(optional))
	for mask := (1 << len(optional)) - 1; mask >= 0; mask-- {
		drop := map[string]struct{}{}
		for i, name := range optional {
			if mask&(1<<i) == 0 {
				drop[name] = struct{}{}
			}
		}
		variants = append(variants, t.RemoveOptionals(drop))
	}
	return variants, nil
}

// linear flattens the template into a sequence of Literal and Variable
// parts, inlining every remaining optional region and merging adjacent
// literals. Duplicate slashes produced by elided directory segments are
// collapsed inside merged literals.
func (t Template) linear() []Part {
	var out []Part
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, Literal(collapseSlashes(lit.String())))
			lit.Reset()
		}
	}
	var walk func(parts []Part)
	walk = func(parts []Part) {
		for _, p := range parts {
			switch p := p.(type) {
			case Literal:
				lit.WriteString(string(p))
			case Variable:
				flush()
				out = append(out, p)
			case Optional:
				walk(p.Sub.parts)
			}
		}
	}
	walk(t.parts)
	flush()
	return out
}

// orderedVariables returns every variable occurrence in template order,
// duplicates preserved, optional regions included.
func (t Template) orderedVariables() []Variable {
	var out []Variable
	var walk func(parts []Part)
	walk = func(parts []Part) {
		for _, p := range parts {
			switch p := p.(type) {
			case Variable:
				out = append(out, p)
			case Optional:
				walk(p.Sub.parts)
			}
		}
	}
	walk(t.parts)
	return out
}

// formatValue applies a {name:format} hint to a value. Supported hints are
// printf-style integer widths ("3d", "04d"); anything else falls back to the
// raw value.
func formatValue(value, format string) string {
	if format == "" || !strings.HasSuffix(format, "d") {
		return value
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return value
	}
	spec := strings.TrimSuffix(format, "d")
	pad := strings.HasPrefix(spec, "0")
	width, err := strconv.Atoi(strings.TrimPrefix(spec, "0"))
	if err != nil {
		if spec == "" || spec == "0" {
			return strconv.Itoa(n)
		}
		return value
	}
	if pad {
		return fmt.Sprintf("%0*d", width, n)
	}
	return fmt.Sprintf("%*d", width, n)
}

// collapseSlashes rewrites every run of slashes to a single slash. Elided
// optional directory segments leave "//" behind, which never denotes a real
// path boundary here.
func collapseSlashes(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}
