package template

import (
	"sort"
	"strings"
)

// maxMatchCandidates bounds how many distinct variable assignments the
// matcher collects per subset variant. Two is enough to detect ambiguity;
// a few more keeps the error informative.
const maxMatchCandidates = 16

// ExtractVariables recovers variable values from a filename that matches the
// template. known variables are filled in first and reported back in the
// result. Variables belonging to elided optional regions come back as Unset.
//
// Every subset of the optional variables is tried: each variant is matched
// against the filename by enumerating all ways the variables can split it
// (a variable captures one or more non-slash characters, and a variable
// appearing twice must capture the same value both times). Among matching
// candidates the one binding the most variables wins, with the smallest
// total captured length as tie-break. A remaining tie between distinct
// assignments is an AmbiguousError; no candidate at all is a NoMatchError.
func (t Template) ExtractVariables(filename string, known Bindings) (Bindings, error) {
	filled := t.FillKnown(known)
	cleaned := collapseSlashes(filename)

	variants, err := filled.OptionalSubsets()
	if err != nil {
		return nil, err
	}

	type candidate struct {
		vars   Bindings
		bound  int
		caplen int
	}
	bySig := map[string]candidate{}

	// The result covers exactly the template's own variables: known values
	// for variables the template never mentions must not leak in.
	ownVars := t.Variables()
	for _, variant := range variants {
		for _, m := range matchLinear(variant.linear(), cleaned) {
			c := candidate{vars: Bindings{}}
			for name, value := range m {
				c.vars[name] = value
				c.bound++
				c.caplen += len(value)
			}
			for _, name := range ownVars {
				if _, ok := c.vars[name]; ok {
					continue
				}
				if value, ok := known[name]; ok && value != Unset {
					c.vars[name] = value
				} else {
					c.vars[name] = Unset
				}
			}
			bySig[c.vars.signature()] = c
		}
	}

	if len(bySig) == 0 {
		return nil, &NoMatchError{Filename: filename, Template: t.String()}
	}

	cands := make([]candidate, 0, len(bySig))
	for _, c := range bySig {
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].bound != cands[j].bound {
			return cands[i].bound > cands[j].bound
		}
		if cands[i].caplen != cands[j].caplen {
			return cands[i].caplen < cands[j].caplen
		}
		return cands[i].vars.signature() < cands[j].vars.signature()
	})

	best := cands[0]
	var tied []Bindings
	for _, c := range cands {
		if c.bound == best.bound && c.caplen == best.caplen {
			tied = append(tied, c.vars)
		}
	}
	if len(tied) > 1 {
		return nil, &AmbiguousError{Filename: filename, Candidates: tied}
	}
	return best.vars, nil
}

// matchLinear enumerates every assignment of the variables in parts that
// makes the concatenation equal s. parts must be a linear sequence of
// Literal and Variable (see Template.linear). Collection stops at
// maxMatchCandidates assignments.
func matchLinear(parts []Part, s string) []Bindings {
	var out []Bindings
	cur := Bindings{}

	var rec func(pi, si int)
	rec = func(pi, si int) {
		if len(out) >= maxMatchCandidates {
			return
		}
		if pi == len(parts) {
			if si == len(s) {
				out = append(out, cur.Clone())
			}
			return
		}
		switch p := parts[pi].(type) {
		case Literal:
			lit := string(p)
			if strings.HasPrefix(s[si:], lit) {
				rec(pi+1, si+len(lit))
			}
		case Variable:
			if prev, ok := cur[p.Name]; ok {
				// Repeated occurrence: must capture the identical value.
				if strings.HasPrefix(s[si:], prev) {
					rec(pi+1, si+len(prev))
				}
				return
			}
			for end := si + 1; end <= len(s); end++ {
				if s[end-1] == '/' {
					break
				}
				cur[p.Name] = s[si:end]
				rec(pi+1, end)
			}
			delete(cur, p.Name)
		}
	}
	rec(0, 0)
	return out
}
