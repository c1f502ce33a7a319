package template

import (
	"path"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
)

// GlobAll marks every undetermined variable as globbable in GetAll.
var GlobAll = []string{Wildcard}

// GetAll finds every binding set for which the template resolves to an
// existing path on fsys. Variables listed in globVars (or all undetermined
// variables, for GlobAll) are substituted with a shell wildcard; every
// subset of the globbable optional variables is tried, each real match on
// disk is fed back through ExtractVariables, and the recovered binding sets
// are de-duplicated across variants. Undetermined required variables that
// are not globbable yield a MissingError.
func (t Template) GetAll(fsys billy.Filesystem, vars Bindings, globVars []string) ([]Bindings, error) {
	filled := t.FillKnown(vars)
	remaining := filled.Variables()
	optional := filled.OptionalVariables()

	glob := map[string]struct{}{}
	if len(globVars) == 1 && globVars[0] == Wildcard {
		for _, name := range remaining {
			glob[name] = struct{}{}
		}
	} else {
		for _, name := range globVars {
			glob[name] = struct{}{}
		}
	}
	for name := range glob {
		if vars.isSet(name) {
			delete(glob, name)
		}
	}

	optionalSet := map[string]struct{}{}
	for _, name := range optional {
		optionalSet[name] = struct{}{}
	}
	var missing []string
	var optGlob, reqGlob []string
	for _, name := range remaining {
		_, isOpt := optionalSet[name]
		_, isGlob := glob[name]
		switch {
		case isOpt && isGlob:
			optGlob = append(optGlob, name)
		case isGlob:
			reqGlob = append(reqGlob, name)
		case !isOpt:
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Scope: t.String(), Names: missing}
	}
	if len(optGlob) > MaxOptionalVariables {
		return nil, &SubsetLimitError{Count: len(optGlob), Limit: MaxOptionalVariables}
	}

	bySig := map[string]Bindings{}
	for mask := (1 << len(optGlob)) - 1; mask >= 0; mask-- {
		wildcards := Bindings{}
		for i, name := range optGlob {
			if mask&(1<<i) != 0 {
				wildcards[name] = Wildcard
			}
		}
		for _, name := range reqGlob {
			wildcards[name] = Wildcard
		}
		pattern := filled.FillKnown(wildcards).RemoveOptionals(nil)
		if len(pattern.Variables()) > 0 {
			// Dropped optionals removed the last references to some
			// globbable variables in this variant; the pattern is still
			// concrete for the rest. Should not happen, skip defensively.
			continue
		}
		names, err := Glob(fsys, pattern.String())
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			b, err := t.ExtractVariables(name, vars)
			if err != nil {
				continue
			}
			bySig[b.signature()] = b
		}
	}

	sigs := make([]string, 0, len(bySig))
	for sig := range bySig {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	out := make([]Bindings, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, bySig[sig])
	}
	return out, nil
}

// Glob matches a shell-style pattern (*, ?, [...] within one segment)
// against fsys, segment by segment. billy has no glob helper of its own, so
// matching is path.Match over ReadDir listings. Returned paths are sorted.
func Glob(fsys billy.Filesystem, pattern string) ([]string, error) {
	pattern = collapseSlashes(pattern)
	segments := strings.Split(pattern, "/")
	current := []string{""}
	if strings.HasPrefix(pattern, "/") {
		current = []string{"/"}
		segments = segments[1:]
	}
	for _, seg := range segments {
		if seg == "" || seg == "." {
			continue
		}
		var next []string
		if !strings.ContainsAny(seg, "*?[") {
			for _, dir := range current {
				p := joinSegment(dir, seg)
				if _, err := fsys.Lstat(p); err == nil {
					next = append(next, p)
				}
			}
		} else {
			for _, dir := range current {
				readFrom := dir
				if readFrom == "" {
					readFrom = "."
				}
				entries, err := fsys.ReadDir(readFrom)
				if err != nil {
					continue
				}
				for _, entry := range entries {
					if ok, _ := path.Match(seg, entry.Name()); ok {
						next = append(next, joinSegment(dir, entry.Name()))
					}
				}
			}
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	sort.Strings(current)
	return current, nil
}

func joinSegment(dir, name string) string {
	switch dir {
	case "":
		return name
	case "/":
		return "/" + name
	default:
		return dir + "/" + name
	}
}
