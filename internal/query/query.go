package query

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/pathtree/internal/template"
	"github.com/agentic-research/pathtree/internal/tree"
)

// Query holds the result of one scan, indexed for repeated lookups. It is
// read-only after construction.
type Query struct {
	matches []Match
	domains map[string][]string // variable name to global sorted value domain
	indexes map[string]*index   // per short name
	defined map[string]struct{} // every short name the tree defines
}

// index is the per-short-name lookup structure: a dense array with one axis
// per variable plus one bitmap per (variable, value) over match ordinals.
type index struct {
	axes    []string            // sorted variable names, canonical axis order
	domains map[string][]string // sorted values seen for this short name, per variable
	shape   []int
	strides []int
	cells   []*Match // dense; nil marks an empty cell
	bitmaps map[string]map[string]*roaring.Bitmap
	order   []Match // matches of this short name, by filename
}

// New scans the tree and builds the index.
func New(n *tree.Node) (*Query, error) {
	matches, err := Scan(n)
	if err != nil {
		return nil, err
	}
	q, err := NewFromMatches(matches)
	if err != nil {
		return nil, err
	}
	collectDefined(n, "", q.defined)
	return q, nil
}

// NewFromMatches builds the index from a previously obtained match set,
// e.g. one loaded from a match store. Only short names present in the
// matches are known to the resulting Query.
func NewFromMatches(matches []Match) (*Query, error) {
	sorted := append([]Match(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	domains, _ := AllVariables(sorted)
	q := &Query{
		matches: sorted,
		domains: domains,
		indexes: map[string]*index{},
		defined: map[string]struct{}{},
	}

	perShort := map[string][]Match{}
	for _, m := range sorted {
		perShort[m.ShortName] = append(perShort[m.ShortName], m)
		q.defined[m.ShortName] = struct{}{}
	}
	for short, ms := range perShort {
		idx, err := buildIndex(ms)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", short, err)
		}
		q.indexes[short] = idx
	}
	return q, nil
}

func collectDefined(n *tree.Node, prefix string, into map[string]struct{}) {
	for short := range n.Templates {
		into[prefix+short] = struct{}{}
	}
	for name, sub := range n.SubTrees {
		collectDefined(sub, prefix+name+"/", into)
	}
}

func buildIndex(matches []Match) (*index, error) {
	axisSet := map[string]struct{}{}
	valueSets := map[string]map[string]struct{}{}
	for _, m := range matches {
		for name, value := range m.Variables {
			axisSet[name] = struct{}{}
			if valueSets[name] == nil {
				valueSets[name] = map[string]struct{}{}
			}
			valueSets[name][value] = struct{}{}
		}
	}
	idx := &index{
		axes:    sortedValues(axisSet),
		domains: map[string][]string{},
		bitmaps: map[string]map[string]*roaring.Bitmap{},
		order:   matches,
	}
	idx.shape = make([]int, len(idx.axes))
	for i, name := range idx.axes {
		idx.domains[name] = sortedValues(valueSets[name])
		idx.shape[i] = len(idx.domains[name])
	}
	idx.strides = strides(idx.shape)
	idx.cells = make([]*Match, sizeOf(idx.shape))

	for ord := range matches {
		m := &matches[ord]
		offset := 0
		for i, name := range idx.axes {
			value := m.Variables[name] // missing key behaves as Unset
			domain := idx.domains[name]
			pos := sort.SearchStrings(domain, value)
			if pos >= len(domain) || domain[pos] != value {
				return nil, fmt.Errorf("internal consistency: %s has no domain entry for %s=%q",
					m.Filename, name, value)
			}
			offset += pos * idx.strides[i]
		}
		if idx.cells[offset] != nil {
			// One concrete file yields exactly one binding, so a collision
			// means extraction or scanning went wrong.
			return nil, fmt.Errorf("internal consistency: %s and %s map to the same coordinate",
				idx.cells[offset].Filename, m.Filename)
		}
		idx.cells[offset] = m

		for _, name := range idx.axes {
			value := m.Variables[name]
			if idx.bitmaps[name] == nil {
				idx.bitmaps[name] = map[string]*roaring.Bitmap{}
			}
			bm := idx.bitmaps[name][value]
			if bm == nil {
				bm = roaring.New()
				idx.bitmaps[name][value] = bm
			}
			bm.Add(uint32(ord))
		}
	}
	return idx, nil
}

func strides(shape []int) []int {
	out := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = acc
		acc *= shape[i]
	}
	return out
}

func sizeOf(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// ShortNames returns every short name with at least one match, sorted.
func (q *Query) ShortNames() []string {
	out := make([]string, 0, len(q.indexes))
	for short := range q.indexes {
		out = append(out, short)
	}
	sort.Strings(out)
	return out
}

// Matches returns all matches of the scan, ordered by filename.
func (q *Query) Matches() []Match {
	return append([]Match(nil), q.matches...)
}

// Variables returns value domains: for one short name when given, across
// the whole scan when shortName is empty. A defined short name with no
// matches yields an empty map.
func (q *Query) Variables(shortName string) (map[string][]string, error) {
	if shortName == "" {
		out := make(map[string][]string, len(q.domains))
		for name, values := range q.domains {
			out[name] = append([]string(nil), values...)
		}
		return out, nil
	}
	idx, err := q.lookup(shortName)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return map[string][]string{}, nil
	}
	out := make(map[string][]string, len(idx.domains))
	for name, values := range idx.domains {
		out[name] = append([]string(nil), values...)
	}
	return out, nil
}

// Axes returns the canonical axis order for a short name: its variables,
// sorted. The result is identical across calls and matches the shape of
// QueryArray.
func (q *Query) Axes(shortName string) ([]string, error) {
	idx, err := q.lookup(shortName)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}
	return append([]string(nil), idx.axes...), nil
}

// lookup distinguishes "defined but no matches" (nil index, nil error) from
// "no such short name" (UndefinedError).
func (q *Query) lookup(shortName string) (*index, error) {
	if idx, ok := q.indexes[shortName]; ok {
		return idx, nil
	}
	if _, ok := q.defined[shortName]; ok {
		return nil, nil
	}
	return nil, &tree.UndefinedError{Name: shortName}
}

// Query returns the matches of a short name whose variables take the given
// values, ordered by filename. A variable bound to template.Wildcard is
// ignored; binding a variable the short name does not use filters
// everything out unless the requested value is template.Unset.
func (q *Query) Query(shortName string, vars template.Bindings) ([]Match, error) {
	idx, err := q.lookup(shortName)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}

	sel := roaring.New()
	sel.AddRange(0, uint64(len(idx.order)))
	for name, value := range vars {
		if value == template.Wildcard {
			continue
		}
		byValue, isAxis := idx.bitmaps[name]
		if !isAxis {
			// Variable unknown to this short name: every match behaves as
			// Unset for it.
			if value == template.Unset {
				continue
			}
			return nil, nil
		}
		bm := byValue[value]
		if bm == nil {
			return nil, nil
		}
		sel.And(bm)
	}

	out := make([]Match, 0, sel.GetCardinality())
	it := sel.Iterator()
	for it.HasNext() {
		out = append(out, idx.order[it.Next()])
	}
	return out, nil
}

// Result is a dense N-dimensional array of matches. Its axes always equal
// Axes(shortName): bound variables keep a degenerate length-1 axis, so the
// rank never varies with the number of bound variables.
type Result struct {
	AxisNames []string
	Shape     []int
	strides   []int
	cells     []*Match
}

// At returns the match at a coordinate, one index per axis. The second
// return is false for empty cells.
func (r *Result) At(coord ...int) (Match, bool) {
	if len(coord) != len(r.Shape) {
		return Match{}, false
	}
	offset := 0
	for i, c := range coord {
		if c < 0 || c >= r.Shape[i] {
			return Match{}, false
		}
		offset += c * r.strides[i]
	}
	if offset >= len(r.cells) || r.cells[offset] == nil {
		return Match{}, false
	}
	return *r.cells[offset], true
}

// Matches returns the non-empty cells in row-major order.
func (r *Result) Matches() []Match {
	var out []Match
	for _, c := range r.cells {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// QueryArray is Query in array form: the dense index sliced by the given
// bindings. Each bound axis is reduced to the single index of its value
// (length 1, or length 0 if the value was never observed); unbound axes are
// kept whole.
func (q *Query) QueryArray(shortName string, vars template.Bindings) (*Result, error) {
	idx, err := q.lookup(shortName)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return &Result{}, nil
	}

	// A real value for a variable this short name never uses can match
	// nothing: every match behaves as Unset for it. This must agree with
	// list-mode Query even at rank 0, where no axis exists to empty out.
	impossible := false
	for name, value := range vars {
		if value == template.Wildcard || value == template.Unset {
			continue
		}
		if _, isAxis := idx.bitmaps[name]; !isAxis {
			impossible = true
			break
		}
	}

	// Per axis: the selected source indices.
	selected := make([][]int, len(idx.axes))
	for i, name := range idx.axes {
		if impossible {
			continue
		}
		value, bound := vars[name]
		if !bound || value == template.Wildcard {
			all := make([]int, idx.shape[i])
			for j := range all {
				all[j] = j
			}
			selected[i] = all
			continue
		}
		domain := idx.domains[name]
		pos := sort.SearchStrings(domain, value)
		if pos < len(domain) && domain[pos] == value {
			selected[i] = []int{pos}
		}
	}

	res := &Result{
		AxisNames: append([]string(nil), idx.axes...),
		Shape:     make([]int, len(idx.axes)),
	}
	for i := range selected {
		res.Shape[i] = len(selected[i])
	}
	res.strides = strides(res.Shape)
	if impossible {
		return res, nil
	}
	res.cells = make([]*Match, sizeOf(res.Shape))

	coord := make([]int, len(res.Shape))
	for flat := 0; flat < len(res.cells); flat++ {
		rem := flat
		srcOffset := 0
		for i := range coord {
			coord[i] = rem / res.strides[i]
			rem %= res.strides[i]
			srcOffset += selected[i][coord[i]] * idx.strides[i]
		}
		res.cells[flat] = idx.cells[srcOffset]
	}
	return res, nil
}
