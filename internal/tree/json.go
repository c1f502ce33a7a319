package tree

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
)

// EncodeJSON serializes the tree (templates, variables, sub-trees) as
// indented JSON. Parent links are navigational and never serialized; they
// are rebuilt on decode.
func (n *Node) EncodeJSON() []byte {
	return []byte(oj.JSON(n.toJSON(), 2))
}

func (n *Node) toJSON() map[string]any {
	subs := map[string]any{}
	for name, sub := range n.SubTrees {
		subs[name] = sub.toJSON()
	}
	return map[string]any{
		"name":      n.Name,
		"templates": stringAnyMap(n.Templates),
		"variables": stringAnyMap(n.Variables),
		"sub_trees": subs,
	}
}

func stringAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DecodeJSON rebuilds a tree from EncodeJSON output.
func DecodeJSON(data []byte) (*Node, error) {
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse tree JSON: %w", err)
	}
	return fromJSON(v)
}

func fromJSON(v any) (*Node, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tree JSON: expected object, got %T", v)
	}
	name, _ := obj["name"].(string)
	node := New(name)
	if err := fillStringMap(obj["templates"], node.Templates); err != nil {
		return nil, fmt.Errorf("tree JSON templates: %w", err)
	}
	if err := fillStringMap(obj["variables"], node.Variables); err != nil {
		return nil, fmt.Errorf("tree JSON variables: %w", err)
	}
	if subs, ok := obj["sub_trees"].(map[string]any); ok {
		for short, sv := range subs {
			sub, err := fromJSON(sv)
			if err != nil {
				return nil, err
			}
			node.SubTrees[short] = sub
			sub.parent = node
		}
	}
	return node, nil
}

func fillStringMap(v any, into map[string]string) error {
	if v == nil {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", v)
	}
	for k, raw := range obj {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("expected string value for %q, got %T", k, raw)
		}
		into[k] = s
	}
	return nil
}
