package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
)

func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// normalize converts arbitrary Go values (structs, typed slices, ints) into the
// JSON-shaped representation stored in the tree.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("docstore: decode value: %w", err)
	}
	return out, nil
}

func getAt(root map[string]any, segs []string) any {
	var node any = root
	for _, seg := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = m[seg]
		if !ok {
			return nil
		}
	}
	if m, ok := node.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	return clone(node)
}

// setAt writes value at segs and returns the (possibly new) root. Empty
// intermediate objects left behind by a delete are pruned.
func setAt(root map[string]any, segs []string, value any) map[string]any {
	if len(segs) == 0 {
		if m, ok := value.(map[string]any); ok {
			return m
		}
		return map[string]any{}
	}
	if root == nil {
		root = map[string]any{}
	}
	head, rest := segs[0], segs[1:]
	if len(rest) == 0 {
		if value == nil {
			delete(root, head)
		} else {
			root[head] = value
		}
		return root
	}
	child, _ := root[head].(map[string]any)
	if child == nil && value == nil {
		return root
	}
	child = setAt(child, rest, value)
	if len(child) == 0 {
		delete(root, head)
	} else {
		root[head] = child
	}
	return root
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = clone(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = clone(vv)
		}
		return out
	default:
		return v
	}
}

// overlaps reports whether a change at one path is visible to a watcher of the other.
func overlaps(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinPath(segs []string) string {
	return strings.Join(segs, "/")
}
