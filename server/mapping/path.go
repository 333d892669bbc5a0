package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// toJq translates a JSON path (`$`, `$.a.b`, `$.a[0]`, `$['a b']`, `$.a[*]`) into a jq path expression.
func toJq(p string) (string, error) {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "$") {
		return "", fmt.Errorf("json path %q must start with '$'", p)
	}
	rest := p[1:]
	if rest == "" {
		return ".", nil
	}
	var sb strings.Builder
	sb.WriteByte('.')
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end == -1 {
				end = len(rest)
			}
			name := rest[:end]
			if name == "" {
				return "", fmt.Errorf("json path %q has an empty property name", p)
			}
			if name == "*" {
				sb.WriteString("[]")
			} else {
				sb.WriteString("[" + strconv.Quote(name) + "]")
			}
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return "", fmt.Errorf("json path %q has an unterminated '['", p)
			}
			sel := rest[1:end]
			switch {
			case sel == "*":
				sb.WriteString("[]")
			case len(sel) >= 2 && (sel[0] == '\'' || sel[0] == '"') && sel[len(sel)-1] == sel[0]:
				sb.WriteString("[" + strconv.Quote(sel[1:len(sel)-1]) + "]")
			default:
				idx, err := strconv.Atoi(sel)
				if err != nil {
					return "", fmt.Errorf("json path %q has an invalid index %q", p, sel)
				}
				sb.WriteString("[" + strconv.Itoa(idx) + "]")
			}
			rest = rest[end+1:]
		default:
			return "", fmt.Errorf("json path %q is malformed at %q", p, rest)
		}
	}
	return sb.String(), nil
}

// lookup walks doc along path. Missing keys and out of range indexes report false.
func lookup(doc any, path []any) (any, bool) {
	cur := doc
	for _, step := range path {
		switch s := step.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			v, ok := m[s]
			if !ok {
				return nil, false
			}
			cur = v
		case int:
			a, ok := cur.([]any)
			if !ok || s < 0 || s >= len(a) {
				return nil, false
			}
			cur = a[s]
		default:
			return nil, false
		}
	}
	return cur, true
}
