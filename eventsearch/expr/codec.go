package expr

import (
	"time"
)

// ToMap converts a node into plain maps, slices and scalars so that it can be
// handed to JSON or msgpack encoders. Timestamps become RFC3339 strings.
func ToMap(n Node) map[string]any {
	switch x := n.(type) {
	case Condition:
		return map[string]any{
			"type": "condition",
			"lhs":  ExpressionToMap(x.LHS),
			"op":   string(x.Op),
			"rhs":  plainValue(x.RHS),
		}
	case And:
		return map[string]any{"type": "and", "children": childrenToMaps(x.Children)}
	case Or:
		return map[string]any{"type": "or", "children": childrenToMaps(x.Children)}
	default:
		return nil
	}
}

// ExpressionToMap is ToMap for value expressions.
func ExpressionToMap(x Expression) map[string]any {
	switch v := x.(type) {
	case Column:
		return map[string]any{"type": "column", "name": v.Name}
	case Function:
		args := make([]any, len(v.Args))
		for i, a := range v.Args {
			args[i] = ExpressionToMap(a)
		}
		return map[string]any{"type": "function", "name": v.Name, "args": args}
	case Literal:
		return map[string]any{"type": "literal", "value": plainValue(v.Value)}
	default:
		return nil
	}
}

func childrenToMaps(children []Node) []any {
	out := make([]any, len(children))
	for i, c := range children {
		out[i] = ToMap(c)
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []time.Time:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i].UTC().Format(time.RFC3339Nano)
		}
		return out
	default:
		return v
	}
}
