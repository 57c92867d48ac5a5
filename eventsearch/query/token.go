package query

import (
	"fmt"
	"strings"

	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

// TokenKind is the type of token
type TokenKind int

const (
	TokFieldCondition TokenKind = iota
	TokFreeText
	TokBooleanOp
	TokGroupOpen
	TokGroupClose
)

func (k TokenKind) String() string {
	switch k {
	case TokFieldCondition:
		return "FieldCondition"
	case TokFreeText:
		return "FreeText"
	case TokBooleanOp:
		return "BooleanOp"
	case TokGroupOpen:
		return "GroupOpen"
	case TokGroupClose:
		return "GroupClose"
	default:
		return "Unknown"
	}
}

// Token is one element of a parsed filter query.
//
// For TokFieldCondition, Field names the public field, Operator is the
// comparison written by the user (EQ when none was given, IN for a bracket
// list) and either Value or Values carries the raw text. Raw text keeps
// backslash escapes verbatim so that the normalizer can tell `\*` from `*`.
// For TokFreeText only Value, Quoted and Negated are set. TokBooleanOp carries
// "AND" or "OR" in Value.
type Token struct {
	Kind     TokenKind
	Field    string
	Negated  bool
	Operator expr.Op
	Value    string
	Values   []string
	Quoted   bool
	Pos      int
}

// IsList reports whether the token carries a multi-value list.
func (t Token) IsList() bool {
	return t.Kind == TokFieldCondition && t.Operator == expr.OpIn
}

func (t Token) String() string {
	switch t.Kind {
	case TokFieldCondition:
		neg := ""
		if t.Negated {
			neg = "!"
		}
		if t.IsList() {
			return fmt.Sprintf("%s%s:[%s]", neg, t.Field, strings.Join(t.Values, ","))
		}
		op := ""
		if t.Operator != expr.OpEq {
			op = string(t.Operator)
		}
		return fmt.Sprintf("%s%s:%s%s", neg, t.Field, op, t.Value)
	case TokFreeText:
		if t.Negated {
			return "!" + t.Value
		}
		return t.Value
	case TokBooleanOp:
		return t.Value
	case TokGroupOpen:
		return "("
	case TokGroupClose:
		return ")"
	default:
		return "?"
	}
}
