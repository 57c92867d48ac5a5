package expr

// Op is a comparison operator between an expression and a value.
type Op string

const (
	OpEq    Op = "="
	OpNeq   Op = "!="
	OpGt    Op = ">"
	OpGte   Op = ">="
	OpLt    Op = "<"
	OpLte   Op = "<="
	OpIn    Op = "IN"
	OpNotIn Op = "NOT IN"
)

// Negate returns the operator selecting exactly the complement.
// Negate(Negate(op)) == op for every defined operator.
func (o Op) Negate() Op {
	switch o {
	case OpEq:
		return OpNeq
	case OpNeq:
		return OpEq
	case OpGt:
		return OpLte
	case OpLte:
		return OpGt
	case OpLt:
		return OpGte
	case OpGte:
		return OpLt
	case OpIn:
		return OpNotIn
	case OpNotIn:
		return OpIn
	default:
		return o
	}
}

// IsRelational reports whether o orders values (>, >=, <, <=).
func (o Op) IsRelational() bool {
	switch o {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// IsList reports whether o takes a list on its right-hand side.
func (o Op) IsList() bool {
	return o == OpIn || o == OpNotIn
}

// Expression is a value-producing expression: a column, a function call or
// a literal argument.
type Expression interface {
	expressionMarker()
}

// Column references a backend column by its storage name.
type Column struct {
	Name string
}

// Function is a backend function applied to its arguments.
type Function struct {
	Name string
	Args []Expression
}

// Literal is a constant function argument.
type Literal struct {
	Value any
}

func (Column) expressionMarker()   {}
func (Function) expressionMarker() {}
func (Literal) expressionMarker()  {}

// Selected is one entry of a select list.
type Selected struct {
	Alias string
	Expr  Expression
}

// Node is a boolean node of a where tree.
type Node interface {
	nodeMarker()
}

// Condition is a leaf test: LHS Op RHS. RHS holds a backend-native value
// (int64, float64, string, bool, time.Time or a slice of one of those for
// list operators).
type Condition struct {
	LHS Expression
	Op  Op
	RHS any
}

// And is true when every child is true. An empty And matches everything.
type And struct {
	Children []Node
}

// Or is true when any child is true.
type Or struct {
	Children []Node
}

func (Condition) nodeMarker() {}
func (And) nodeMarker()       {}
func (Or) nodeMarker()        {}

func Col(name string) Column { return Column{Name: name} }

func Fn(name string, args ...Expression) Function {
	return Function{Name: name, Args: args}
}

func Lit(v any) Literal { return Literal{Value: v} }

func Cond(lhs Expression, op Op, rhs any) Condition {
	return Condition{LHS: lhs, Op: op, RHS: rhs}
}

func NewAnd(children ...Node) And { return And{Children: children} }

func NewOr(children ...Node) Or { return Or{Children: children} }

// Walk calls fn for every node of the tree in depth-first order. Returning
// false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case And:
		for _, c := range x.Children {
			Walk(c, fn)
		}
	case Or:
		for _, c := range x.Children {
			Walk(c, fn)
		}
	}
}

// Conditions returns every leaf condition of n in depth-first order.
func Conditions(n Node) []Condition {
	var out []Condition
	Walk(n, func(n Node) bool {
		if c, ok := n.(Condition); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}
