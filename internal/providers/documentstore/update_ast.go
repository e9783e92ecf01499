package documentstore

// UpdateExpr is the parsed form of an update expression (spec §4.4.3):
// zero or more clauses of each of the four kinds, applied in the fixed
// order SET -> REMOVE -> ADD -> DELETE regardless of their order in the
// source text.
type UpdateExpr struct {
	Sets    []SetAction
	Removes []string // dotted paths
	Adds    []AddAction
	Deletes []DeleteAction
}

// SetAction assigns the value of Expr to Path.
type SetAction struct {
	Path string
	Expr ValueExpr
}

// ValueExpr is the tagged union for a SET right-hand side: Arith{+|-} |
// IfNotExists | ListAppend | ValueRef | NameRef(as Path) | Literal.
type ValueExpr interface{ isValueExpr() }

type AtomExpr struct{ Node Node } // ValueRef | Path | Literal, reusing the filter-expr operand nodes
type ArithExpr struct {
	Op          byte // '+' or '-'
	Left, Right ValueExpr
}
type IfNotExistsExpr struct {
	Path    string
	Default ValueExpr
}
type ListAppendExpr struct {
	A, B ValueExpr
}

func (AtomExpr) isValueExpr()        {}
func (ArithExpr) isValueExpr()       {}
func (IfNotExistsExpr) isValueExpr() {}
func (ListAppendExpr) isValueExpr()  {}

// AddAction implements ADD path value: numeric addition or set union,
// creating the attribute with value if absent.
type AddAction struct {
	Path  string
	Value Node // ValueRef | Literal
}

// DeleteAction implements DELETE path value: set difference; no-op if
// missing or non-set.
type DeleteAction struct {
	Path  string
	Value Node
}
