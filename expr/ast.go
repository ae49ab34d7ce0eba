// Package expr implements the lazy expression language used by Computed,
// Rebuild, If, Switch and friends: a small `this.a.b`-style path
// language with arithmetic, comparison, ternary and function-call
// expressions, plus an escape hatch for plain Go closures. The AST
// (an Expr interface, with a Visitor for outside inspection) is built around dingsda's
// `this`/`this._`/`this._root` navigation surface.
package expr

import "github.com/ev1313/dingsda/container"

// Expr is any node of the expression AST. Context is always the
// currently active container.Container; Eval walks the tree against it.
type Expr interface {
	Eval(ctx *container.Container) (any, error)
	expr()
}

// Visitor lets callers without access to this package's internals still
// inspect an expression tree through Accept. Eval does not use it.
type Visitor interface {
	VisitLiteral(*Literal)
	VisitPath(*Path)
	VisitBinOp(*BinOp)
	VisitUnOp(*UnOp)
	VisitTernary(*Ternary)
	VisitCall(*Call)
	VisitIndex(*IndexExpr)
	VisitLambda(*LambdaExpr)
}

// Accept dispatches e to the appropriate Visitor method, for nodes that
// implement it (all concrete types below do).
func Accept(e Expr, v Visitor) {
	switch n := e.(type) {
	case *Literal:
		v.VisitLiteral(n)
	case *Path:
		v.VisitPath(n)
	case *BinOp:
		v.VisitBinOp(n)
	case *UnOp:
		v.VisitUnOp(n)
	case *Ternary:
		v.VisitTernary(n)
	case *Call:
		v.VisitCall(n)
	case *IndexExpr:
		v.VisitIndex(n)
	case *LambdaExpr:
		v.VisitLambda(n)
	}
}

// Literal is a constant bool/int/float/string/nil value.
type Literal struct{ Value any }

func (*Literal) expr() {}

// Path is a chain of field accesses rooted at `this`, optionally walking
// to the parent ("_") or root ("_root") first.
type Path struct {
	Parent bool // this._...
	Root   bool // this._root...
	Fields []string
}

func (*Path) expr() {}

// BinOpKind enumerates the supported binary operators.
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// BinOp is a binary operator expression.
type BinOp struct {
	Op          BinOpKind
	Left, Right Expr
}

func (*BinOp) expr() {}

// UnOpKind enumerates the supported unary operators.
type UnOpKind int

const (
	UnNeg UnOpKind = iota
	UnNot
)

// UnOp is a unary operator expression.
type UnOp struct {
	Op   UnOpKind
	Operand Expr
}

func (*UnOp) expr() {}

// Ternary is `Cond ? Then : Else`.
type Ternary struct {
	Cond, Then, Else Expr
}

func (*Ternary) expr() {}

// Call is a named built-in function applied to argument expressions
// (len_, sum_, min_, max_, obj_ -- see builtins.go).
type Call struct {
	Name string
	Args []Expr
}

func (*Call) expr() {}

// IndexExpr is `Base[Idx]`, e.g. this.items[0].
type IndexExpr struct {
	Base Expr
	Idx  Expr
}

func (*IndexExpr) expr() {}

// LambdaExpr wraps a Go closure as an Expr, the user-lambda escape
// hatch for logic too dynamic to express in the path language.
type LambdaExpr struct {
	Fn func(ctx *container.Container) (any, error)
}

func (*LambdaExpr) expr() {}

func (e *LambdaExpr) Eval(ctx *container.Container) (any, error) { return e.Fn(ctx) }

// Lambda wraps fn as an Expr.
func Lambda(fn func(ctx *container.Container) (any, error)) Expr {
	return &LambdaExpr{Fn: fn}
}

// Lit wraps a constant value as an Expr.
func Lit(v any) Expr { return &Literal{Value: v} }
