package ast

import "github.com/mna/tailbiter/lang/token"

// LiteralKind distinguishes the flavors of constant literal. Numeric kinds
// are kept distinct (Int vs Float) because the interning table keys
// constants on (value, type), so 1 and 1.0 must not collapse to one slot.
type LiteralKind uint8

const (
	IntLit LiteralKind = iota
	FloatLit
	StringLit
	BytesLit
	TrueLit
	FalseLit
	NoneLit
)

// Literal is a numeric, string, bytes or named-constant (True/False/None)
// literal.
type Literal struct {
	Base
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
	Bytes []byte
}

func (*Literal) exprNode()    {}
func (*Literal) Walk(Visitor) {}

// Name is an identifier reference, tagged with whether it is being read or
// assigned to.
type Name struct {
	Base
	Id  string
	Ctx ExprContext
}

func (*Name) exprNode()    {}
func (*Name) Walk(Visitor) {}

// UnaryOp applies a prefix operator (+, -, ~, not) to Operand.
type UnaryOp struct {
	Base
	Op      token.Token
	Operand Expr
}

func (*UnaryOp) exprNode() {}
func (u *UnaryOp) Walk(v Visitor) {
	Walk(v, u.Operand)
}

// BinOp applies an infix arithmetic/bitwise operator.
type BinOp struct {
	Base
	Op          token.Token
	Left, Right Expr
}

func (*BinOp) exprNode() {}
func (b *BinOp) Walk(v Visitor) {
	Walk(v, b.Left)
	Walk(v, b.Right)
}

// Compare is a single binary comparison (chained comparisons such as
// `a < b < c` are outside the accepted subset; this node holds exactly one
// operator, so a chain cannot be represented in it at all).
type Compare struct {
	Base
	Op          token.Token
	Left, Right Expr
}

func (*Compare) exprNode() {}
func (c *Compare) Walk(v Visitor) {
	Walk(v, c.Left)
	Walk(v, c.Right)
}

// BoolOp is a short-circuiting `and`/`or` chain of two or more values.
type BoolOp struct {
	Base
	Op     token.Token // AND or OR
	Values []Expr
}

func (*BoolOp) exprNode() {}
func (b *BoolOp) Walk(v Visitor) {
	WalkExprs(v, b.Values)
}

// IfExp is the conditional expression `body if test else orelse`.
type IfExp struct {
	Base
	Test, Body, Orelse Expr
}

func (*IfExp) exprNode() {}
func (i *IfExp) Walk(v Visitor) {
	Walk(v, i.Test)
	Walk(v, i.Body)
	Walk(v, i.Orelse)
}

// Attribute is `value.Attr`, read or written depending on Ctx.
type Attribute struct {
	Base
	Value Expr
	Attr  string
	Ctx   ExprContext
}

func (*Attribute) exprNode() {}
func (a *Attribute) Walk(v Visitor) {
	Walk(v, a.Value)
}

// Subscript is `value[index]`, read or written depending on Ctx.
type Subscript struct {
	Base
	Value, Index Expr
	Ctx          ExprContext
}

func (*Subscript) exprNode() {}
func (s *Subscript) Walk(v Visitor) {
	Walk(v, s.Value)
	Walk(v, s.Index)
}

// ListExpr is a list display, or, in Store context, a list-unpacking target.
type ListExpr struct {
	Base
	Elts []Expr
	Ctx  ExprContext
}

func (*ListExpr) exprNode() {}
func (l *ListExpr) Walk(v Visitor) {
	WalkExprs(v, l.Elts)
}

// TupleExpr is a tuple display, or, in Store context, a tuple-unpacking
// target.
type TupleExpr struct {
	Base
	Elts []Expr
	Ctx  ExprContext
}

func (*TupleExpr) exprNode() {}
func (t *TupleExpr) Walk(v Visitor) {
	WalkExprs(v, t.Elts)
}

// DictExpr is a dict display; Keys[i] maps to Values[i].
type DictExpr struct {
	Base
	Keys, Values []Expr
}

func (*DictExpr) exprNode() {}
func (d *DictExpr) Walk(v Visitor) {
	WalkExprs(v, d.Keys)
	WalkExprs(v, d.Values)
}

// Keyword is a single `name=value` call argument.
type Keyword struct {
	Base
	Arg   string
	Value Expr
}

func (k *Keyword) Walk(v Visitor) { Walk(v, k.Value) }

// Call invokes Func with positional Args, keyword Keywords, and optionally
// a star-args and/or star-kwargs expression.
type Call struct {
	Base
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
	Starargs Expr // nil if absent
	Kwargs   Expr // nil if absent
}

func (*Call) exprNode() {}
func (c *Call) Walk(v Visitor) {
	Walk(v, c.Func)
	WalkExprs(v, c.Args)
	for _, k := range c.Keywords {
		Walk(v, k.Value)
	}
	if c.Starargs != nil {
		Walk(v, c.Starargs)
	}
	if c.Kwargs != nil {
		Walk(v, c.Kwargs)
	}
}

// Arguments is a function's parameter list. Defaults and keyword-only
// parameters are outside the accepted subset (spec.md Non-goals); only
// positional parameters plus an optional *args/**kwargs are supported.
type Arguments struct {
	Args   []string
	Vararg string // "" if absent
	Kwarg  string // "" if absent
}

// all returns every parameter name, in the order new function-scope locals
// must be seeded: positional args, then vararg, then kwarg.
func (a *Arguments) all() []string {
	names := append([]string(nil), a.Args...)
	if a.Vararg != "" {
		names = append(names, a.Vararg)
	}
	if a.Kwarg != "" {
		names = append(names, a.Kwarg)
	}
	return names
}

// AllParams is exported for the scope analyzer, which needs the full set of
// names a function scope pre-defines before visiting its body.
func (a *Arguments) AllParams() []string { return a.all() }

// Function is the single unified node the desugarer produces in place of
// FunctionDef, Lambda and the comprehension's synthesized function. It is
// always an Expr: a plain `def`/`lambda` appears wrapped in an Assign by the
// desugarer, and a comprehension's function appears as the callee of a Call.
type Function struct {
	Base
	Name string
	Args *Arguments
	Body []Stmt
	Doc  string // docstring, if the first body statement was a bare string literal
}

func (*Function) exprNode() {}
func (f *Function) Walk(v Visitor) {
	WalkStmts(v, f.Body)
}

// --- pre-desugaring-only nodes ---
//
// These never appear in a tree that has been through lang/desugar; the
// conformity checker rejects any tree containing them after desugaring runs.

// Lambda is `lambda args: expr`, rewritten by the desugarer into a Function
// named "<lambda>".
type Lambda struct {
	Base
	Args *Arguments
	Body Expr
}

func (*Lambda) exprNode() {}
func (l *Lambda) Walk(v Visitor) {
	Walk(v, l.Body)
}

// Comprehension is one `for target in iter [if cond]*` clause of a list
// comprehension.
type Comprehension struct {
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

// ListComp is `[elt for ...]`, rewritten by the desugarer into an
// immediately-invoked `<listcomp>` Function.
type ListComp struct {
	Base
	Elt        Expr
	Generators []*Comprehension
}

func (*ListComp) exprNode() {}
func (l *ListComp) Walk(v Visitor) {
	Walk(v, l.Elt)
	for _, g := range l.Generators {
		Walk(v, g.Target)
		Walk(v, g.Iter)
		WalkExprs(v, g.Ifs)
	}
}
