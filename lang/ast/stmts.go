package ast

import "strings"

// ExprStmt is an expression evaluated for its side effect and discarded.
type ExprStmt struct {
	Base
	Value Expr
}

func (*ExprStmt) stmtNode() {}
func (e *ExprStmt) Walk(v Visitor) {
	Walk(v, e.Value)
}

// Assign is `target1 = target2 = ... = value`. Every target is stored to
// with the same value (see lang/compiler's DUP_TOP fold).
type Assign struct {
	Base
	Targets []Expr
	Value   Expr
}

func (*Assign) stmtNode() {}
func (a *Assign) Walk(v Visitor) {
	Walk(v, a.Value)
	WalkExprs(v, a.Targets)
}

// If is `if test: body else: orelse`. Orelse is empty (not nil) when there
// is no else-clause.
type If struct {
	Base
	Test         Expr
	Body, Orelse []Stmt
}

func (*If) stmtNode() {}
func (i *If) Walk(v Visitor) {
	Walk(v, i.Test)
	WalkStmts(v, i.Body)
	WalkStmts(v, i.Orelse)
}

// While is `while test: body`.
type While struct {
	Base
	Test Expr
	Body []Stmt
}

func (*While) stmtNode() {}
func (w *While) Walk(v Visitor) {
	Walk(v, w.Test)
	WalkStmts(v, w.Body)
}

// For is `for target in iter: body`.
type For struct {
	Base
	Target, Iter Expr
	Body         []Stmt
}

func (*For) stmtNode() {}
func (f *For) Walk(v Visitor) {
	Walk(v, f.Iter)
	Walk(v, f.Target)
	WalkStmts(v, f.Body)
}

// Return is `return [value]`; Value is nil for a bare return.
type Return struct {
	Base
	Value Expr // nil if bare
}

func (*Return) stmtNode() {}
func (r *Return) Walk(v Visitor) {
	if r.Value != nil {
		Walk(v, r.Value)
	}
}

// Raise is `raise exc`. Only the single-argument form is in the accepted
// subset (see spec.md §4.2's desugared Assert and §4.4's visit_Raise).
type Raise struct {
	Base
	Exc Expr
}

func (*Raise) stmtNode() {}
func (r *Raise) Walk(v Visitor) {
	Walk(v, r.Exc)
}

// ExceptHandler is one `except [Type [as Name]]: Body` clause of a Try.
// Type is nil for a bare `except:` clause; Name is "" when there is no
// `as` binding.
type ExceptHandler struct {
	Base
	Type Expr // nil matches any exception
	Name string
	Body []Stmt
}

func (h *ExceptHandler) Walk(v Visitor) {
	if h.Type != nil {
		Walk(v, h.Type)
	}
	WalkStmts(v, h.Body)
}

// Try is `try: Body except ...: ... [else: Orelse] [finally: Finalbody]`.
// Handlers are tried in order; the first whose Type the raised exception's
// class is a subclass of (or with Type == nil) runs. Orelse runs only if
// Body completed without raising; Finalbody always runs last, matching
// spec.md §4.5's finally block kind.
type Try struct {
	Base
	Body      []Stmt
	Handlers  []*ExceptHandler
	Orelse    []Stmt
	Finalbody []Stmt
}

func (*Try) stmtNode() {}
func (t *Try) Walk(v Visitor) {
	WalkStmts(v, t.Body)
	for _, h := range t.Handlers {
		Walk(v, h)
	}
	WalkStmts(v, t.Orelse)
	WalkStmts(v, t.Finalbody)
}

// Alias is one `name [as asname]` clause of an import statement.
type Alias struct {
	Name   string
	AsName string // "" if no "as" clause
}

// BoundName is the name this alias binds in the importing scope, for a
// `from m import x, y as z` clause: the exact name, never split on dots.
func (a Alias) BoundName() string {
	if a.AsName != "" {
		return a.AsName
	}
	return a.Name
}

// ImportBoundName is the name a plain `import a.b.c [as n]` clause binds:
// without an "as" clause, only the first dotted component is bound (Python
// `import a.b.c` binds "a", not "a.b.c").
func (a Alias) ImportBoundName() string {
	if a.AsName != "" {
		return a.AsName
	}
	if i := strings.IndexByte(a.Name, '.'); i >= 0 {
		return a.Name[:i]
	}
	return a.Name
}

// Import is `import a.b.c [as n], ...`.
type Import struct {
	Base
	Names []Alias
}

func (*Import) stmtNode()    {}
func (*Import) Walk(Visitor) {}

// ImportFrom is `from [level*.]module import x, y as z`.
type ImportFrom struct {
	Base
	Module string
	Level  int
	Names  []Alias
}

func (*ImportFrom) stmtNode()    {}
func (*ImportFrom) Walk(Visitor) {}

// Pass is a no-op statement.
type Pass struct{ Base }

func (*Pass) stmtNode()    {}
func (*Pass) Walk(Visitor) {}

// ClassDef is `class Name(bases): body`. Decorators are outside the
// accepted subset for classes (spec.md only desugars function decorators).
type ClassDef struct {
	Base
	Name  string
	Bases []Expr
	Body  []Stmt
	Doc   string
}

func (*ClassDef) stmtNode() {}
func (c *ClassDef) Walk(v Visitor) {
	WalkExprs(v, c.Bases)
	WalkStmts(v, c.Body)
}

// --- pre-desugaring-only nodes ---

// Assert is `assert test[, msg]`, rewritten by the desugarer into an If
// whose orelse raises AssertionError.
type Assert struct {
	Base
	Test Expr
	Msg  Expr // nil if absent
}

func (*Assert) stmtNode() {}
func (a *Assert) Walk(v Visitor) {
	Walk(v, a.Test)
	if a.Msg != nil {
		Walk(v, a.Msg)
	}
}

// FunctionDef is `[@d1 @d2] def name(args): body`, rewritten by the
// desugarer into an Assign of a (possibly decorator-wrapped) Function.
type FunctionDef struct {
	Base
	Name       string
	Args       *Arguments
	Body       []Stmt
	Decorators []Expr // applied innermost (nearest the def) first
	Doc        string
}

func (*FunctionDef) stmtNode() {}
func (f *FunctionDef) Walk(v Visitor) {
	WalkExprs(v, f.Decorators)
	WalkStmts(v, f.Body)
}

// blockEnding-style helper not needed: this subset has no labels/goto, so
// every Stmt is always allowed in any position.
