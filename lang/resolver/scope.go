// Package resolver implements the scope analyzer: it walks a desugared AST
// and builds a tree of Scopes, classifying every referenced name as a fast
// local, a cell, a free variable, or a plain (dynamically looked-up) name.
//
// Grounded in original_source/src/tailbiter/scope.py's two-phase
// visit/analyze algorithm; the Go vocabulary (Scope) follows
// _examples/mna-nenuphar/lang/resolver's
// Binding/Scope naming, adapted to the simpler two-phase model the Python
// original actually implements (there is no Undefined/Predeclared/Universal
// classification here — every unresolved name falls through to "name" and
// is looked up dynamically at runtime, matching spec.md §4.3).
package resolver

// Access is the classification scope.access(name) returns for a reference.
type Access uint8

const (
	// AccessName is a dynamically looked-up name: LOAD_NAME/STORE_NAME,
	// falling back from locals to globals to builtins at runtime.
	AccessName Access = iota
	// AccessFast is a function-local slot: LOAD_FAST/STORE_FAST.
	AccessFast
	// AccessDeref is a cell shared with an enclosing or nested function:
	// LOAD_DEREF/STORE_DEREF.
	AccessDeref
)

func (a Access) String() string {
	switch a {
	case AccessFast:
		return "fast"
	case AccessDeref:
		return "deref"
	default:
		return "name"
	}
}

// orderedSet preserves first-occurrence insertion order, which the spec
// requires for cellvars/freevars: iteration order must be deterministic and
// derived from source order, not map order.
type orderedSet struct {
	order []string
	seen  map[string]bool
}

func newOrderedSet(initial ...string) *orderedSet {
	s := &orderedSet{seen: make(map[string]bool, len(initial))}
	for _, n := range initial {
		s.add(n)
	}
	return s
}

func (s *orderedSet) add(name string) {
	if !s.seen[name] {
		s.seen[name] = true
		s.order = append(s.order, name)
	}
}

func (s *orderedSet) has(name string) bool { return s.seen[name] }

// Scope describes one lexical region: the top-level unit, a function body,
// or a class body.
type Scope struct {
	// isFunction is true when this Scope hosts fast locals (a function body).
	// Class bodies and the top-level unit are "name" scopes: every local they
	// define is looked up dynamically, matching class-namespace semantics.
	isFunction bool

	defs *orderedSet
	uses *orderedSet

	children []*Scope

	// localDefs, cellvars, freevars and derefvars are only valid after Analyze
	// has run.
	localDefs *orderedSet
	cellvars  []string
	freevars  []string
	derefvars []string
}

func newScope(isFunction bool, initialDefs []string) *Scope {
	return &Scope{isFunction: isFunction, defs: newOrderedSet(initialDefs...), uses: newOrderedSet()}
}

// childScope creates s's child, seeded with initialDefs (a function's
// parameter names, or none for a class body), and records it for Analyze.
func (s *Scope) childScope(isFunction bool, initialDefs []string) *Scope {
	child := &Scope{isFunction: isFunction, defs: newOrderedSet(initialDefs...), uses: newOrderedSet()}
	s.children = append(s.children, child)
	return child
}

// Analyze is phase 2: recursive bottom-up computation of local_defs,
// cellvars, freevars and derefvars, given the set of names defined in all
// enclosing scopes (parentDefs).
func (s *Scope) Analyze(parentDefs *orderedSet) {
	if s.isFunction {
		s.localDefs = s.defs
	} else {
		s.localDefs = newOrderedSet()
	}

	merged := newOrderedSet(parentDefs.order...)
	for _, n := range s.localDefs.order {
		merged.add(n)
	}
	for _, c := range s.children {
		c.Analyze(merged)
	}

	childUses := newOrderedSet()
	for _, c := range s.children {
		for _, fv := range c.freevars {
			childUses.add(fv)
		}
	}

	// cellvars: local_defs names also used (directly or transitively) by a
	// descendant, ordered by their definition order in local_defs.
	for _, n := range s.localDefs.order {
		if childUses.has(n) {
			s.cellvars = append(s.cellvars, n)
		}
	}

	// freevars: names used here or below, defined in an ancestor but not
	// locally, ordered by first use (this scope's uses first, then the
	// descendants' free variables in their own first-use order).
	combinedUses := newOrderedSet(s.uses.order...)
	for _, n := range childUses.order {
		combinedUses.add(n)
	}
	for _, n := range combinedUses.order {
		if parentDefs.has(n) && !s.localDefs.has(n) {
			s.freevars = append(s.freevars, n)
		}
	}

	s.derefvars = append(append([]string(nil), s.cellvars...), s.freevars...)
}

// Access classifies a name reference within this (already-analyzed) scope.
func (s *Scope) Access(name string) Access {
	for _, n := range s.derefvars {
		if n == name {
			return AccessDeref
		}
	}
	if s.localDefs.has(name) {
		return AccessFast
	}
	return AccessName
}

// Derefvars returns cellvars++freevars, the DEREF operand index space.
func (s *Scope) Derefvars() []string { return s.derefvars }

// Cellvars returns the names of this scope's locals captured by a nested
// scope.
func (s *Scope) Cellvars() []string { return s.cellvars }

// Freevars returns the names this scope (or a descendant) uses that are
// defined in an enclosing scope.
func (s *Scope) Freevars() []string { return s.freevars }

// DerefIndex returns the index of name within derefvars, and whether it was
// found; code generation uses this for LOAD_DEREF/STORE_DEREF/LOAD_CLOSURE
// operands.
func (s *Scope) DerefIndex(name string) (int, bool) {
	for i, n := range s.derefvars {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
