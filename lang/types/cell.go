package types

// Cell is a single-slot mutable container shared between the frame that
// defines a closed-over variable and every inner-function frame that
// captures it (spec.md §3's Cell: created when a function frame enters
// and the name is in its cellvars; shared via freevars with inner
// closures). Accessed only through LOAD_DEREF/STORE_DEREF.
type Cell struct{ V Value }

var _ Value = (*Cell)(nil)

func NewCell(v Value) *Cell { return &Cell{V: v} }

func (c *Cell) String() string { return "cell" }
func (c *Cell) Type() string   { return "cell" }
func (c *Cell) Truth() Bool    { return c.V.Truth() }
