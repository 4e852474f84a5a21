package types

// NilType is the type of the named constant None. Its only legal value is
// the None constant below. Modeled as a byte (not struct{}) so None can be
// a typed constant, per _examples/mna-nenuphar/lang/machine/nil.go.
type NilType byte

// None is the value pushed by the `None` named-constant literal.
const None = NilType(0)

var _ Value = None

func (NilType) String() string { return "None" }
func (NilType) Type() string   { return "NoneType" }
func (NilType) Truth() Bool    { return False }

// Bool is the type of the named constants True and False.
type Bool bool

const (
	False Bool = false
	True  Bool = true
)

var (
	_ Value   = True
	_ Ordered = True
)

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}

func (b Bool) Type() string { return "bool" }
func (b Bool) Truth() Bool  { return b }

func (b Bool) Cmp(y Value) (int, error) {
	yb := y.(Bool)
	return b2i(bool(b)) - b2i(bool(yb)), nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
