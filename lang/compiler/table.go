package compiler

import "strings"

// table interns keys to small integers in first-use order. Grounded on
// original_source/src/tailbiter/codegen.py's make_table(): a
// collections.defaultdict whose default factory assigns `len(table)` the
// first time a key is looked up. Because that factory only ever runs once
// per key, the original's collect() (`sorted(table, key=table.get)`)
// always reduces to insertion order — this port keeps that explicitly
// rather than re-deriving it with a sort every time the table is read.
type table[K comparable] struct {
	index map[K]int
	order []K
}

func newTable[K comparable]() *table[K] {
	return &table[K]{index: make(map[K]int)}
}

// intern returns key's index, assigning it the next index on first use.
func (t *table[K]) intern(key K) int {
	if i, ok := t.index[key]; ok {
		return i
	}
	i := len(t.order)
	t.index[key] = i
	t.order = append(t.order, key)
	return i
}

func (t *table[K]) len() int { return len(t.order) }

// collect returns the interned keys in index order. Grounded on
// codegen.py's module-level collect().
func (t *table[K]) collect() []K {
	return append([]K(nil), t.order...)
}

// constKind tags a constKey's payload. Constants are kept distinct by
// (kind, value) the same way the original keys its constants table on
// (value, type(value)) — so the int 1 and the float 1.0 intern to separate
// slots even though nothing else in this table would otherwise tell them
// apart.
type constKind uint8

const (
	constInt constKind = iota
	constFloat
	constString
	constBytes
	constTrue
	constFalse
	constNone
	constCode     // a nested function/class body, interned by *Code identity
	constTupleStr // a tuple of names, for an import-from's fromlist
)

// constKey is the constants table's key. Every field after kind is only
// meaningful for the kind that uses it; bytes are folded into the string
// field so the key stays comparable (a []byte field would not be).
type constKey struct {
	kind constKind
	i    int64
	f    float64
	s    string
	code *Code
}

func intConst(v int64) constKey     { return constKey{kind: constInt, i: v} }
func floatConst(v float64) constKey { return constKey{kind: constFloat, f: v} }
func stringConst(v string) constKey { return constKey{kind: constString, s: v} }
func bytesConst(v []byte) constKey  { return constKey{kind: constBytes, s: string(v)} }
func codeConst(c *Code) constKey    { return constKey{kind: constCode, code: c} }

// tupleStrConst keys a tuple-of-names constant, joined on NUL (no import
// name can contain one) so the key stays a comparable string field.
func tupleStrConst(names []string) constKey {
	return constKey{kind: constTupleStr, s: strings.Join(names, "\x00")}
}

var trueConst = constKey{kind: constTrue}
var falseConst = constKey{kind: constFalse}
var noneConst = constKey{kind: constNone}

// value reconstructs the runtime constant this key represents, for storage
// in a Code object's Constants slice.
func (k constKey) value() any {
	switch k.kind {
	case constInt:
		return k.i
	case constFloat:
		return k.f
	case constString:
		return k.s
	case constBytes:
		return []byte(k.s)
	case constTrue:
		return true
	case constFalse:
		return false
	case constNone:
		return nil
	case constCode:
		return k.code
	case constTupleStr:
		if k.s == "" {
			return []string{}
		}
		return strings.Split(k.s, "\x00")
	default:
		panic("compiler: unreachable constKind")
	}
}
