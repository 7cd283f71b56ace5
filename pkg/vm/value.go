package vm

import "fmt"

// Kind discriminates the tagged union carried by every Value.
type Kind uint8

const (
	KindInt Kind = iota
	KindLong
	KindFloat
	KindDouble
	KindRef
	// KindTop marks the second local-variable or field-storage slot
	// occupied by a wide (long/double) value; it carries no payload of
	// its own and never appears on the operand stack.
	KindTop
)

// Value is the single unit the operand stack and local variable table
// traffic in. Ints, floats, and references occupy one slot. Longs and
// doubles are one entry on the operand stack but occupy two local
// variable slots, the second being a KindTop placeholder.
type Value struct {
	kind Kind
	i    int64   // also backs int32, holding it sign-extended
	f    float64 // also backs float32
	ref  *Object
}

func IntValue(v int32) Value    { return Value{kind: KindInt, i: int64(v)} }
func LongValue(v int64) Value   { return Value{kind: KindLong, i: v} }
func FloatValue(v float32) Value { return Value{kind: KindFloat, f: float64(v)} }
func DoubleValue(v float64) Value { return Value{kind: KindDouble, f: v} }
func RefValue(o *Object) Value  { return Value{kind: KindRef, ref: o} }
func NullValue() Value          { return Value{kind: KindRef, ref: nil} }
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// TopValue is the filler slot following a wide value in locals or field
// storage; it is never read on its own.
func TopValue() Value { return Value{kind: KindTop} }

func (v Value) Kind() Kind { return v.kind }

// checkKind mirrors original_source's ObjectValue.as(), which throws
// IllegalStateException when a stack slot is read as the wrong variant.
// Value carries no VM reference to construct a catchable throwable, so
// the failure surfaces as a Go panic instead — the same "impossible
// under well-formed bytecode" treatment Frame's own bounds checks use,
// since this VM assumes a verifier already ran.
func (v Value) checkKind(want Kind, accessor string) {
	if v.kind != want {
		panic(fmt.Sprintf("value: IllegalStateException: %s called on a %v value", accessor, v.kind))
	}
}

func (v Value) Int() int32 {
	v.checkKind(KindInt, "Int")
	return int32(v.i)
}

func (v Value) Long() int64 {
	v.checkKind(KindLong, "Long")
	return v.i
}

func (v Value) Float() float32 {
	v.checkKind(KindFloat, "Float")
	return float32(v.f)
}

func (v Value) Double() float64 {
	v.checkKind(KindDouble, "Double")
	return v.f
}

func (v Value) Ref() *Object {
	v.checkKind(KindRef, "Ref")
	return v.ref
}

func (v Value) IsNull() bool { return v.kind == KindRef && v.ref == nil }

// Width is 2 for long/double, 1 for everything else including KindTop
// (which only ever appears as the partner slot of a width-2 value).
func (v Value) Width() int {
	if v.kind == KindLong || v.kind == KindDouble {
		return 2
	}
	return 1
}

// DefaultValueFor returns the zero value for a field/array-slot
// descriptor's first character.
func DefaultValueFor(descriptor byte) Value {
	switch descriptor {
	case 'J':
		return LongValue(0)
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	case 'L', '[':
		return NullValue()
	default:
		return IntValue(0)
	}
}
