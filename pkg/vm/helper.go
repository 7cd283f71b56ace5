package vm

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

// Helper groups the cross-cutting operations every instruction family and
// every native method leans on: invocation, boxing, type lookup, array
// bounds checks, and exception construction. Grounded on VMHelper.
type Helper struct {
	vm *VM
}

func newHelper(vm *VM) *Helper { return &Helper{vm: vm} }

// InvokeVirtual performs standard virtual dispatch on the receiver's
// runtime class and invokes the resolved method. An array receiver has
// no InstanceClass of its own to walk: JLS 10.7 treats every array as
// a direct subtype of java.lang.Object, so an array dispatches exactly
// the methods Object declares (equals, hashCode, toString, ...) against
// Object itself.
func (h *Helper) InvokeVirtual(t VMThread, receiver *Object, name, desc string, args []Value) ([]Value, error) {
	dispatchClass := h.vm.symbols.Object
	if !receiver.IsArray() {
		dispatchClass = receiver.InstanceClass()
	}
	owner, m := resolveVirtual(dispatchClass, name, desc)
	if m == nil {
		return nil, h.ThrowPanic("java/lang/NoSuchMethodError", receiver.Class().ClassName()+"."+name+desc)
	}
	return h.invoke(t, owner, m, append([]Value{RefValue(receiver)}, args...))
}

// InvokeSpecial invokes exactly the method named on owner, no dispatch
// (super calls, private calls, constructors).
func (h *Helper) InvokeSpecial(t VMThread, owner *InstanceClass, receiver *Object, name, desc string, args []Value) ([]Value, error) {
	oc, m := resolveExact(owner, name, desc)
	if m == nil {
		return nil, h.ThrowPanic("java/lang/NoSuchMethodError", owner.ClassName()+"."+name+desc)
	}
	return h.invoke(t, oc, m, append([]Value{RefValue(receiver)}, args...))
}

// InvokeStatic invokes a static method resolved against owner and its
// superclasses, running <clinit> first if needed.
func (h *Helper) InvokeStatic(t VMThread, owner *InstanceClass, name, desc string, args []Value) ([]Value, error) {
	oc, m := resolveStatic(owner, name, desc)
	if m == nil {
		return nil, h.ThrowPanic("java/lang/NoSuchMethodError", owner.ClassName()+"."+name+desc)
	}
	if err := h.vm.EnsureInitialized(t, oc); err != nil {
		return nil, err
	}
	return h.invoke(t, oc, m, args)
}

// InvokeInterface dispatches an interface call. This implementation
// resolves it exactly as invokevirtual (see resolveVirtual): the runtime
// receiver always carries a concrete class, so deferring to the same
// superclass walk finds the override without a separate itable.
func (h *Helper) InvokeInterface(t VMThread, receiver *Object, name, desc string, args []Value) ([]Value, error) {
	return h.InvokeVirtual(t, receiver, name, desc, args)
}

// InvokeExact calls a fully resolved method directly, bypassing
// dispatch, used once a call-site cache already holds the target.
func (h *Helper) InvokeExact(t VMThread, owner *InstanceClass, m *classnode.MethodNode, args []Value) ([]Value, error) {
	return h.invoke(t, owner, m, args)
}

func (h *Helper) invoke(t VMThread, owner *InstanceClass, m *classnode.MethodNode, args []Value) ([]Value, error) {
	if native, ok := h.vm.natives.lookup(owner.ClassName(), m.Name, m.Descriptor); ok {
		return native(h.vm, t, args)
	}
	if !m.HasCode() {
		return nil, h.ThrowPanic("java/lang/AbstractMethodError", owner.ClassName()+"."+m.Name+m.Descriptor)
	}
	return h.vm.engine.run(t, owner, m, args)
}

// ThrowVM constructs and returns a VMException for className, carrying
// message as the throwable's detail message field when the class has one.
func (h *Helper) ThrowVM(className, message string) error {
	class, err := h.vm.findBootstrapClass(className)
	if err != nil {
		return WrapPanic(err, "constructing exception "+className)
	}
	obj := h.vm.mm.NewInstance(class)
	if slot, ok := class.VirtualLayout.lookup("detailMessage", "Ljava/lang/String;"); ok {
		if str, err := h.NewUtf8(NewThread(), message); err == nil {
			obj.SetField(slot, RefValue(str))
		}
	}
	return &VMException{Throwable: obj}
}

// ThrowPanic wraps a host-level failure as a PanicException: it never
// crosses a bytecode exception table.
func (h *Helper) ThrowPanic(className, detail string) error {
	return NewPanic("%s: %s", className, detail)
}

// stringValueShape reports the element descriptor of java.lang.String's
// value field: "C" on JDK 8 (char[]), "B" on JDK 9+ (compact strings'
// byte[]).
func (h *Helper) stringValueShape() (string, error) {
	if _, _, ok := resolveFieldSlot(h.vm.symbols.String, "value", "[C", false); ok {
		return "C", nil
	}
	if _, _, ok := resolveFieldSlot(h.vm.symbols.String, "value", "[B", false); ok {
		return "B", nil
	}
	return "", h.ThrowPanic("java/lang/NoSuchFieldError", "java.lang.String.value")
}

// NewUtf8 materializes s as a real java.lang.String instance. The empty
// string is special-cased to a direct field write of a zero-length
// array, probing value's descriptor to pick char[] or byte[] shape;
// every other string goes through the real <init>([C)V constructor
// with s's UTF-16 code units, the way javac-compiled code builds one.
func (h *Helper) NewUtf8(t VMThread, s string) (*Object, error) {
	obj := h.vm.mm.NewInstance(h.vm.symbols.String)
	shape, err := h.stringValueShape()
	if err != nil {
		return nil, err
	}
	if s == "" {
		var arr *Object
		if shape == "C" {
			arr, err = h.ToVMChars(nil, 0, 0)
		} else {
			arr, err = h.ToVMBytes(nil, 0, 0)
		}
		if err != nil {
			return nil, err
		}
		_, slot, ok := resolveFieldSlot(h.vm.symbols.String, "value", "["+shape, false)
		if !ok {
			return nil, h.ThrowPanic("java/lang/NoSuchFieldError", "java.lang.String.value")
		}
		obj.SetField(slot, RefValue(arr))
		return obj, nil
	}

	units := utf16.Encode([]rune(s))
	chars, err := h.ToVMChars(units, 0, len(units))
	if err != nil {
		return nil, err
	}
	owner, ctor := resolveExact(h.vm.symbols.String, "<init>", "([C)V")
	if ctor == nil {
		return nil, h.ThrowPanic("java/lang/NoSuchMethodError", "java.lang.String.<init>([C)V")
	}
	if _, err := h.invoke(t, owner, ctor, []Value{RefValue(obj), RefValue(chars)}); err != nil {
		return nil, err
	}
	return obj, nil
}

// ReadUtf8 is NewUtf8's inverse: the empty string and a nil error for a
// null reference, an error if
// o is not a java.lang.String, otherwise the Go string rebuilt from
// toCharArray()'s code units.
func (h *Helper) ReadUtf8(t VMThread, o *Object) (string, error) {
	if o == nil {
		return "", nil
	}
	if o.IsArray() || o.InstanceClass() != h.vm.symbols.String {
		return "", h.ThrowPanic("java/lang/ClassCastException", "not a java.lang.String")
	}
	owner, m := resolveVirtual(o.InstanceClass(), "toCharArray", "()[C")
	if m == nil {
		return "", h.ThrowPanic("java/lang/NoSuchMethodError", "java.lang.String.toCharArray()[C")
	}
	ret, err := h.invoke(t, owner, m, []Value{RefValue(o)})
	if err != nil {
		return "", err
	}
	if len(ret) != 1 || ret[0].Ref() == nil {
		return "", h.ThrowPanic("java/lang/IllegalStateException", "toCharArray() returned no array")
	}
	return string(utf16.Decode(h.ToJavaChars(ret[0].Ref()))), nil
}

// GoString is ReadUtf8's best-effort form for call sites that only need
// to know whether o is a string at all, swallowing the ClassCastException
// case into a plain false.
func (h *Helper) GoString(t VMThread, o *Object) (string, bool) {
	if o == nil {
		return "", false
	}
	if o.IsArray() || o.InstanceClass() != h.vm.symbols.String {
		return "", false
	}
	s, err := h.ReadUtf8(t, o)
	return s, err == nil
}

// BoxInt wraps an int32 as a java.lang.Integer instance.
func (h *Helper) BoxInt(v int32) *Object {
	obj := h.vm.mm.NewInstance(h.vm.symbols.Integer)
	obj.Native = v
	return obj
}

func (h *Helper) UnboxInt(o *Object) (int32, bool) {
	if o == nil {
		return 0, false
	}
	v, ok := o.Native.(int32)
	return v, ok
}

// ValueFromLdc converts a resolved LdcConstant into a Value, boxing
// strings as java.lang.String instances and resolving class literals
// through the type table.
func (h *Helper) ValueFromLdc(t VMThread, loader *ClassLoaderData, c classnode.LdcConstant) (Value, error) {
	switch c.Kind {
	case classnode.LdcInt:
		return IntValue(c.Int), nil
	case classnode.LdcLong:
		return LongValue(c.Long), nil
	case classnode.LdcFloat:
		return FloatValue(c.Float), nil
	case classnode.LdcDouble:
		return DoubleValue(c.Double), nil
	case classnode.LdcString:
		str, err := h.NewUtf8(t, c.Str)
		if err != nil {
			return Value{}, err
		}
		return RefValue(str), nil
	case classnode.LdcClass:
		class, err := h.FindType(loader, c.Str)
		if err != nil {
			return Value{}, err
		}
		return RefValue(h.classMirror(class)), nil
	default:
		return Value{}, fmt.Errorf("helper: unsupported ldc constant kind %d", c.Kind)
	}
}

// classMirror returns the java.lang.Class instance standing for class.
// One mirror per JavaClass, cached on the VM.
func (h *Helper) classMirror(class JavaClass) *Object {
	return h.vm.classMirrorFor(class)
}

// FindType resolves a field/array/class descriptor to a JavaClass,
// loading it through loader if it names a class that is not yet linked.
func (h *Helper) FindType(loader *ClassLoaderData, descriptor string) (JavaClass, error) {
	if len(descriptor) == 0 {
		return nil, fmt.Errorf("helper: empty type descriptor")
	}
	switch descriptor[0] {
	case 'I', 'J', 'F', 'D', 'C', 'S', 'B', 'Z', 'V':
		return PrimitiveClassFor(descriptor[0]), nil
	case '[':
		return h.vm.findArrayClass(loader, descriptor)
	case 'L':
		name := strings.TrimSuffix(strings.TrimPrefix(descriptor, "L"), ";")
		return h.vm.resolveClass(loader, name)
	default:
		// a bare internal name, e.g. from a CONSTANT_Class the caller has
		// already unwrapped
		return h.vm.resolveClass(loader, descriptor)
	}
}

// RangeCheck validates an array slice operation's bounds using the exact
// bitwise-OR overflow-safe idiom VMHelper uses.
func (h *Helper) RangeCheck(length, offset, count int) error {
	if (offset|count|(offset+count)|(length-(offset+count))) < 0 {
		return h.ThrowVM("java/lang/ArrayIndexOutOfBoundsException", fmt.Sprintf("offset=%d, count=%d, length=%d", offset, count, length))
	}
	return nil
}

// CheckArrayIndex validates a single-element array access.
func (h *Helper) CheckArrayIndex(length, index int) error {
	if index < 0 || index >= length {
		return h.ThrowVM("java/lang/ArrayIndexOutOfBoundsException", fmt.Sprintf("index %d out of bounds for length %d", index, length))
	}
	return nil
}

// CheckNotNull raises a NullPointerException if v is a null reference.
func (h *Helper) CheckNotNull(v Value) error {
	if v.Kind() == KindRef && v.Ref() == nil {
		return h.ThrowVM("java/lang/NullPointerException", "")
	}
	return nil
}
