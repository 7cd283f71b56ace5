package vm

import (
	"fmt"
	"io"
	"os"
)

// NativeFunc is a host-implemented method body. args[0] is the receiver
// for instance methods; native methods never see a Frame.
type NativeFunc func(vm *VM, t VMThread, args []Value) ([]Value, error)

// NativeRegistry maps (class, name, descriptor) triples to host
// implementations, generalizing the teacher's string-compare dispatch in
// executeInvokevirtual/executeInvokestatic into a proper lookup table.
type NativeRegistry struct {
	methods map[string]NativeFunc
}

func newNativeRegistry() *NativeRegistry {
	return &NativeRegistry{methods: make(map[string]NativeFunc)}
}

func nativeKey(class, name, desc string) string { return class + "." + name + desc }

func (r *NativeRegistry) Register(class, name, desc string, fn NativeFunc) {
	r.methods[nativeKey(class, name, desc)] = fn
}

func (r *NativeRegistry) lookup(class, name, desc string) (NativeFunc, bool) {
	fn, ok := r.methods[nativeKey(class, name, desc)]
	return fn, ok
}

// registerBuiltins wires the small set of native methods this VM
// implements directly rather than via real Java standard library
// bytecode: console output, boxed-Integer identity, and a minimal
// java.util.HashMap.
func registerBuiltins(vm *VM, stdout io.Writer) {
	r := vm.natives
	h := vm.helper

	r.Register("java/io/PrintStream", "println", "(Ljava/lang/String;)V", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		receiver := args[0].Ref()
		w := stdoutOf(receiver, stdout)
		s, _ := h.GoString(t, args[1].Ref())
		fmt.Fprintln(w, s)
		return nil, nil
	})
	r.Register("java/io/PrintStream", "println", "(I)V", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		w := stdoutOf(args[0].Ref(), stdout)
		fmt.Fprintln(w, args[1].Int())
		return nil, nil
	})
	r.Register("java/io/PrintStream", "println", "(Ljava/lang/Object;)V", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		w := stdoutOf(args[0].Ref(), stdout)
		fmt.Fprintln(w, vm.Stringify(t, args[1].Ref()))
		return nil, nil
	})
	r.Register("java/io/PrintStream", "print", "(Ljava/lang/String;)V", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		w := stdoutOf(args[0].Ref(), stdout)
		s, _ := h.GoString(t, args[1].Ref())
		fmt.Fprint(w, s)
		return nil, nil
	})

	r.Register("java/lang/Integer", "valueOf", "(I)Ljava/lang/Integer;", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		return []Value{RefValue(h.BoxInt(args[0].Int()))}, nil
	})
	r.Register("java/lang/Integer", "intValue", "()I", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		v, _ := h.UnboxInt(args[0].Ref())
		return []Value{IntValue(v)}, nil
	})

	r.Register("java/util/HashMap", "<init>", "()V", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		args[0].Ref().Native = newNativeMap()
		return nil, nil
	})
	r.Register("java/util/HashMap", "get", "(Ljava/lang/Object;)Ljava/lang/Object;", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		m := args[0].Ref().Native.(*nativeMap)
		v, ok := m.get(mapKeyOf(t, h, args[1].Ref()))
		if !ok {
			return []Value{NullValue()}, nil
		}
		return []Value{RefValue(v)}, nil
	})
	registerFileNatives(vm)

	r.Register("java/util/HashMap", "put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		m := args[0].Ref().Native.(*nativeMap)
		old, hadOld := m.put(mapKeyOf(t, h, args[1].Ref()), args[2].Ref())
		if !hadOld {
			return []Value{NullValue()}, nil
		}
		return []Value{RefValue(old)}, nil
	})
}

func stdoutOf(receiver *Object, fallback io.Writer) io.Writer {
	if receiver != nil {
		if w, ok := receiver.Native.(io.Writer); ok {
			return w
		}
	}
	return fallback
}

// DefaultStdout is the PrintStream backing store used when a System.out
// PrintStream instance carries no explicit writer.
var DefaultStdout io.Writer = os.Stdout

// nativeMap is the Go-side storage behind a java.util.HashMap instance,
// generalizing the teacher's NativeHashMap to unbox Integer keys the same
// way before hashing.
type nativeMap struct {
	data map[any]*Object
}

func newNativeMap() *nativeMap { return &nativeMap{data: make(map[any]*Object)} }

func (m *nativeMap) get(key any) (*Object, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *nativeMap) put(key any, value *Object) (*Object, bool) {
	old, had := m.data[key]
	m.data[key] = value
	return old, had
}

// mapKeyOf reduces a key object to a Go-comparable value suitable for use
// as a map key, unboxing Integer the way the teacher's NativeHashMap did.
func mapKeyOf(t VMThread, h *Helper, key *Object) any {
	if key == nil {
		return nil
	}
	if v, ok := h.UnboxInt(key); ok {
		return v
	}
	if s, ok := h.GoString(t, key); ok {
		return s
	}
	return key
}
