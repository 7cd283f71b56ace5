package vm

import (
	"testing"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

// newInvokeDynamicTestVM builds a VM with just enough wiring for
// invokeBinding's dispatch paths: a memory manager, a native registry,
// an engine, and a bootstrap loader backed by a fakeLoader that can
// supply NullPointerException on demand for CheckNotNull's ThrowVM
// call, without pulling in a real jmod.
func newInvokeDynamicTestVM() *VM {
	vm := &VM{
		mm:      NewMemoryManager(),
		natives: newNativeRegistry(),
	}
	vm.helper = newHelper(vm)
	vm.engine = newEngine(vm, 64)
	vm.BootLoader = NewClassLoaderData(nil)
	vm.BootLoader.Source = &fakeLoader{classes: map[string]*classnode.ClassNode{
		"java/lang/NullPointerException": {Name: "java/lang/NullPointerException"},
	}}
	return vm
}

func TestInvokeBindingNilBindingOrMethod(t *testing.T) {
	vm := newInvokeDynamicTestVM()
	e := &Engine{vm: vm}
	thread := NewThread()

	t.Run("nil binding", func(t *testing.T) {
		if _, err := e.invokeBinding(thread, nil, nil); err == nil {
			t.Error("expected an error for a nil binding")
		} else if _, ok := err.(*PanicException); !ok {
			t.Errorf("got %T, want *PanicException", err)
		}
	})

	t.Run("binding with no method", func(t *testing.T) {
		b := &methodHandleBinding{kind: refInvokeStatic}
		if _, err := e.invokeBinding(thread, b, nil); err == nil {
			t.Error("expected an error for a binding with no dispatchable target")
		} else if _, ok := err.(*PanicException); !ok {
			t.Errorf("got %T, want *PanicException", err)
		}
	})
}

func TestInvokeBindingStaticDispatchesDirectly(t *testing.T) {
	vm := newInvokeDynamicTestVM()
	e := &Engine{vm: vm}

	owner := &InstanceClass{Node: &classnode.ClassNode{Name: "pkg/Target"}}
	method := &classnode.MethodNode{
		Name: "answer", Descriptor: "()I",
		MaxStack: 1, MaxLocals: 0,
		Code: []byte{OpIconst1, OpIreturn},
	}
	b := &methodHandleBinding{kind: refInvokeStatic, owner: owner, method: method}

	result, err := e.invokeBinding(NewThread(), b, nil)
	if err != nil {
		t.Fatalf("invokeBinding: %v", err)
	}
	if len(result) != 1 || result[0].Int() != 1 {
		t.Errorf("got %v, want [1]", result)
	}
}

func TestInvokeBindingVirtualRedispatchesToOverride(t *testing.T) {
	vm := newInvokeDynamicTestVM()
	e := &Engine{vm: vm}

	baseMethod := &classnode.MethodNode{
		Name: "bar", Descriptor: "()I",
		MaxStack: 1, Code: []byte{OpIconst0, OpIreturn},
	}
	base := &InstanceClass{Node: &classnode.ClassNode{
		Name:    "pkg/Base",
		Methods: []*classnode.MethodNode{baseMethod},
	}}
	sub := &InstanceClass{
		Node: &classnode.ClassNode{
			Name: "pkg/Sub",
			Methods: []*classnode.MethodNode{
				{Name: "bar", Descriptor: "()I", MaxStack: 1, MaxLocals: 1, Code: []byte{OpIconst1, OpIreturn}},
			},
		},
		Super: base,
	}
	recv := &Object{class: sub, storage: newStorage(0), monitor: newMonitor()}

	b := &methodHandleBinding{kind: refInvokeVirtual, owner: base, method: baseMethod}
	result, err := e.invokeBinding(NewThread(), b, []Value{RefValue(recv)})
	if err != nil {
		t.Fatalf("invokeBinding: %v", err)
	}
	if len(result) != 1 || result[0].Int() != 1 {
		t.Errorf("got %v, want [1] (the Sub override, not Base's method)", result)
	}
}

func TestInvokeBindingVirtualMissingReceiver(t *testing.T) {
	vm := newInvokeDynamicTestVM()
	e := &Engine{vm: vm}
	method := &classnode.MethodNode{Name: "bar", Descriptor: "()V"}
	b := &methodHandleBinding{kind: refInvokeVirtual, method: method}

	if _, err := e.invokeBinding(NewThread(), b, nil); err == nil {
		t.Error("expected an error with no receiver argument")
	} else if _, ok := err.(*PanicException); !ok {
		t.Errorf("got %T, want *PanicException", err)
	}
}

func TestInvokeBindingVirtualNullReceiver(t *testing.T) {
	vm := newInvokeDynamicTestVM()
	e := &Engine{vm: vm}
	method := &classnode.MethodNode{Name: "bar", Descriptor: "()V"}
	b := &methodHandleBinding{kind: refInvokeVirtual, method: method}

	_, err := e.invokeBinding(NewThread(), b, []Value{NullValue()})
	if err == nil {
		t.Fatal("expected a NullPointerException for a null receiver")
	}
	vmErr, ok := err.(*VMException)
	if !ok {
		t.Fatalf("got %T, want *VMException", err)
	}
	if vmErr.Throwable.Class().ClassName() != "java/lang/NullPointerException" {
		t.Errorf("got %s, want java/lang/NullPointerException", vmErr.Throwable.Class().ClassName())
	}
}

func TestInvokeBindingUnsupportedReferenceKind(t *testing.T) {
	vm := newInvokeDynamicTestVM()
	e := &Engine{vm: vm}
	b := &methodHandleBinding{kind: refGetField, method: &classnode.MethodNode{Name: "x", Descriptor: "I"}}

	if _, err := e.invokeBinding(NewThread(), b, nil); err == nil {
		t.Error("expected an error for a field-kind method handle")
	} else if _, ok := err.(*PanicException); !ok {
		t.Errorf("got %T, want *PanicException", err)
	}
}
