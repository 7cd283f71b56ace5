package vm

import (
	"fmt"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

// Method handle reference kinds, JVMS 5.4.3.5. Only the invoke* kinds are
// dispatchable by invokeBinding; the field kinds (1-4) fall through to
// UnsatisfiedLinkError, since no bootstrap this VM drives needs them.
const (
	refGetField         = 1
	refGetStatic        = 2
	refPutField         = 3
	refPutStatic        = 4
	refInvokeVirtual    = 5
	refInvokeStatic     = 6
	refInvokeSpecial    = 7
	refNewInvokeSpecial = 8
	refInvokeInterface  = 9
)

// methodHandleBinding is the Go-side payload carried on a
// java.lang.invoke.MethodHandle mirror's Native field: enough state to
// dispatch invokeExact without a real method-handle bytecode
// implementation underneath java.lang.invoke itself.
type methodHandleBinding struct {
	kind   uint8
	owner  *InstanceClass
	method *classnode.MethodNode
}

// linkedSite is what an invokedynamic instruction caches once resolved,
// per spec.md 4.5's call-site-is-resolved-once rule.
type linkedSite struct {
	binding *methodHandleBinding
}

// InvokeDynamicLinker resolves invokedynamic call sites against a
// class's BootstrapMethods attribute, grounded on JVMS 5.4.3.6's
// bootstrap calling convention: (Lookup, String name, MethodType type,
// staticArgs...) -> CallSite.
type InvokeDynamicLinker struct {
	vm *VM
}

func newInvokeDynamicLinker(vm *VM) *InvokeDynamicLinker {
	return &InvokeDynamicLinker{vm: vm}
}

func (e *Engine) execInvokedynamic(t VMThread, frame *Frame) ([]Value, error) {
	idx := frame.ReadU16()
	frame.ReadU16() // two reserved zero bytes, JVMS 6.5
	pc := frame.PC - 4

	var site *linkedSite
	if cached, ok := frame.Method.SiteCache(pc); ok {
		site = cached.(*linkedSite)
	} else {
		linked, err := e.vm.linker.link(t, frame, idx)
		if err != nil {
			return nil, err
		}
		site = linked
		frame.Method.CacheSite(pc, site)
	}

	ref, err := frame.Class.Node.InvokeDynamic(idx)
	if err != nil {
		return nil, err
	}
	params, ret := parseMethodDescriptor(ref.Descriptor)
	args := e.popArgs(frame, params)
	result, err := e.invokeBinding(t, site.binding, args)
	return trimVoid(result, ret), err
}

// invokeBinding dispatches a resolved method handle the way its
// reference kind demands: invokeStatic/invokeSpecial call the target
// directly, invokeVirtual/invokeInterface redo virtual dispatch against
// the actual first argument, since a handle built from a non-final
// method must still honor overrides.
func (e *Engine) invokeBinding(t VMThread, b *methodHandleBinding, args []Value) ([]Value, error) {
	if b == nil || b.method == nil {
		return nil, e.vm.helper.ThrowPanic("java/lang/UnsatisfiedLinkError", "method handle has no dispatchable target")
	}
	switch b.kind {
	case refInvokeStatic, refInvokeSpecial, refNewInvokeSpecial:
		return e.vm.helper.InvokeExact(t, b.owner, b.method, args)
	case refInvokeVirtual, refInvokeInterface:
		if len(args) == 0 {
			return nil, e.vm.helper.ThrowPanic("java/lang/IllegalArgumentException", "missing receiver for method handle invocation")
		}
		recv := args[0]
		if err := e.vm.helper.CheckNotNull(recv); err != nil {
			return nil, err
		}
		owner, m := resolveVirtual(recv.Ref().InstanceClass(), b.method.Name, b.method.Descriptor)
		if m == nil {
			return nil, e.vm.helper.ThrowPanic("java/lang/NoSuchMethodError", b.method.Name+b.method.Descriptor)
		}
		return e.vm.helper.InvokeExact(t, owner, m, args)
	default:
		return nil, e.vm.helper.ThrowPanic("java/lang/UnsatisfiedLinkError", "unsupported method handle reference kind")
	}
}

// link resolves idx's BootstrapMethod, invokes it, and reduces the
// CallSite it returns (or a bare MethodHandle, for bootstraps that skip
// the CallSite wrapper) to a dispatchable binding.
func (l *InvokeDynamicLinker) link(t VMThread, frame *Frame, idx uint16) (*linkedSite, error) {
	ref, err := frame.Class.Node.InvokeDynamic(idx)
	if err != nil {
		return nil, err
	}
	if int(ref.BootstrapMethodIndex) >= len(frame.Class.Node.BootstrapMethods) {
		return nil, l.vm.helper.ThrowPanic("java/lang/BootstrapMethodError", "invalid bootstrap method index")
	}
	bsm := frame.Class.Node.BootstrapMethods[ref.BootstrapMethodIndex]

	handleRef, err := frame.Class.Node.MethodHandle(bsm.MethodRef)
	if err != nil {
		return nil, err
	}
	if handleRef.ReferenceKind != refInvokeStatic {
		return nil, l.vm.helper.ThrowVM("java/lang/IllegalStateException",
			fmt.Sprintf("bootstrap method handle must be REF_invokeStatic, got kind %d", handleRef.ReferenceKind))
	}
	owner, err := l.vm.resolveClass(frame.Class.Loader, handleRef.Member.ClassName)
	if err != nil {
		return nil, err
	}
	bootstrapOwner, bootstrapMethod := resolveStatic(owner, handleRef.Member.Name, handleRef.Member.Descriptor)
	if bootstrapMethod == nil {
		return nil, l.vm.helper.ThrowVM("java/lang/NoSuchMethodError", handleRef.Member.ClassName+"."+handleRef.Member.Name)
	}

	nameStr, err := l.vm.helper.NewUtf8(t, ref.Name)
	if err != nil {
		return nil, err
	}
	// The bootstrap convention's first argument is a MethodHandles.Lookup
	// carrying the caller's access context; this VM has no Lookup type of
	// its own to build one, so the caller's class mirror stands in for it
	// instead of a bare null, since every bootstrap this VM drives reads
	// the caller only to know which class linked the call site.
	caller := l.vm.classMirrorFor(frame.Class)
	callArgs := []Value{RefValue(caller), RefValue(nameStr), RefValue(l.vm.methodTypeMirror(ref.Descriptor))}
	for _, argIdx := range bsm.Arguments {
		v, err := l.staticArgValue(t, frame, argIdx)
		if err != nil {
			return nil, err
		}
		callArgs = append(callArgs, v)
	}

	if err := l.vm.EnsureInitialized(t, bootstrapOwner); err != nil {
		return nil, err
	}
	result, err := l.vm.helper.invoke(t, bootstrapOwner, bootstrapMethod, callArgs)
	if err != nil {
		return nil, WrapPanic(err, "CallSite initialization exception")
	}
	if len(result) != 1 || result[0].Ref() == nil {
		return nil, l.vm.helper.ThrowPanic("java/lang/BootstrapMethodError", "bootstrap method returned no CallSite")
	}
	site := result[0].Ref()

	if b, ok := site.Native.(*methodHandleBinding); ok {
		return &linkedSite{binding: b}, nil
	}

	owner2, getTarget := resolveVirtual(site.InstanceClass(), "getTarget", "()Ljava/lang/invoke/MethodHandle;")
	if getTarget == nil {
		return nil, l.vm.helper.ThrowPanic("java/lang/BootstrapMethodError", "CallSite has no getTarget()")
	}
	targetRes, err := l.vm.helper.invoke(t, owner2, getTarget, []Value{RefValue(site)})
	if err != nil || len(targetRes) != 1 {
		return nil, WrapPanic(err, "resolving CallSite target")
	}
	handleObj := targetRes[0].Ref()
	binding, ok := handleObj.Native.(*methodHandleBinding)
	if !ok {
		return nil, l.vm.helper.ThrowPanic("java/lang/BootstrapMethodError", "MethodHandle target is not dispatchable")
	}
	return &linkedSite{binding: binding}, nil
}

// staticArgValue resolves one bootstrap static argument, trying the
// plain ldc-style constants first and falling back to the method handle
// and method type kinds, the three shapes JVMS 4.4 permits there.
func (l *InvokeDynamicLinker) staticArgValue(t VMThread, frame *Frame, idx uint16) (Value, error) {
	if c, err := frame.Class.Node.Ldc(idx); err == nil {
		return l.vm.helper.ValueFromLdc(t, frame.Class.Loader, c)
	}
	if mh, err := frame.Class.Node.MethodHandle(idx); err == nil {
		return RefValue(l.methodHandleMirror(frame, mh)), nil
	}
	if desc, err := frame.Class.Node.MethodType(idx); err == nil {
		return RefValue(l.vm.methodTypeMirror(desc)), nil
	}
	return Value{}, fmt.Errorf("invokedynamic: unresolvable static argument at constant pool index %d", idx)
}

// methodHandleMirror builds the java.lang.invoke.MethodHandle instance
// standing for a resolved CONSTANT_MethodHandle entry, carrying its
// dispatch target on Native since this VM has no real MethodHandle
// bytecode to run instead.
func (l *InvokeDynamicLinker) methodHandleMirror(frame *Frame, ref classnode.MethodHandleRef) *Object {
	obj := l.vm.mm.NewInstance(l.vm.symbols.MethodHandle)
	owner, err := l.vm.resolveClass(frame.Class.Loader, ref.Member.ClassName)
	if err != nil || ref.IsField {
		obj.Native = &methodHandleBinding{kind: ref.ReferenceKind}
		return obj
	}
	var oc *InstanceClass
	var m *classnode.MethodNode
	switch ref.ReferenceKind {
	case refInvokeStatic:
		oc, m = resolveStatic(owner, ref.Member.Name, ref.Member.Descriptor)
	case refInvokeSpecial, refNewInvokeSpecial:
		oc, m = resolveExact(owner, ref.Member.Name, ref.Member.Descriptor)
	default:
		oc, m = owner, owner.Node.FindMethod(ref.Member.Name, ref.Member.Descriptor)
	}
	obj.Native = &methodHandleBinding{kind: ref.ReferenceKind, owner: oc, method: m}
	return obj
}
