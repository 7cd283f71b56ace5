package vm

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-ssvm/ssvm/pkg/classnode"
	"github.com/go-ssvm/ssvm/pkg/config"
	"github.com/go-ssvm/ssvm/pkg/vmfs"
)

// VM is the virtual machine: class loaders, memory manager, dispatch
// engine, native registry, and the well-known symbol table, wired
// together at construction and treated as immutable thereafter.
type VM struct {
	Config config.Config
	Stdout io.Writer

	BootLoader *ClassLoaderData
	UserLoader *ClassLoaderData

	mm      *MemoryManager
	helper  *Helper
	engine  *Engine
	natives *NativeRegistry
	symbols *Symbols
	linker  *InvokeDynamicLinker

	// FileManager backs the old java.io.FileSystem natives (see
	// natives_file.go). Left nil, those natives raise
	// UnsupportedOperationException rather than touch the real
	// filesystem: an embedder opts in explicitly via SetFileManager.
	FileManager vmfs.FileManager

	mirrorMu    sync.Mutex
	mirrors     map[JavaClass]*Object
	methodTypes map[string]*Object
}

// NewVM constructs a VM over a bootstrap loader (the jmod-backed source of
// java.* classes) and a user loader that delegates to it, eagerly
// resolving the well-known symbol table and registering native methods.
func NewVM(cfg config.Config, bootSource, userSource ClassLoader, stdout io.Writer) (*VM, error) {
	vm := &VM{
		Config:      cfg,
		Stdout:      stdout,
		mm:          NewMemoryManager(),
		natives:     newNativeRegistry(),
		mirrors:     make(map[JavaClass]*Object),
		methodTypes: make(map[string]*Object),
	}
	vm.BootLoader = NewClassLoaderData(nil)
	vm.BootLoader.Source = bootSource
	vm.UserLoader = NewClassLoaderData(vm.BootLoader)
	vm.UserLoader.Source = userSource

	vm.helper = newHelper(vm)
	vm.engine = newEngine(vm, cfg.MaxFrameDepth)

	symbols, err := resolveSymbols(vm)
	if err != nil {
		return nil, err
	}
	vm.symbols = symbols
	vm.linker = newInvokeDynamicLinker(vm)

	registerBuiltins(vm, stdout)
	return vm, nil
}

// SetFileManager wires an embedder-supplied filesystem bridge into the
// old java.io.FileSystem natives. Unset, those natives raise
// UnsupportedOperationException instead of touching the host filesystem.
func (vm *VM) SetFileManager(fm vmfs.FileManager) { vm.FileManager = fm }

// Execute loads Config.MainClass through the user loader, runs its
// initializer, and invokes main([Ljava/lang/String;)V with a null args
// array (command-line argument plumbing is left to the embedder).
func (vm *VM) Execute() error {
	t := NewThread()
	class, err := vm.resolveClass(vm.UserLoader, vm.Config.MainClass)
	if err != nil {
		return err
	}
	if err := vm.EnsureInitialized(t, class); err != nil {
		return err
	}
	method := class.Node.FindMethod("main", "([Ljava/lang/String;)V")
	if method == nil {
		return fmt.Errorf("vm: no main([Ljava/lang/String;)V in %s", class.ClassName())
	}
	_, err = vm.helper.invoke(t, class, method, []Value{NullValue()})
	return err
}

// resolveClassRaw loads and links name without escalating failure to a
// bytecode-catchable VMException — used for boot-time symbol resolution
// and exception-class construction itself, where that escalation could
// recurse.
func (vm *VM) resolveClassRaw(loader *ClassLoaderData, name string) (*InstanceClass, error) {
	if class, ok := loader.Get(name); ok {
		return class, nil
	}
	// Parent-first delegation: a class the parent loader can already
	// supply is defined there, never redefined under the child, so
	// bootstrap types keep one identity across every loader that sees them.
	if loader.Parent != nil {
		if class, err := vm.resolveClassRaw(loader.Parent, name); err == nil {
			return class, nil
		}
	}
	if loader.Source == nil {
		return nil, fmt.Errorf("vm: loader for %s has no backing source", name)
	}
	node, err := loader.Source.LoadClass(name)
	if err != nil {
		return nil, fmt.Errorf("vm: loading class %s: %w", name, err)
	}
	return vm.defineClass(loader, node)
}

// resolveClass is resolveClassRaw's bytecode-facing counterpart: a failure
// raises NoClassDefFoundError instead of a plain Go error.
func (vm *VM) resolveClass(loader *ClassLoaderData, name string) (*InstanceClass, error) {
	class, err := vm.resolveClassRaw(loader, name)
	if err != nil {
		return nil, vm.helper.ThrowVM("java/lang/NoClassDefFoundError", name)
	}
	return class, nil
}

// resolveType resolves a descriptor-or-internal-name that may name either
// a class/interface or an array type, for checkcast/instanceof.
func (vm *VM) resolveType(loader *ClassLoaderData, name string) (JavaClass, error) {
	if strings.HasPrefix(name, "[") {
		return vm.findArrayClass(loader, name)
	}
	return vm.resolveClass(loader, name)
}

// linkClassNode builds an InstanceClass from a freshly parsed ClassNode:
// resolves its superclass and interfaces (recursively, through the same
// loader), builds its virtual and static layouts, and seeds ConstantValue
// statics. The result is not yet registered in loader; callers choose
// the registration contract (race-tolerant winner, or strict-fail).
func (vm *VM) linkClassNode(loader *ClassLoaderData, node *classnode.ClassNode) (*InstanceClass, error) {
	class := &InstanceClass{Node: node, Loader: loader}

	if node.SuperName != "" {
		super, err := vm.resolveClassRaw(loader, node.SuperName)
		if err != nil {
			return nil, err
		}
		class.Super = super
	}
	for _, ifaceName := range node.Interfaces {
		iface, err := vm.resolveClassRaw(loader, ifaceName)
		if err != nil {
			return nil, err
		}
		class.Interfaces = append(class.Interfaces, iface)
	}

	if class.Super != nil {
		class.VirtualLayout = inheritLayout(class.Super.VirtualLayout)
	} else {
		class.VirtualLayout = newLayout()
	}
	class.StaticLayout = newLayout()
	for _, f := range node.Fields {
		if f.IsStatic() {
			class.StaticLayout.add(f.Name, f.Descriptor)
		} else {
			class.VirtualLayout.add(f.Name, f.Descriptor)
		}
	}
	class.StaticStorage = newStorage(class.StaticLayout.wordLen)
	vm.applyConstantDefaults(class)
	return class, nil
}

// defineClass links a freshly parsed ClassNode and registers the result
// in loader, returning the winner of a concurrent race. This is the
// internal path every file-backed ClassLoader feeds through
// resolveClassRaw; DefineClass below is the raw-bytes contract exposed
// to embedders and user-defined class loaders.
func (vm *VM) defineClass(loader *ClassLoaderData, node *classnode.ClassNode) (*InstanceClass, error) {
	class, err := vm.linkClassNode(loader, node)
	if err != nil {
		return nil, err
	}
	winner, _ := loader.Define(node.Name, class)
	return winner, nil
}

// DefineClass is the raw-bytes class definition contract: validates the
// off/length window into bytes, parses it, checks the parsed internal
// name against the requested one, links and strictly registers the
// class (failing rather than racing if name is already present), and
// stamps the class mirror's classLoader/protectionDomain fields. For a
// non-null loaderObj it also records the mirror on the loader's
// classes Vector stand-in, the way java.lang.ClassLoader.defineClass
// does internally.
func (vm *VM) DefineClass(loader *ClassLoaderData, loaderObj *Object, name string, data []byte, off, length int, protectionDomain *Object, source string) (*InstanceClass, error) {
	if (off | length | (off + length) | (len(data) - (off + length))) < 0 {
		return nil, vm.helper.ThrowVM("java/lang/ArrayIndexOutOfBoundsException",
			fmt.Sprintf("off=%d, len=%d, bytes.length=%d", off, length, len(data)))
	}

	node, err := classnode.Parse(bytes.NewReader(data[off : off+length]))
	if err != nil {
		return nil, vm.helper.ThrowVM("java/lang/ClassFormatError", source+": "+err.Error())
	}

	requested := strings.ReplaceAll(name, "/", ".")
	parsed := strings.ReplaceAll(node.Name, "/", ".")
	if requested != parsed {
		return nil, vm.helper.ThrowVM("java/lang/ClassNotFoundException",
			fmt.Sprintf("%s (wrong name: %s)", parsed, requested))
	}

	if _, ok := loader.Get(node.Name); ok {
		return nil, vm.helper.ThrowVM("java/lang/ClassNotFoundException",
			fmt.Sprintf("%s (already defined)", requested))
	}

	class, err := vm.linkClassNode(loader, node)
	if err != nil {
		return nil, err
	}
	if !loader.defineStrict(node.Name, class) {
		return nil, vm.helper.ThrowVM("java/lang/ClassNotFoundException",
			fmt.Sprintf("%s (already defined)", requested))
	}

	mirror := vm.classMirrorFor(class)
	if _, slot, ok := resolveFieldSlot(vm.symbols.Class, "classLoader", "Ljava/lang/ClassLoader;", false); ok {
		mirror.SetField(slot, RefValue(loaderObj))
	}
	if _, slot, ok := resolveFieldSlot(vm.symbols.Class, "protectionDomain", "Ljava/security/ProtectionDomain;", false); ok {
		mirror.SetField(slot, RefValue(protectionDomain))
	}

	if loaderObj != nil {
		loader.appendClassVector(mirror)
	}

	return class, nil
}

// applyConstantDefaults writes each static final field's ConstantValue
// attribute into StaticStorage ahead of <clinit>, per JVMS 5.5: these are
// visible even to a class that observes this one mid-initialization.
func (vm *VM) applyConstantDefaults(class *InstanceClass) {
	for _, f := range class.Node.Fields {
		if !f.IsStatic() || f.ConstantValue == nil {
			continue
		}
		slot, ok := class.StaticLayout.lookup(f.Name, f.Descriptor)
		if !ok {
			continue
		}
		class.StaticStorage.Set(slot, vm.hostValueToValue(f.ConstantValue))
	}
}

func (vm *VM) hostValueToValue(v any) Value {
	switch x := v.(type) {
	case int32:
		return IntValue(x)
	case int64:
		return LongValue(x)
	case float32:
		return FloatValue(x)
	case float64:
		return DoubleValue(x)
	case string:
		str, err := vm.helper.NewUtf8(NewThread(), x)
		if err != nil {
			return NullValue()
		}
		return RefValue(str)
	default:
		return NullValue()
	}
}

// findBootstrapClass resolves name through the bootstrap loader without
// raising a catchable exception on failure, for use during VM boot and by
// Helper.ThrowVM when materializing an exception class itself.
func (vm *VM) findBootstrapClass(name string) (*InstanceClass, error) {
	return vm.resolveClassRaw(vm.BootLoader, name)
}

// EnsureInitialized runs class's <clinit> exactly once across all
// threads, blocking racing threads until the winner finishes, per the
// state machine on InstanceClass. Superclasses are initialized first.
func (vm *VM) EnsureInitialized(t VMThread, class *InstanceClass) error {
	if class.Super != nil {
		if err := vm.EnsureInitialized(t, class.Super); err != nil {
			return err
		}
	}
	run, err := class.BeginInit(t)
	if err != nil {
		return err
	}
	if !run {
		return nil
	}

	var initErr error
	if clinit := class.Node.FindMethod("<clinit>", "()V"); clinit != nil {
		_, initErr = vm.helper.invoke(t, class, clinit, nil)
	}
	if initErr != nil {
		initErr = vm.wrapInitError(initErr)
	}
	class.FinishInit(initErr)
	return initErr
}

// wrapInitError implements JVMS 5.5's ExceptionInInitializerError rule: a
// VMException that is not already an Error is wrapped; Errors propagate
// unchanged. PanicExceptions propagate unchanged either way.
func (vm *VM) wrapInitError(err error) error {
	vmErr, ok := err.(*VMException)
	if !ok {
		return err
	}
	if vm.symbols.Error.IsAssignableFrom(vmErr.Throwable.Class()) {
		return err
	}
	wrapper := vm.mm.NewInstance(vm.symbols.ExceptionInInitializerError)
	if slot, ok := vm.symbols.ExceptionInInitializerError.VirtualLayout.lookup("cause", "Ljava/lang/Throwable;"); ok {
		wrapper.SetField(slot, RefValue(vmErr.Throwable))
	}
	return &VMException{Throwable: wrapper}
}

// findArrayClass resolves a full array descriptor ("[I", "[[Lfoo;", ...)
// to its ArrayClass, recursively resolving and caching component classes
// one dimension at a time, registered in loader.
func (vm *VM) findArrayClass(loader *ClassLoaderData, descriptor string) (*ArrayClass, error) {
	if existing, ok := loader.GetArray(descriptor); ok {
		return existing, nil
	}
	elemDesc := descriptor[1:]
	var component JavaClass
	var err error
	switch elemDesc[0] {
	case '[':
		component, err = vm.findArrayClass(loader, elemDesc)
	case 'L':
		name := strings.TrimSuffix(strings.TrimPrefix(elemDesc, "L"), ";")
		component, err = vm.resolveClass(loader, name)
	default:
		component = PrimitiveClassFor(elemDesc[0])
	}
	if err != nil {
		return nil, err
	}
	arr := &ArrayClass{Name: descriptor, ComponentClass: component, ElementDescriptor: elemDesc[0]}
	winner, _ := loader.DefineArray(descriptor, arr)
	return winner, nil
}

// findArrayClassForElement wraps a bare element descriptor ("I", or
// "Lfoo/Bar;") into the one-dimension-deeper array descriptor and
// resolves it, for newarray/anewarray.
func (vm *VM) findArrayClassForElement(loader *ClassLoaderData, elementDescriptor string) (*ArrayClass, error) {
	return vm.findArrayClass(loader, "["+elementDescriptor)
}

// classMirrorFor returns the java.lang.Class instance standing for class,
// allocating and caching it on first use.
func (vm *VM) classMirrorFor(class JavaClass) *Object {
	vm.mirrorMu.Lock()
	defer vm.mirrorMu.Unlock()
	if m, ok := vm.mirrors[class]; ok {
		return m
	}
	mirror := vm.mm.NewInstance(vm.symbols.Class)
	mirror.Native = class
	vm.mirrors[class] = mirror
	return mirror
}

// methodTypeMirror returns the java.lang.invoke.MethodType instance
// standing for a method descriptor, one per distinct descriptor string.
func (vm *VM) methodTypeMirror(descriptor string) *Object {
	vm.mirrorMu.Lock()
	defer vm.mirrorMu.Unlock()
	if m, ok := vm.methodTypes[descriptor]; ok {
		return m
	}
	obj := vm.mm.NewInstance(vm.symbols.MethodType)
	obj.Native = descriptor
	vm.methodTypes[descriptor] = obj
	return obj
}

// Stringify renders o the way println(Object) does: the Go string read
// back from a java.lang.String, a user-defined toString() override if one
// resolves, or the default "ClassName@hash" form.
func (vm *VM) Stringify(t VMThread, o *Object) string {
	if o == nil {
		return "null"
	}
	if s, ok := vm.helper.GoString(t, o); ok {
		return s
	}
	defaultForm := func() string {
		return fmt.Sprintf("%s@%x", o.Class().ClassName(), reflect.ValueOf(o).Pointer())
	}
	if o.IsArray() {
		return defaultForm()
	}
	owner, m := resolveVirtual(o.InstanceClass(), "toString", "()Ljava/lang/String;")
	if m == nil {
		return defaultForm()
	}
	ret, err := vm.helper.invoke(t, owner, m, []Value{RefValue(o)})
	if err != nil || len(ret) != 1 {
		return defaultForm()
	}
	if s, ok := vm.helper.GoString(t, ret[0].Ref()); ok {
		return s
	}
	return defaultForm()
}
