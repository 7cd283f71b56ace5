package vm

// Symbols holds the InstanceClass mirrors the VM itself depends on and
// resolves eagerly at boot, mirroring VMSymbols's constructor pattern of
// one findBootstrapClass call per well-known type.
type Symbols struct {
	Object       *InstanceClass
	Class        *InstanceClass
	String       *InstanceClass
	Throwable    *InstanceClass
	Exception    *InstanceClass
	Error        *InstanceClass
	RuntimeException *InstanceClass

	NullPointerException      *InstanceClass
	ArrayIndexOutOfBoundsException *InstanceClass
	IndexOutOfBoundsException *InstanceClass
	NegativeArraySizeException *InstanceClass
	ClassCastException        *InstanceClass
	ArithmeticException       *InstanceClass
	ClassNotFoundException    *InstanceClass
	NoClassDefFoundError      *InstanceClass
	StackOverflowError        *InstanceClass
	OutOfMemoryError          *InstanceClass
	IllegalStateException     *InstanceClass
	IllegalArgumentException  *InstanceClass
	UnsupportedOperationException *InstanceClass
	BootstrapMethodError      *InstanceClass
	AbstractMethodError       *InstanceClass
	IncompatibleClassChangeError *InstanceClass
	NoSuchFieldError          *InstanceClass
	NoSuchMethodError         *InstanceClass
	ExceptionInInitializerError *InstanceClass
	UnsatisfiedLinkError      *InstanceClass

	MethodHandle       *InstanceClass
	MethodHandles      *InstanceClass
	MethodType         *InstanceClass
	CallSite           *InstanceClass
	MethodHandleNatives *InstanceClass

	Thread *InstanceClass

	Integer   *InstanceClass
	Long      *InstanceClass
	Float     *InstanceClass
	Double    *InstanceClass
	Character *InstanceClass
	Short     *InstanceClass
	Byte      *InstanceClass
	Boolean   *InstanceClass
	Void      *InstanceClass
}

// resolveSymbols eagerly loads every well-known class this VM depends on
// through findBootstrapClass, so native helper code never has to worry
// about a missing class mid-execution.
func resolveSymbols(vm *VM) (*Symbols, error) {
	s := &Symbols{}
	entries := []struct {
		name string
		dst  **InstanceClass
	}{
		{"java/lang/Object", &s.Object},
		{"java/lang/Class", &s.Class},
		{"java/lang/String", &s.String},
		{"java/lang/Throwable", &s.Throwable},
		{"java/lang/Exception", &s.Exception},
		{"java/lang/Error", &s.Error},
		{"java/lang/RuntimeException", &s.RuntimeException},
		{"java/lang/NullPointerException", &s.NullPointerException},
		{"java/lang/ArrayIndexOutOfBoundsException", &s.ArrayIndexOutOfBoundsException},
		{"java/lang/IndexOutOfBoundsException", &s.IndexOutOfBoundsException},
		{"java/lang/NegativeArraySizeException", &s.NegativeArraySizeException},
		{"java/lang/ClassCastException", &s.ClassCastException},
		{"java/lang/ArithmeticException", &s.ArithmeticException},
		{"java/lang/ClassNotFoundException", &s.ClassNotFoundException},
		{"java/lang/NoClassDefFoundError", &s.NoClassDefFoundError},
		{"java/lang/StackOverflowError", &s.StackOverflowError},
		{"java/lang/OutOfMemoryError", &s.OutOfMemoryError},
		{"java/lang/IllegalStateException", &s.IllegalStateException},
		{"java/lang/IllegalArgumentException", &s.IllegalArgumentException},
		{"java/lang/UnsupportedOperationException", &s.UnsupportedOperationException},
		{"java/lang/BootstrapMethodError", &s.BootstrapMethodError},
		{"java/lang/AbstractMethodError", &s.AbstractMethodError},
		{"java/lang/IncompatibleClassChangeError", &s.IncompatibleClassChangeError},
		{"java/lang/NoSuchFieldError", &s.NoSuchFieldError},
		{"java/lang/NoSuchMethodError", &s.NoSuchMethodError},
		{"java/lang/ExceptionInInitializerError", &s.ExceptionInInitializerError},
		{"java/lang/UnsatisfiedLinkError", &s.UnsatisfiedLinkError},
		{"java/lang/invoke/MethodHandle", &s.MethodHandle},
		{"java/lang/invoke/MethodHandles", &s.MethodHandles},
		{"java/lang/invoke/MethodType", &s.MethodType},
		{"java/lang/invoke/CallSite", &s.CallSite},
		{"java/lang/invoke/MethodHandleNatives", &s.MethodHandleNatives},
		{"java/lang/Thread", &s.Thread},
		{"java/lang/Integer", &s.Integer},
		{"java/lang/Long", &s.Long},
		{"java/lang/Float", &s.Float},
		{"java/lang/Double", &s.Double},
		{"java/lang/Character", &s.Character},
		{"java/lang/Short", &s.Short},
		{"java/lang/Byte", &s.Byte},
		{"java/lang/Boolean", &s.Boolean},
		{"java/lang/Void", &s.Void},
	}
	for _, e := range entries {
		class, err := vm.findBootstrapClass(e.name)
		if err != nil {
			return nil, WrapPanic(err, "resolving well-known class "+e.name)
		}
		*e.dst = class
	}
	return s, nil
}
