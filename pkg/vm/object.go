package vm

// Object is the single reference-type representation: an instance, an
// array, both carry a monitor and a class mirror, so the operand stack
// and locals only ever need one reference kind.
type Object struct {
	class   JavaClass
	storage *Storage // instance virtual fields; nil for arrays
	values  []Value  // array elements; nil for instances
	monitor *Monitor
	// Native holds opaque host-side state for classes whose fields are
	// never read by bytecode directly, only through native methods (a
	// HashMap's bucket table, a PrintStream's io.Writer, an Integer's
	// Go-side payload, a Class mirror's JavaClass, a MethodType's
	// descriptor, a MethodHandle's dispatch binding, ...).
	Native any
}

func (o *Object) Class() JavaClass { return o.class }
func (o *Object) Monitor() *Monitor { return o.monitor }
func (o *Object) IsArray() bool     { return o.values != nil }

// InstanceClass returns the class mirror, asserting this Object is an
// instance, not an array.
func (o *Object) InstanceClass() *InstanceClass { return o.class.(*InstanceClass) }

func (o *Object) GetField(slot FieldSlot) Value    { return o.storage.Get(slot) }
func (o *Object) SetField(slot FieldSlot, v Value) { o.storage.Set(slot, v) }

func (o *Object) Length() int        { return len(o.values) }
func (o *Object) GetElement(i int) Value   { return o.values[i] }
func (o *Object) SetElement(i int, v Value) { o.values[i] = v }
