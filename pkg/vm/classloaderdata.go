package vm

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// ClassLoaderData is the per-loader name->class registry. Reads are
// lock-free; defineClass races on the same name are resolved by
// LoadOrStore so only one parse wins.
type ClassLoaderData struct {
	classes *xsync.MapOf[string, *InstanceClass]
	arrays  *xsync.MapOf[string, *ArrayClass]
	Parent  *ClassLoaderData
	// Source supplies raw class bytes for names not yet in classes. nil
	// is valid for synthetic loader data built only for tests.
	Source ClassLoader

	// defineMu serializes the strict-contract DefineClass path (raw
	// bytes handed in by a user ClassLoader): unlike the race-tolerant
	// LoadOrStore Define uses, DefineClass must fail outright on a
	// name already present rather than silently picking a winner.
	defineMu sync.Mutex
	// ClassesVector stands in for java.lang.ClassLoader's classes
	// Vector: DefineClass appends the new mirror here for every
	// non-null loader, mirroring the real VM's Vector.add call.
	ClassesVector []*Object
}

func NewClassLoaderData(parent *ClassLoaderData) *ClassLoaderData {
	return &ClassLoaderData{
		classes: xsync.NewMapOf[string, *InstanceClass](),
		arrays:  xsync.NewMapOf[string, *ArrayClass](),
		Parent:  parent,
	}
}

// Get looks up name in d's own registry, then walks up through Parent,
// mirroring parent-first classloader delegation.
func (d *ClassLoaderData) Get(name string) (*InstanceClass, bool) {
	if class, ok := d.classes.Load(name); ok {
		return class, true
	}
	if d.Parent != nil {
		return d.Parent.Get(name)
	}
	return nil, false
}

// Define installs class under name if absent, returning the winner of a
// concurrent race (the losing *InstanceClass is discarded by the caller).
func (d *ClassLoaderData) Define(name string, class *InstanceClass) (*InstanceClass, bool) {
	actual, loaded := d.classes.LoadOrStore(name, class)
	return actual, !loaded
}

// defineStrict installs class under name, failing if name is already
// present instead of picking a winner: the contract DefineClass's raw-
// bytes entry point needs, as opposed to Define's race-tolerant one.
func (d *ClassLoaderData) defineStrict(name string, class *InstanceClass) bool {
	d.defineMu.Lock()
	defer d.defineMu.Unlock()
	if _, ok := d.classes.Load(name); ok {
		return false
	}
	d.classes.Store(name, class)
	return true
}

// appendClassVector records mirror on the loader's classes Vector
// stand-in, under the same lock DefineClass's presence check uses.
func (d *ClassLoaderData) appendClassVector(mirror *Object) {
	d.defineMu.Lock()
	defer d.defineMu.Unlock()
	d.ClassesVector = append(d.ClassesVector, mirror)
}

func (d *ClassLoaderData) GetArray(name string) (*ArrayClass, bool) {
	return d.arrays.Load(name)
}

func (d *ClassLoaderData) DefineArray(name string, class *ArrayClass) (*ArrayClass, bool) {
	actual, loaded := d.arrays.LoadOrStore(name, class)
	return actual, !loaded
}
