package vm

import (
	"fmt"
	"sync"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

// InitState is the class-initialization state machine: every class moves
// Loaded -> Initializing -> Initialized, or Initializing -> Errored if
// <clinit> threw. Nothing sets StateLinked; BeginInit treats it like
// StateLoaded.
type InitState uint8

const (
	StateLoaded InitState = iota
	StateLinked
	StateInitializing
	StateInitialized
	StateErrored
)

// JavaClass is the common interface over the three class mirror kinds.
type JavaClass interface {
	ClassName() string
	IsArray() bool
	IsPrimitive() bool
	IsInterface() bool
	// IsAssignableFrom reports whether a value of class other may be
	// assigned to a variable of this class (this is a supertype of other,
	// covering primitive identity, interface/superclass chains, and the
	// array covariance rule).
	IsAssignableFrom(other JavaClass) bool
}

// InstanceClass mirrors a loaded, non-array, non-primitive class.
type InstanceClass struct {
	Node          *classnode.ClassNode
	Super         *InstanceClass
	Interfaces    []*InstanceClass
	Loader        *ClassLoaderData
	VirtualLayout *Layout
	StaticLayout  *Layout
	StaticStorage *Storage

	mu    sync.Mutex
	cond  *sync.Cond
	state InitState
	// initializer is the thread currently running <clinit>; re-entrant
	// for that thread, blocking for every other thread until it finishes.
	initializer VMThread
	initErr     error
}

func (c *InstanceClass) initCond() *sync.Cond {
	if c.cond == nil {
		c.cond = sync.NewCond(&c.mu)
	}
	return c.cond
}

func (c *InstanceClass) ClassName() string  { return c.Node.Name }
func (c *InstanceClass) IsArray() bool      { return false }
func (c *InstanceClass) IsPrimitive() bool  { return false }
func (c *InstanceClass) IsInterface() bool  { return c.Node.IsInterface() }

func (c *InstanceClass) IsAssignableFrom(other JavaClass) bool {
	o, ok := other.(*InstanceClass)
	if !ok {
		return false
	}
	return o.implements(c)
}

// implements reports whether c itself, any superclass, or any interface
// transitively implemented is target.
func (c *InstanceClass) implements(target *InstanceClass) bool {
	for cur := c; cur != nil; cur = cur.Super {
		if cur == target {
			return true
		}
		for _, iface := range cur.Interfaces {
			if iface.implements(target) {
				return true
			}
		}
	}
	return false
}

// State returns the class's current initialization state.
func (c *InstanceClass) State() InitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BeginInit attempts to move the class from Loaded/Linked into
// Initializing on behalf of t. It returns (true, nil) when the caller
// must run <clinit>, (false, nil) when another thread already completed
// initialization (or this thread is re-entering its own <clinit>, in
// which case the caller should just proceed without rerunning it), and
// (false, err) when a prior initialization attempt errored.
func (c *InstanceClass) BeginInit(t VMThread) (run bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cond := c.initCond()
	for {
		switch c.state {
		case StateInitialized:
			return false, nil
		case StateErrored:
			return false, fmt.Errorf("class %s: initialization previously failed: %w", c.Node.Name, c.initErr)
		case StateInitializing:
			if c.initializer == t {
				return false, nil
			}
			cond.Wait()
		default:
			c.state = StateInitializing
			c.initializer = t
			return true, nil
		}
	}
}

// FinishInit records the outcome of running <clinit> and wakes any thread
// blocked in BeginInit waiting on this class.
func (c *InstanceClass) FinishInit(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateErrored
		c.initErr = err
	} else {
		c.state = StateInitialized
		c.initializer = nil
	}
	c.initCond().Broadcast()
}

// ArrayClass mirrors a reference or primitive array type, one dimension
// deep: [[I's ArrayClass has ComponentClass set to [I's ArrayClass.
type ArrayClass struct {
	Name           string // e.g. "[I", "[Ljava/lang/String;"
	ComponentClass JavaClass
	ElementDescriptor byte // first byte of the element descriptor
}

func (a *ArrayClass) ClassName() string  { return a.Name }
func (a *ArrayClass) IsArray() bool      { return true }
func (a *ArrayClass) IsPrimitive() bool  { return false }
func (a *ArrayClass) IsInterface() bool  { return false }

func (a *ArrayClass) IsAssignableFrom(other JavaClass) bool {
	o, ok := other.(*ArrayClass)
	if !ok {
		return false
	}
	if a.ComponentClass.IsPrimitive() || o.ComponentClass.IsPrimitive() {
		return a.ComponentClass == o.ComponentClass
	}
	return a.ComponentClass.IsAssignableFrom(o.ComponentClass)
}

// PrimitiveClass mirrors one of the eight primitive types.
type PrimitiveClass struct {
	Name       string // "int", "long", ...
	Descriptor byte   // 'I', 'J', ...
}

func (p *PrimitiveClass) ClassName() string  { return p.Name }
func (p *PrimitiveClass) IsArray() bool      { return false }
func (p *PrimitiveClass) IsPrimitive() bool  { return true }
func (p *PrimitiveClass) IsInterface() bool  { return false }
func (p *PrimitiveClass) IsAssignableFrom(other JavaClass) bool { return other == p }

var primitiveClasses = map[byte]*PrimitiveClass{
	'I': {Name: "int", Descriptor: 'I'},
	'J': {Name: "long", Descriptor: 'J'},
	'F': {Name: "float", Descriptor: 'F'},
	'D': {Name: "double", Descriptor: 'D'},
	'C': {Name: "char", Descriptor: 'C'},
	'S': {Name: "short", Descriptor: 'S'},
	'B': {Name: "byte", Descriptor: 'B'},
	'Z': {Name: "boolean", Descriptor: 'Z'},
	'V': {Name: "void", Descriptor: 'V'},
}

func PrimitiveClassFor(descriptor byte) *PrimitiveClass { return primitiveClasses[descriptor] }
