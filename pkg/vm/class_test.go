package vm

import (
	"testing"
	"time"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

func namedClass(name string, super *InstanceClass, ifaces ...*InstanceClass) *InstanceClass {
	return &InstanceClass{
		Node:       &classnode.ClassNode{Name: name},
		Super:      super,
		Interfaces: ifaces,
	}
}

func TestInstanceClassImplements(t *testing.T) {
	object := namedClass("java/lang/Object", nil)
	runnable := namedClass("java/lang/Runnable", nil)
	base := namedClass("Base", object, runnable)
	derived := namedClass("Derived", base)

	cases := []struct {
		name   string
		class  *InstanceClass
		target *InstanceClass
		want   bool
	}{
		{"self", derived, derived, true},
		{"direct super", derived, base, true},
		{"transitive super", derived, object, true},
		{"transitive interface", derived, runnable, true},
		{"unrelated", derived, namedClass("Other", object), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.class.implements(c.target); got != c.want {
				t.Errorf("implements: got %v, want %v", got, c.want)
			}
		})
	}
}

func TestInstanceClassIsAssignableFrom(t *testing.T) {
	object := namedClass("java/lang/Object", nil)
	sub := namedClass("Sub", object)

	if !object.IsAssignableFrom(sub) {
		t.Error("a superclass should be assignable from its subclass")
	}
	if sub.IsAssignableFrom(object) {
		t.Error("a subclass should not be assignable from its superclass")
	}
	if !object.IsAssignableFrom(object) {
		t.Error("a class should be assignable from itself")
	}
}

func TestInstanceClassIsAssignableFromRejectsNonInstanceClass(t *testing.T) {
	object := namedClass("java/lang/Object", nil)
	array := &ArrayClass{Name: "[I", ComponentClass: PrimitiveClassFor('I'), ElementDescriptor: 'I'}
	if object.IsAssignableFrom(array) {
		t.Error("an InstanceClass should never be assignable from an ArrayClass")
	}
}

func TestBeginInitFinishInitHappyPath(t *testing.T) {
	c := namedClass("Foo", nil)
	thread := NewThread()

	run, err := c.BeginInit(thread)
	if err != nil || !run {
		t.Fatalf("first BeginInit: run=%v err=%v, want true,nil", run, err)
	}
	if c.State() != StateInitializing {
		t.Errorf("state: got %v, want StateInitializing", c.State())
	}

	c.FinishInit(nil)
	if c.State() != StateInitialized {
		t.Errorf("state: got %v, want StateInitialized", c.State())
	}

	run, err = c.BeginInit(thread)
	if err != nil || run {
		t.Errorf("BeginInit after success: run=%v err=%v, want false,nil", run, err)
	}
}

func TestBeginInitReentrantForInitializingThread(t *testing.T) {
	c := namedClass("Foo", nil)
	thread := NewThread()

	run, err := c.BeginInit(thread)
	if err != nil || !run {
		t.Fatalf("first BeginInit: run=%v err=%v", run, err)
	}

	run, err = c.BeginInit(thread)
	if err != nil || run {
		t.Errorf("re-entrant BeginInit by the initializing thread: run=%v err=%v, want false,nil", run, err)
	}
}

func TestBeginInitBlocksOtherThreadsUntilFinish(t *testing.T) {
	c := namedClass("Foo", nil)
	initializer := NewThread()
	other := NewThread()

	run, err := c.BeginInit(initializer)
	if err != nil || !run {
		t.Fatalf("first BeginInit: run=%v err=%v", run, err)
	}

	done := make(chan struct{})
	go func() {
		run, err := c.BeginInit(other)
		if err != nil || run {
			t.Errorf("other thread's BeginInit: run=%v err=%v, want false,nil", run, err)
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("other thread's BeginInit returned before initialization finished")
	case <-time.After(50 * time.Millisecond):
	}

	c.FinishInit(nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("other thread's BeginInit never returned after FinishInit")
	}
}

func TestBeginInitPropagatesErrorToWaiters(t *testing.T) {
	c := namedClass("Foo", nil)
	initializer := NewThread()
	other := NewThread()

	run, err := c.BeginInit(initializer)
	if err != nil || !run {
		t.Fatalf("first BeginInit: run=%v err=%v", run, err)
	}
	clinitErr := errTest("boom")
	c.FinishInit(clinitErr)

	if c.State() != StateErrored {
		t.Errorf("state: got %v, want StateErrored", c.State())
	}

	if _, err := c.BeginInit(other); err == nil {
		t.Error("expected BeginInit on an errored class to return an error")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
