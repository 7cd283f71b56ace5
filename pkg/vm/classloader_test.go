package vm

import (
	"testing"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

// fakeLoader is a ClassLoader stub used to test UserClassLoader's
// delegation and caching without needing real jmod/class file fixtures.
type fakeLoader struct {
	calls   int
	classes map[string]*classnode.ClassNode
}

func (f *fakeLoader) LoadClass(name string) (*classnode.ClassNode, error) {
	f.calls++
	if cn, ok := f.classes[name]; ok {
		return cn, nil
	}
	return nil, errNotFound(name)
}

type errNotFound string

func (e errNotFound) Error() string { return "class not found: " + string(e) }

func TestUserClassLoaderDelegation(t *testing.T) {
	parent := &fakeLoader{classes: map[string]*classnode.ClassNode{
		"java/lang/Object": {Name: "java/lang/Object"},
	}}
	userCL := NewUserClassLoader("/nonexistent/classpath", parent)

	t.Run("delegates to parent for stdlib classes", func(t *testing.T) {
		cn, err := userCL.LoadClass("java/lang/Object")
		if err != nil {
			t.Fatalf("load via delegation: %v", err)
		}
		if cn.Name != "java/lang/Object" {
			t.Errorf("class name: got %q, want %q", cn.Name, "java/lang/Object")
		}
	})

	t.Run("user class not found falls through to disk lookup error", func(t *testing.T) {
		_, err := userCL.LoadClass("NonExistentClass")
		if err == nil {
			t.Error("expected error for nonexistent class, got nil")
		}
	})
}

func TestJmodClassLoaderMissingFile(t *testing.T) {
	cl := NewJmodClassLoader("/nonexistent/path.jmod")
	if _, err := cl.LoadClass("java/lang/Integer"); err == nil {
		t.Error("expected error opening a nonexistent jmod, got nil")
	}
}

func TestClassLoaderDataCachesDefinitions(t *testing.T) {
	data := NewClassLoaderData(nil)
	class := &InstanceClass{Node: &classnode.ClassNode{Name: "Hello"}}

	winner, stored := data.Define("Hello", class)
	if !stored || winner != class {
		t.Fatalf("first Define: stored=%v winner=%p want=%p", stored, winner, class)
	}

	other := &InstanceClass{Node: &classnode.ClassNode{Name: "Hello"}}
	winner2, stored2 := data.Define("Hello", other)
	if stored2 {
		t.Error("second Define of the same name should not win the race")
	}
	if winner2 != class {
		t.Error("second Define should return the already-registered class")
	}

	got, ok := data.Get("Hello")
	if !ok || got != class {
		t.Error("Get should return the winning definition")
	}
}
