package vm

import (
	"testing"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

func newTestInstanceClass(t *testing.T, fields [][2]string) *InstanceClass {
	t.Helper()
	layout := newLayout()
	for _, f := range fields {
		layout.add(f[0], f[1])
	}
	return &InstanceClass{Node: &classnode.ClassNode{Name: "TestClass"}, VirtualLayout: layout}
}

func TestObjectFields(t *testing.T) {
	mm := NewMemoryManager()

	t.Run("set and get field", func(t *testing.T) {
		class := newTestInstanceClass(t, [][2]string{{"x", "I"}})
		obj := mm.NewInstance(class)
		slot, _ := class.VirtualLayout.lookup("x", "I")
		obj.SetField(slot, IntValue(42))

		got := obj.GetField(slot)
		if got.Kind() != KindInt || got.Int() != 42 {
			t.Errorf("field x: got %+v, want IntValue(42)", got)
		}
	})

	t.Run("multiple fields", func(t *testing.T) {
		class := newTestInstanceClass(t, [][2]string{{"x", "I"}, {"y", "I"}})
		obj := mm.NewInstance(class)
		xs, _ := class.VirtualLayout.lookup("x", "I")
		ys, _ := class.VirtualLayout.lookup("y", "I")
		obj.SetField(xs, IntValue(10))
		obj.SetField(ys, IntValue(20))

		if obj.GetField(xs).Int() != 10 {
			t.Errorf("field x: got %d, want 10", obj.GetField(xs).Int())
		}
		if obj.GetField(ys).Int() != 20 {
			t.Errorf("field y: got %d, want 20", obj.GetField(ys).Int())
		}
	})

	t.Run("overwrite field", func(t *testing.T) {
		class := newTestInstanceClass(t, [][2]string{{"x", "I"}})
		obj := mm.NewInstance(class)
		slot, _ := class.VirtualLayout.lookup("x", "I")
		obj.SetField(slot, IntValue(1))
		obj.SetField(slot, IntValue(99))

		if obj.GetField(slot).Int() != 99 {
			t.Errorf("overwritten field x: got %d, want 99", obj.GetField(slot).Int())
		}
	})

	t.Run("reference field", func(t *testing.T) {
		class := newTestInstanceClass(t, [][2]string{{"child", "Ljava/lang/Object;"}})
		inner := mm.NewInstance(newTestInstanceClass(t, nil))
		obj := mm.NewInstance(class)
		slot, _ := class.VirtualLayout.lookup("child", "Ljava/lang/Object;")
		obj.SetField(slot, RefValue(inner))

		got := obj.GetField(slot)
		if got.Kind() != KindRef {
			t.Errorf("field child: got kind %v, want KindRef", got.Kind())
		}
		if got.Ref() != inner {
			t.Errorf("field child: reference mismatch")
		}
	})

	t.Run("null field", func(t *testing.T) {
		class := newTestInstanceClass(t, [][2]string{{"ref", "Ljava/lang/Object;"}})
		obj := mm.NewInstance(class)
		slot, _ := class.VirtualLayout.lookup("ref", "Ljava/lang/Object;")
		obj.SetField(slot, NullValue())

		if !obj.GetField(slot).IsNull() {
			t.Errorf("null field: expected IsNull")
		}
	})

	t.Run("wide field occupies two words", func(t *testing.T) {
		class := newTestInstanceClass(t, [][2]string{{"x", "J"}, {"y", "I"}})
		ys, _ := class.VirtualLayout.lookup("y", "I")
		if ys.Offset != 2 {
			t.Errorf("field y offset: got %d, want 2 (after a 2-word long)", ys.Offset)
		}
	})
}
