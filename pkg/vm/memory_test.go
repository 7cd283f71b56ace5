package vm

import "testing"

func TestInheritLayout(t *testing.T) {
	t.Run("nil base yields empty layout", func(t *testing.T) {
		l := inheritLayout(nil)
		if l.wordLen != 0 {
			t.Errorf("wordLen: got %d, want 0", l.wordLen)
		}
	})

	t.Run("subclass fields append after inherited offsets", func(t *testing.T) {
		base := newLayout()
		base.add("x", "I")
		base.add("y", "J")

		sub := inheritLayout(base)
		sub.add("z", "I")

		xs, ok := sub.lookup("x", "I")
		if !ok || xs.Offset != 0 {
			t.Errorf("inherited field x: got %+v, ok=%v", xs, ok)
		}
		ys, ok := sub.lookup("y", "J")
		if !ok || ys.Offset != 1 {
			t.Errorf("inherited field y: got %+v, ok=%v", ys, ok)
		}
		zs, ok := sub.lookup("z", "I")
		if !ok || zs.Offset != 3 {
			t.Errorf("own field z: got %+v (want offset 3, after the 2-word long), ok=%v", zs, ok)
		}
	})

	t.Run("mutating the child layout does not affect the base", func(t *testing.T) {
		base := newLayout()
		base.add("x", "I")
		sub := inheritLayout(base)
		sub.add("y", "I")

		if _, ok := base.lookup("y", "I"); ok {
			t.Error("base layout should not see the child's own field")
		}
	})
}

func TestStorageWideFieldClearsTopSlot(t *testing.T) {
	layout := newLayout()
	slot := layout.add("x", "J")
	storage := newStorage(layout.wordLen)

	storage.Set(slot, LongValue(7))
	if got := storage.Get(slot); got.Long() != 7 {
		t.Errorf("got %d, want 7", got.Long())
	}
	if storage.words[slot.Offset+1].Kind() != KindTop {
		t.Error("second word of a wide field should be KindTop")
	}
}

func TestMemoryManagerNewArrayRejectsNegativeLength(t *testing.T) {
	mm := NewMemoryManager()
	class := &ArrayClass{Name: "[I", ComponentClass: PrimitiveClassFor('I'), ElementDescriptor: 'I'}
	if _, err := mm.NewArray(class, -1); err == nil {
		t.Error("expected an error allocating a negative-length array")
	}
}

func TestMemoryManagerNewArrayDefaultValues(t *testing.T) {
	mm := NewMemoryManager()
	class := &ArrayClass{Name: "[I", ComponentClass: PrimitiveClassFor('I'), ElementDescriptor: 'I'}
	obj, err := mm.NewArray(class, 3)
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	for i := 0; i < 3; i++ {
		if v := obj.GetElement(i); v.Kind() != KindInt || v.Int() != 0 {
			t.Errorf("element %d: got %+v, want IntValue(0)", i, v)
		}
	}
}
