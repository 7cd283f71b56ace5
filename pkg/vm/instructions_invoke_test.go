package vm

import "testing"

func i32Bytes(v int32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func TestPopArgs(t *testing.T) {
	frame := NewFrame(0, 4, nil, nil, nil)
	frame.Push(IntValue(1))
	frame.Push(IntValue(2))
	frame.Push(IntValue(3))

	e := &Engine{}
	args := e.popArgs(frame, []byte{'I', 'I', 'I'})
	want := []int32{1, 2, 3}
	for i, w := range want {
		if args[i].Int() != w {
			t.Errorf("args[%d]: got %d, want %d", i, args[i].Int(), w)
		}
	}
	if frame.SP != 0 {
		t.Errorf("SP after popArgs: got %d, want 0", frame.SP)
	}
}

func TestPopArgsEmpty(t *testing.T) {
	frame := NewFrame(0, 1, nil, nil, nil)
	e := &Engine{}
	args := e.popArgs(frame, nil)
	if len(args) != 0 {
		t.Errorf("got %d args, want 0", len(args))
	}
}

func TestTrimVoid(t *testing.T) {
	result := []Value{IntValue(5)}
	if got := trimVoid(result, 'V'); got != nil {
		t.Errorf("void return: got %v, want nil", got)
	}
	if got := trimVoid(result, 'I'); len(got) != 1 || got[0].Int() != 5 {
		t.Errorf("non-void return: got %v, want [5]", got)
	}
}

func TestExecTableswitch(t *testing.T) {
	// default=100, low=1, high=3, offsets for 1,2,3 = 10,20,30, all
	// relative to opStart=0. Operand section starts at PC 0 in this
	// fixture since opStart is already 4-aligned.
	code := append([]byte{}, i32Bytes(100)...)
	code = append(code, i32Bytes(1)...)
	code = append(code, i32Bytes(3)...)
	code = append(code, i32Bytes(10)...)
	code = append(code, i32Bytes(20)...)
	code = append(code, i32Bytes(30)...)

	e := &Engine{}
	t.Run("in range", func(t *testing.T) {
		frame := NewFrame(0, 1, code, nil, nil)
		frame.Push(IntValue(2))
		if err := e.execTableswitch(frame, 0); err != nil {
			t.Fatalf("execTableswitch: %v", err)
		}
		if frame.PC != 20 {
			t.Errorf("PC: got %d, want 20", frame.PC)
		}
	})
	t.Run("below range uses default", func(t *testing.T) {
		frame := NewFrame(0, 1, code, nil, nil)
		frame.Push(IntValue(0))
		if err := e.execTableswitch(frame, 0); err != nil {
			t.Fatalf("execTableswitch: %v", err)
		}
		if frame.PC != 100 {
			t.Errorf("PC: got %d, want 100", frame.PC)
		}
	})
	t.Run("above range uses default", func(t *testing.T) {
		frame := NewFrame(0, 1, code, nil, nil)
		frame.Push(IntValue(4))
		if err := e.execTableswitch(frame, 0); err != nil {
			t.Fatalf("execTableswitch: %v", err)
		}
		if frame.PC != 100 {
			t.Errorf("PC: got %d, want 100", frame.PC)
		}
	})
}

func TestExecLookupswitch(t *testing.T) {
	// default=100, npairs=2, pairs (5,50) (7,70).
	code := append([]byte{}, i32Bytes(100)...)
	code = append(code, i32Bytes(2)...)
	code = append(code, i32Bytes(5)...)
	code = append(code, i32Bytes(50)...)
	code = append(code, i32Bytes(7)...)
	code = append(code, i32Bytes(70)...)

	e := &Engine{}
	t.Run("match found", func(t *testing.T) {
		frame := NewFrame(0, 1, code, nil, nil)
		frame.Push(IntValue(7))
		if err := e.execLookupswitch(frame, 0); err != nil {
			t.Fatalf("execLookupswitch: %v", err)
		}
		if frame.PC != 70 {
			t.Errorf("PC: got %d, want 70", frame.PC)
		}
	})
	t.Run("no match uses default", func(t *testing.T) {
		frame := NewFrame(0, 1, code, nil, nil)
		frame.Push(IntValue(6))
		if err := e.execLookupswitch(frame, 0); err != nil {
			t.Fatalf("execLookupswitch: %v", err)
		}
		if frame.PC != 100 {
			t.Errorf("PC: got %d, want 100", frame.PC)
		}
	})
}

func TestExecWideLoadStore(t *testing.T) {
	e := &Engine{}
	t.Run("wide iload", func(t *testing.T) {
		code := []byte{OpIload, 0x01, 0x00} // local index 256
		frame := NewFrame(257, 1, code, nil, nil)
		frame.SetLocal(256, IntValue(42))
		if err := e.execWide(frame); err != nil {
			t.Fatalf("execWide: %v", err)
		}
		if v := frame.Pop(); v.Int() != 42 {
			t.Errorf("got %d, want 42", v.Int())
		}
	})
	t.Run("wide istore", func(t *testing.T) {
		code := []byte{OpIstore, 0x01, 0x00}
		frame := NewFrame(257, 1, code, nil, nil)
		frame.Push(IntValue(7))
		if err := e.execWide(frame); err != nil {
			t.Fatalf("execWide: %v", err)
		}
		if v := frame.GetLocal(256); v.Int() != 7 {
			t.Errorf("got %d, want 7", v.Int())
		}
	})
	t.Run("wide iinc", func(t *testing.T) {
		code := []byte{OpIinc, 0x00, 0x05, 0x00, 0x03} // local 5, delta 3
		frame := NewFrame(6, 0, code, nil, nil)
		frame.SetLocal(5, IntValue(10))
		if err := e.execWide(frame); err != nil {
			t.Fatalf("execWide: %v", err)
		}
		if v := frame.GetLocal(5); v.Int() != 13 {
			t.Errorf("got %d, want 13", v.Int())
		}
	})
	t.Run("wide ret", func(t *testing.T) {
		code := []byte{OpRet, 0x00, 0x02}
		frame := NewFrame(3, 0, code, nil, nil)
		frame.SetLocal(2, IntValue(99))
		if err := e.execWide(frame); err != nil {
			t.Fatalf("execWide: %v", err)
		}
		if frame.PC != 99 {
			t.Errorf("PC: got %d, want 99", frame.PC)
		}
	})
}
