package vm

func (e *Engine) popArgs(frame *Frame, params []byte) []Value {
	args := make([]Value, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}
	return args
}

func (e *Engine) execInvokevirtual(t VMThread, frame *Frame) ([]Value, error) {
	idx := frame.ReadU16()
	ref, err := frame.Class.Node.Methodref(idx)
	if err != nil {
		return nil, err
	}
	params, ret := parseMethodDescriptor(ref.Descriptor)
	args := e.popArgs(frame, params)
	recv := frame.Pop()
	if err := e.vm.helper.CheckNotNull(recv); err != nil {
		return nil, err
	}
	result, err := e.vm.helper.InvokeVirtual(t, recv.Ref(), ref.Name, ref.Descriptor, args)
	return trimVoid(result, ret), err
}

func (e *Engine) execInvokespecial(t VMThread, frame *Frame) ([]Value, error) {
	idx := frame.ReadU16()
	ref, err := frame.Class.Node.Methodref(idx)
	if err != nil {
		return nil, err
	}
	owner, err := e.vm.resolveClass(frame.Class.Loader, ref.ClassName)
	if err != nil {
		return nil, err
	}
	params, ret := parseMethodDescriptor(ref.Descriptor)
	args := e.popArgs(frame, params)
	recv := frame.Pop()
	if err := e.vm.helper.CheckNotNull(recv); err != nil {
		return nil, err
	}
	result, err := e.vm.helper.InvokeSpecial(t, owner, recv.Ref(), ref.Name, ref.Descriptor, args)
	return trimVoid(result, ret), err
}

func (e *Engine) execInvokestatic(t VMThread, frame *Frame) ([]Value, error) {
	idx := frame.ReadU16()
	ref, err := frame.Class.Node.Methodref(idx)
	if err != nil {
		return nil, err
	}
	owner, err := e.vm.resolveClass(frame.Class.Loader, ref.ClassName)
	if err != nil {
		return nil, err
	}
	params, ret := parseMethodDescriptor(ref.Descriptor)
	args := e.popArgs(frame, params)
	result, err := e.vm.helper.InvokeStatic(t, owner, ref.Name, ref.Descriptor, args)
	return trimVoid(result, ret), err
}

func (e *Engine) execInvokeinterface(t VMThread, frame *Frame) ([]Value, error) {
	idx := frame.ReadU16()
	frame.ReadU8() // count, unused — recomputed from descriptor
	frame.ReadU8() // reserved zero byte
	ref, err := frame.Class.Node.InterfaceMethodref(idx)
	if err != nil {
		return nil, err
	}
	params, ret := parseMethodDescriptor(ref.Descriptor)
	args := e.popArgs(frame, params)
	recv := frame.Pop()
	if err := e.vm.helper.CheckNotNull(recv); err != nil {
		return nil, err
	}
	result, err := e.vm.helper.InvokeInterface(t, recv.Ref(), ref.Name, ref.Descriptor, args)
	return trimVoid(result, ret), err
}

func trimVoid(result []Value, ret byte) []Value {
	if ret == 'V' {
		return nil
	}
	return result
}

func (e *Engine) execNew(frame *Frame) error {
	idx := frame.ReadU16()
	name, err := frame.Class.Node.ClassRefName(idx)
	if err != nil {
		return err
	}
	class, err := e.vm.resolveClass(frame.Class.Loader, name)
	if err != nil {
		return err
	}
	obj := e.vm.mm.NewInstance(class)
	frame.Push(RefValue(obj))
	return nil
}

func (e *Engine) execLdc(t VMThread, frame *Frame, idx int) error {
	c, err := frame.Class.Node.Ldc(uint16(idx))
	if err != nil {
		return err
	}
	v, err := e.vm.helper.ValueFromLdc(t, frame.Class.Loader, c)
	if err != nil {
		return err
	}
	frame.Push(v)
	return nil
}

func (e *Engine) execTableswitch(frame *Frame, opStart int) error {
	for frame.PC%4 != 0 {
		frame.ReadU8()
	}
	defaultOffset := frame.ReadI32()
	low := frame.ReadI32()
	high := frame.ReadI32()
	index := frame.Pop().Int()
	if index < low || index > high {
		frame.PC = opStart + int(defaultOffset)
		return nil
	}
	skip := int(index-low) * 4
	for i := 0; i < skip; i++ {
		frame.ReadU8()
	}
	offset := frame.ReadI32()
	frame.PC = opStart + int(offset)
	return nil
}

func (e *Engine) execLookupswitch(frame *Frame, opStart int) error {
	for frame.PC%4 != 0 {
		frame.ReadU8()
	}
	defaultOffset := frame.ReadI32()
	npairs := frame.ReadI32()
	key := frame.Pop().Int()
	for i := int32(0); i < npairs; i++ {
		match := frame.ReadI32()
		offset := frame.ReadI32()
		if match == key {
			frame.PC = opStart + int(offset)
			return nil
		}
	}
	frame.PC = opStart + int(defaultOffset)
	return nil
}

// execWide handles the wide-prefixed variants of iload/istore/... and
// iinc, whose index operand is 2 bytes instead of 1.
func (e *Engine) execWide(frame *Frame) error {
	op := frame.ReadU8()
	idx := int(frame.ReadU16())
	switch op {
	case OpIload, OpFload, OpAload, OpLload, OpDload:
		frame.Push(frame.GetLocal(idx))
	case OpIstore, OpFstore, OpAstore, OpLstore, OpDstore:
		frame.SetLocal(idx, frame.Pop())
	case OpIinc:
		delta := int32(frame.ReadI16())
		frame.SetLocal(idx, IntValue(frame.GetLocal(idx).Int()+delta))
	case OpRet:
		frame.PC = int(frame.GetLocal(idx).Int())
	}
	return nil
}
