package vm

import "fmt"

func (e *Engine) execArrayLoad(frame *Frame, op byte) error {
	h := e.vm.helper
	index := frame.Pop().Int()
	arrRef := frame.Pop()
	if err := h.CheckNotNull(arrRef); err != nil {
		return err
	}
	arr := arrRef.Ref()
	if err := h.CheckArrayIndex(arr.Length(), int(index)); err != nil {
		return err
	}
	v := arr.GetElement(int(index))
	switch op {
	case OpBaload, OpCaload, OpSaload, OpIaload:
		frame.Push(IntValue(v.Int()))
	case OpLaload:
		frame.Push(LongValue(v.Long()))
	case OpFaload:
		frame.Push(FloatValue(v.Float()))
	case OpDaload:
		frame.Push(DoubleValue(v.Double()))
	case OpAaload:
		frame.Push(v)
	}
	return nil
}

func (e *Engine) execArrayStore(frame *Frame, op byte) error {
	h := e.vm.helper
	var value Value
	switch op {
	case OpLastore:
		value = LongValue(frame.Pop().Long())
	case OpFastore:
		value = FloatValue(frame.Pop().Float())
	case OpDastore:
		value = DoubleValue(frame.Pop().Double())
	default:
		value = frame.Pop()
	}
	index := frame.Pop().Int()
	arrRef := frame.Pop()
	if err := h.CheckNotNull(arrRef); err != nil {
		return err
	}
	arr := arrRef.Ref()
	if err := h.CheckArrayIndex(arr.Length(), int(index)); err != nil {
		return err
	}
	arr.SetElement(int(index), value)
	return nil
}

func elementDescriptorFor(atype uint8) byte {
	switch atype {
	case ATBoolean:
		return 'Z'
	case ATChar:
		return 'C'
	case ATFloat:
		return 'F'
	case ATDouble:
		return 'D'
	case ATByte:
		return 'B'
	case ATShort:
		return 'S'
	case ATInt:
		return 'I'
	case ATLong:
		return 'J'
	}
	return 'I'
}

func (e *Engine) execNewarray(frame *Frame) error {
	atype := frame.ReadU8()
	length := frame.Pop().Int()
	if length < 0 {
		return e.vm.helper.ThrowVM("java/lang/NegativeArraySizeException", fmt.Sprintf("%d", length))
	}
	desc := elementDescriptorFor(atype)
	class, err := e.vm.findArrayClassForElement(frame.Class.Loader, string(desc))
	if err != nil {
		return err
	}
	obj, err := e.vm.mm.NewArray(class, int(length))
	if err != nil {
		return err
	}
	frame.Push(RefValue(obj))
	return nil
}

func (e *Engine) execAnewarray(frame *Frame) error {
	idx := frame.ReadU16()
	length := frame.Pop().Int()
	if length < 0 {
		return e.vm.helper.ThrowVM("java/lang/NegativeArraySizeException", fmt.Sprintf("%d", length))
	}
	name, err := frame.Class.Node.ClassRefName(idx)
	if err != nil {
		return err
	}
	elemDesc := toDescriptor(name)
	class, err := e.vm.findArrayClassForElement(frame.Class.Loader, elemDesc)
	if err != nil {
		return err
	}
	obj, err := e.vm.mm.NewArray(class, int(length))
	if err != nil {
		return err
	}
	frame.Push(RefValue(obj))
	return nil
}

// execMultianewarray allocates a multi-dimensional array by recursively
// allocating one ArrayClass level at a time; only the first dimensionsGiven
// levels are sized, the rest are left to later anewarray-style allocation,
// matching JVMS 6.5's multianewarray semantics.
func (e *Engine) execMultianewarray(frame *Frame) error {
	idx := frame.ReadU16()
	dimensions := int(frame.ReadU8())
	counts := make([]int32, dimensions)
	for i := dimensions - 1; i >= 0; i-- {
		counts[i] = frame.Pop().Int()
	}
	for _, c := range counts {
		if c < 0 {
			return e.vm.helper.ThrowVM("java/lang/NegativeArraySizeException", fmt.Sprintf("%d", c))
		}
	}
	name, err := frame.Class.Node.ClassRefName(idx)
	if err != nil {
		return err
	}
	class, err := e.vm.findArrayClass(frame.Class.Loader, name)
	if err != nil {
		return err
	}
	obj, err := e.allocMultiArray(class, counts)
	if err != nil {
		return err
	}
	frame.Push(RefValue(obj))
	return nil
}

func (e *Engine) allocMultiArray(class *ArrayClass, counts []int32) (*Object, error) {
	obj, err := e.vm.mm.NewArray(class, int(counts[0]))
	if err != nil {
		return nil, err
	}
	if len(counts) == 1 {
		return obj, nil
	}
	componentArray, ok := class.ComponentClass.(*ArrayClass)
	if !ok {
		return obj, nil
	}
	for i := 0; i < int(counts[0]); i++ {
		child, err := e.allocMultiArray(componentArray, counts[1:])
		if err != nil {
			return nil, err
		}
		obj.SetElement(i, RefValue(child))
	}
	return obj, nil
}

// toDescriptor wraps an internal class/array name the way CONSTANT_Class
// entries store it into a field descriptor: array names already start
// with '[', bare object names get the "L...;" wrapper.
func toDescriptor(name string) string {
	if len(name) > 0 && name[0] == '[' {
		return name
	}
	return "L" + name + ";"
}

func (e *Engine) execCheckcast(frame *Frame) error {
	idx := frame.ReadU16()
	v := frame.Peek()
	if v.IsNull() {
		return nil
	}
	name, err := frame.Class.Node.ClassRefName(idx)
	if err != nil {
		return err
	}
	target, err := e.vm.resolveType(frame.Class.Loader, name)
	if err != nil {
		return err
	}
	if !target.IsAssignableFrom(v.Ref().Class()) {
		return e.vm.helper.ThrowVM("java/lang/ClassCastException",
			v.Ref().Class().ClassName()+" cannot be cast to "+target.ClassName())
	}
	return nil
}

func (e *Engine) execInstanceof(frame *Frame) error {
	idx := frame.ReadU16()
	v := frame.Pop()
	if v.IsNull() {
		frame.Push(IntValue(0))
		return nil
	}
	name, err := frame.Class.Node.ClassRefName(idx)
	if err != nil {
		return err
	}
	target, err := e.vm.resolveType(frame.Class.Loader, name)
	if err != nil {
		return err
	}
	frame.Push(BoolValue(target.IsAssignableFrom(v.Ref().Class())))
	return nil
}
