package vm

import (
	"fmt"
	"math"
)

// step decodes and executes the instruction at op (operand bytes, if any,
// are read from frame.Code starting at frame.PC). opStart is the byte
// offset of op itself, which branch targets are relative to. step
// returns returned=true once the method has produced its return value
// (possibly empty, for a void return).
func (e *Engine) step(t VMThread, frame *Frame, op byte, opStart int) (returned bool, ret []Value, err error) {
	h := e.vm.helper
	switch op {
	case OpNop:

	case OpAconstNull:
		frame.Push(NullValue())
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		frame.Push(IntValue(int32(op) - int32(OpIconst0)))
	case OpLconst0, OpLconst1:
		frame.Push(LongValue(int64(op) - int64(OpLconst0)))
	case OpFconst0, OpFconst1, OpFconst2:
		frame.Push(FloatValue(float32(op) - float32(OpFconst0)))
	case OpDconst0, OpDconst1:
		frame.Push(DoubleValue(float64(op) - float64(OpDconst0)))
	case OpBipush:
		frame.Push(IntValue(int32(frame.ReadI8())))
	case OpSipush:
		frame.Push(IntValue(int32(frame.ReadI16())))

	case OpLdc:
		err = e.execLdc(t, frame, int(frame.ReadU8()))
	case OpLdcW, OpLdc2W:
		err = e.execLdc(t, frame, int(frame.ReadU16()))

	case OpIload, OpFload, OpAload, OpLload, OpDload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case OpIload0, OpIload1, OpIload2, OpIload3:
		frame.Push(frame.GetLocal(int(op - OpIload0)))
	case OpFload0, OpFload1, OpFload2, OpFload3:
		frame.Push(frame.GetLocal(int(op - OpFload0)))
	case OpAload0, OpAload1, OpAload2, OpAload3:
		frame.Push(frame.GetLocal(int(op - OpAload0)))
	case OpLload0, OpLload1, OpLload2, OpLload3:
		frame.Push(frame.GetLocal(int(op - OpLload0)))
	case OpDload0, OpDload1, OpDload2, OpDload3:
		frame.Push(frame.GetLocal(int(op - OpDload0)))

	case OpIstore, OpFstore, OpAstore, OpLstore, OpDstore:
		frame.SetLocal(int(frame.ReadU8()), frame.Pop())
	case OpIstore0, OpIstore1, OpIstore2, OpIstore3:
		frame.SetLocal(int(op-OpIstore0), frame.Pop())
	case OpFstore0, OpFstore1, OpFstore2, OpFstore3:
		frame.SetLocal(int(op-OpFstore0), frame.Pop())
	case OpAstore0, OpAstore1, OpAstore2, OpAstore3:
		frame.SetLocal(int(op-OpAstore0), frame.Pop())
	case OpLstore0, OpLstore1, OpLstore2, OpLstore3:
		frame.SetLocal(int(op-OpLstore0), frame.Pop())
	case OpDstore0, OpDstore1, OpDstore2, OpDstore3:
		frame.SetLocal(int(op-OpDstore0), frame.Pop())

	case OpIaload, OpLaload, OpFaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload:
		err = e.execArrayLoad(frame, op)
	case OpIastore, OpLastore, OpFastore, OpDastore, OpAastore, OpBastore, OpCastore, OpSastore:
		err = e.execArrayStore(frame, op)

	case OpPop:
		frame.Pop()
	case OpPop2:
		v := frame.Pop()
		if v.Width() == 1 {
			frame.Pop()
		}
	case OpDup:
		frame.Push(frame.Peek())
	case OpDupX1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)
	case OpDupX2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		v3 := frame.Pop()
		frame.Push(v1)
		frame.Push(v3)
		frame.Push(v2)
		frame.Push(v1)
	case OpDup2:
		v1 := frame.Pop()
		if v1.Width() == 2 {
			frame.Push(v1)
			frame.Push(v1)
		} else {
			v2 := frame.Pop()
			frame.Push(v2)
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		}
	case OpDup2X1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)
	case OpDup2X2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		v3 := frame.Pop()
		frame.Push(v1)
		frame.Push(v3)
		frame.Push(v2)
		frame.Push(v1)
	case OpSwap:
		v1 := frame.Pop()
		v2 := frame.Pop()
		frame.Push(v1)
		frame.Push(v2)

	case OpIadd:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(a + b))
	case OpLadd:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(LongValue(a + b))
	case OpFadd:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(FloatValue(a + b))
	case OpDadd:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(DoubleValue(a + b))
	case OpIsub:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(a - b))
	case OpLsub:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(LongValue(a - b))
	case OpFsub:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(FloatValue(a - b))
	case OpDsub:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(DoubleValue(a - b))
	case OpImul:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(a * b))
	case OpLmul:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(LongValue(a * b))
	case OpFmul:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(FloatValue(a * b))
	case OpDmul:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(DoubleValue(a * b))
	case OpIdiv:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		if b == 0 {
			err = h.ThrowVM("java/lang/ArithmeticException", "/ by zero")
			break
		}
		frame.Push(IntValue(a / b))
	case OpLdiv:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		if b == 0 {
			err = h.ThrowVM("java/lang/ArithmeticException", "/ by zero")
			break
		}
		frame.Push(LongValue(a / b))
	case OpFdiv:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(FloatValue(a / b))
	case OpDdiv:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(DoubleValue(a / b))
	case OpIrem:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		if b == 0 {
			err = h.ThrowVM("java/lang/ArithmeticException", "/ by zero")
			break
		}
		frame.Push(IntValue(a % b))
	case OpLrem:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		if b == 0 {
			err = h.ThrowVM("java/lang/ArithmeticException", "/ by zero")
			break
		}
		frame.Push(LongValue(a % b))
	case OpFrem:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(FloatValue(float32(math.Mod(float64(a), float64(b)))))
	case OpDrem:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(DoubleValue(math.Mod(a, b)))
	case OpIneg:
		frame.Push(IntValue(-frame.Pop().Int()))
	case OpLneg:
		frame.Push(LongValue(-frame.Pop().Long()))
	case OpFneg:
		frame.Push(FloatValue(-frame.Pop().Float()))
	case OpDneg:
		frame.Push(DoubleValue(-frame.Pop().Double()))

	case OpIshl:
		s, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(a << (uint32(s) & 0x1f)))
	case OpLshl:
		s, a := frame.Pop().Int(), frame.Pop().Long()
		frame.Push(LongValue(a << (uint32(s) & 0x3f)))
	case OpIshr:
		s, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(a >> (uint32(s) & 0x1f)))
	case OpLshr:
		s, a := frame.Pop().Int(), frame.Pop().Long()
		frame.Push(LongValue(a >> (uint32(s) & 0x3f)))
	case OpIushr:
		s, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(int32(uint32(a) >> (uint32(s) & 0x1f))))
	case OpLushr:
		s, a := frame.Pop().Int(), frame.Pop().Long()
		frame.Push(LongValue(int64(uint64(a) >> (uint32(s) & 0x3f))))
	case OpIand:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(a & b))
	case OpLand:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(LongValue(a & b))
	case OpIor:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(a | b))
	case OpLor:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(LongValue(a | b))
	case OpIxor:
		b, a := frame.Pop().Int(), frame.Pop().Int()
		frame.Push(IntValue(a ^ b))
	case OpLxor:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(LongValue(a ^ b))
	case OpIinc:
		idx := int(frame.ReadU8())
		delta := int32(frame.ReadI8())
		frame.SetLocal(idx, IntValue(frame.GetLocal(idx).Int()+delta))

	case OpI2l:
		frame.Push(LongValue(int64(frame.Pop().Int())))
	case OpI2f:
		frame.Push(FloatValue(float32(frame.Pop().Int())))
	case OpI2d:
		frame.Push(DoubleValue(float64(frame.Pop().Int())))
	case OpL2i:
		frame.Push(IntValue(int32(frame.Pop().Long())))
	case OpL2f:
		frame.Push(FloatValue(float32(frame.Pop().Long())))
	case OpL2d:
		frame.Push(DoubleValue(float64(frame.Pop().Long())))
	case OpF2i:
		frame.Push(IntValue(floatToInt(frame.Pop().Float())))
	case OpF2l:
		frame.Push(LongValue(floatToLong(frame.Pop().Float())))
	case OpF2d:
		frame.Push(DoubleValue(float64(frame.Pop().Float())))
	case OpD2i:
		frame.Push(IntValue(doubleToInt(frame.Pop().Double())))
	case OpD2l:
		frame.Push(LongValue(doubleToLong(frame.Pop().Double())))
	case OpD2f:
		frame.Push(FloatValue(float32(frame.Pop().Double())))
	case OpI2b:
		frame.Push(IntValue(int32(int8(frame.Pop().Int()))))
	case OpI2c:
		frame.Push(IntValue(int32(uint16(frame.Pop().Int()))))
	case OpI2s:
		frame.Push(IntValue(int32(int16(frame.Pop().Int()))))

	case OpLcmp:
		b, a := frame.Pop().Long(), frame.Pop().Long()
		frame.Push(IntValue(cmp64(a, b)))
	case OpFcmpl:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(IntValue(fcmp(float64(a), float64(b), -1)))
	case OpFcmpg:
		b, a := frame.Pop().Float(), frame.Pop().Float()
		frame.Push(IntValue(fcmp(float64(a), float64(b), 1)))
	case OpDcmpl:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(IntValue(fcmp(a, b, -1)))
	case OpDcmpg:
		b, a := frame.Pop().Double(), frame.Pop().Double()
		frame.Push(IntValue(fcmp(a, b, 1)))

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle:
		target := frame.ReadI16()
		v := frame.Pop().Int()
		if unaryTest(op, v) {
			frame.PC = opStart + int(target)
		}
	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple:
		target := frame.ReadI16()
		b, a := frame.Pop().Int(), frame.Pop().Int()
		if binaryIntTest(op, a, b) {
			frame.PC = opStart + int(target)
		}
	case OpIfAcmpeq, OpIfAcmpne:
		target := frame.ReadI16()
		b, a := frame.Pop().Ref(), frame.Pop().Ref()
		eq := a == b
		if (op == OpIfAcmpeq) == eq {
			frame.PC = opStart + int(target)
		}
	case OpIfnull, OpIfnonnull:
		target := frame.ReadI16()
		isNull := frame.Pop().IsNull()
		if (op == OpIfnull) == isNull {
			frame.PC = opStart + int(target)
		}
	case OpGoto:
		target := frame.ReadI16()
		frame.PC = opStart + int(target)
	case OpGotoW:
		target := frame.ReadI32()
		frame.PC = opStart + int(target)
	case OpJsr:
		target := frame.ReadI16()
		frame.Push(IntValue(int32(frame.PC)))
		frame.PC = opStart + int(target)
	case OpRet:
		idx := int(frame.ReadU8())
		frame.PC = int(frame.GetLocal(idx).Int())

	case OpTableswitch:
		err = e.execTableswitch(frame, opStart)
	case OpLookupswitch:
		err = e.execLookupswitch(frame, opStart)

	case OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn:
		return true, []Value{frame.Pop()}, nil
	case OpReturn:
		return true, nil, nil

	case OpGetstatic:
		err = e.execGetstatic(t, frame)
	case OpPutstatic:
		err = e.execPutstatic(t, frame)
	case OpGetfield:
		err = e.execGetfield(frame)
	case OpPutfield:
		err = e.execPutfield(frame)

	case OpInvokevirtual:
		var r []Value
		if r, err = e.execInvokevirtual(t, frame); err == nil {
			pushOptional(frame, r)
		}
	case OpInvokespecial:
		var r []Value
		if r, err = e.execInvokespecial(t, frame); err == nil {
			pushOptional(frame, r)
		}
	case OpInvokestatic:
		var r []Value
		if r, err = e.execInvokestatic(t, frame); err == nil {
			pushOptional(frame, r)
		}
	case OpInvokeinterface:
		var r []Value
		if r, err = e.execInvokeinterface(t, frame); err == nil {
			pushOptional(frame, r)
		}
	case OpInvokedynamic:
		var r []Value
		if r, err = e.execInvokedynamic(t, frame); err == nil {
			pushOptional(frame, r)
		}

	case OpNew:
		err = e.execNew(frame)
	case OpNewarray:
		err = e.execNewarray(frame)
	case OpAnewarray:
		err = e.execAnewarray(frame)
	case OpMultianewarray:
		err = e.execMultianewarray(frame)
	case OpArraylength:
		v := frame.Pop()
		if err = h.CheckNotNull(v); err == nil {
			frame.Push(IntValue(int32(v.Ref().Length())))
		}
	case OpAthrow:
		obj := frame.Pop().Ref()
		if obj == nil {
			err = h.ThrowVM("java/lang/NullPointerException", "")
			break
		}
		err = &VMException{Throwable: obj}
	case OpCheckcast:
		err = e.execCheckcast(frame)
	case OpInstanceof:
		err = e.execInstanceof(frame)
	case OpMonitorenter:
		v := frame.Pop()
		if err = h.CheckNotNull(v); err == nil {
			v.Ref().Monitor().Enter(t)
		}
	case OpMonitorexit:
		v := frame.Pop()
		if err = h.CheckNotNull(v); err == nil {
			err = v.Ref().Monitor().Exit(t)
		}
	case OpWide:
		err = e.execWide(frame)

	default:
		err = fmt.Errorf("engine: unimplemented opcode 0x%02x", op)
	}
	return false, nil, err
}

func pushOptional(frame *Frame, ret []Value) {
	if len(ret) == 1 {
		frame.Push(ret[0])
	}
}
