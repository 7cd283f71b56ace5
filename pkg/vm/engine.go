package vm

import (
	"sync"

	"github.com/go-ssvm/ssvm/pkg/classnode"
)

// Engine drives bytecode execution one Frame at a time. It holds no
// per-call state beyond a depth counter per thread, guarding against
// runaway recursion the way a real JVM's -Xss does.
type Engine struct {
	vm            *VM
	maxFrameDepth int

	mu    sync.Mutex
	depth map[int64]int
}

func newEngine(vm *VM, maxFrameDepth int) *Engine {
	if maxFrameDepth <= 0 {
		maxFrameDepth = 1024
	}
	return &Engine{vm: vm, maxFrameDepth: maxFrameDepth, depth: make(map[int64]int)}
}

func (e *Engine) enter(t VMThread) (func(), error) {
	e.mu.Lock()
	d := e.depth[t.ThreadID()] + 1
	if d > e.maxFrameDepth {
		e.mu.Unlock()
		return nil, e.vm.helper.ThrowVM("java/lang/StackOverflowError", "")
	}
	e.depth[t.ThreadID()] = d
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.depth[t.ThreadID()]--
		e.mu.Unlock()
	}, nil
}

// run executes method on owner with args already placed for the callee
// (receiver first for instance methods), returning its return value (0
// or 1 element) or propagating a VMException/PanicException.
func (e *Engine) run(t VMThread, owner *InstanceClass, method *classnode.MethodNode, args []Value) ([]Value, error) {
	leave, err := e.enter(t)
	if err != nil {
		return nil, err
	}
	defer leave()

	frame := NewFrame(int(method.MaxLocals), int(method.MaxStack), method.Code, owner, method)
	placeArgs(frame, args)

	for {
		pc := frame.PC
		op := frame.ReadU8()
		returned, ret, err := e.step(t, frame, op, pc)
		if err != nil {
			if handlerPC, ok := e.findHandler(t, frame, method, pc, err); ok {
				frame.PC = handlerPC
				continue
			}
			return nil, err
		}
		if returned {
			return ret, nil
		}
	}
}

// placeArgs lays args into locals 0.., widening each long/double arg to
// occupy two consecutive local slots per JVMS 2.6.1.
func placeArgs(frame *Frame, args []Value) {
	i := 0
	for _, a := range args {
		frame.SetLocal(i, a)
		i++
		if a.Width() == 2 {
			frame.SetLocal(i, TopValue())
			i++
		}
	}
}

// findHandler walks method's exception table looking for a handler
// covering pc whose catch type matches the thrown VMException. Returns
// false immediately for PanicException, which is never bytecode-caught.
func (e *Engine) findHandler(t VMThread, frame *Frame, method *classnode.MethodNode, pc int, err error) (int, bool) {
	vmExc, ok := err.(*VMException)
	if !ok {
		return 0, false
	}
	for _, h := range method.ExceptionHandlers {
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		if h.CatchType != "" {
			catchClass, cerr := e.vm.resolveClass(frame.Class.Loader, h.CatchType)
			if cerr != nil {
				continue
			}
			if !catchClass.IsAssignableFrom(vmExc.Throwable.Class()) {
				continue
			}
		}
		frame.ClearStack()
		frame.Push(RefValue(vmExc.Throwable))
		return int(h.HandlerPC), true
	}
	return 0, false
}
