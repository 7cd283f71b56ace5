package vm

import (
	"time"

	"github.com/go-ssvm/ssvm/pkg/vmfs"
)

// registerFileNatives wires java.io.UnixFileSystem's native methods
// against vm.FileManager, the same bridge-to-the-embedder split
// registerBuiltins uses for console output: the VM never touches the
// host filesystem directly, only through whatever FileManager the
// embedder supplies.
func registerFileNatives(vm *VM) {
	r := vm.natives
	const fs = "java/io/UnixFileSystem"

	filePath := func(t VMThread, h *Helper, fileObj *Object) (string, error) {
		if fileObj == nil {
			return "", h.ThrowVM("java/lang/NullPointerException", "")
		}
		_, slot, ok := resolveFieldSlot(fileObj.InstanceClass(), "path", "Ljava/lang/String;", false)
		if !ok {
			return "", h.ThrowPanic("java/lang/NoSuchFieldError", "java.io.File.path")
		}
		s, _ := h.GoString(t, fileObj.GetField(slot).Ref())
		return s, nil
	}

	requireManager := func(vm *VM) (vmfs.FileManager, error) {
		if vm.FileManager == nil {
			return nil, vm.helper.ThrowVM("java/lang/UnsupportedOperationException", "no FileManager configured")
		}
		return vm.FileManager, nil
	}

	r.Register(fs, "getBooleanAttributes0", "(Ljava/io/File;)I", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, err := filePath(t, vm.helper, args[1].Ref())
		if err != nil {
			return nil, err
		}
		attrs, err := fm.GetAttributes(path)
		if err != nil {
			return []Value{IntValue(0)}, nil
		}
		return []Value{IntValue(int32(attrs))}, nil
	})

	r.Register(fs, "checkAccess", "(Ljava/io/File;I)Z", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, err := filePath(t, vm.helper, args[1].Ref())
		if err != nil {
			return nil, err
		}
		ok, err := fm.CheckAccess(path, int(args[2].Int()))
		if err != nil {
			return []Value{BoolValue(false)}, nil
		}
		return []Value{BoolValue(ok)}, nil
	})

	r.Register(fs, "delete0", "(Ljava/io/File;)Z", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, err := filePath(t, vm.helper, args[1].Ref())
		if err != nil {
			return nil, err
		}
		return []Value{BoolValue(fm.Delete(path) == nil)}, nil
	})

	r.Register(fs, "list", "(Ljava/io/File;)[Ljava/lang/String;", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, err := filePath(t, vm.helper, args[1].Ref())
		if err != nil {
			return nil, err
		}
		names, err := fm.List(path)
		if err != nil {
			return []Value{NullValue()}, nil
		}
		class, err := vm.findArrayClassForElement(vm.BootLoader, "Ljava/lang/String;")
		if err != nil {
			return nil, err
		}
		arr, err := vm.mm.NewArray(class, len(names))
		if err != nil {
			return nil, err
		}
		for i, n := range names {
			str, err := vm.helper.NewUtf8(t, n)
			if err != nil {
				return nil, err
			}
			arr.SetElement(i, RefValue(str))
		}
		return []Value{RefValue(arr)}, nil
	})

	r.Register(fs, "createFileExclusively", "(Ljava/lang/String;)Z", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, _ := vm.helper.GoString(t, args[1].Ref())
		created, err := fm.CreateFileExclusively(path)
		if err != nil {
			return []Value{BoolValue(false)}, nil
		}
		return []Value{BoolValue(created)}, nil
	})

	r.Register(fs, "rename0", "(Ljava/io/File;Ljava/io/File;)Z", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		from, err := filePath(t, vm.helper, args[1].Ref())
		if err != nil {
			return nil, err
		}
		to, err := filePath(t, vm.helper, args[2].Ref())
		if err != nil {
			return nil, err
		}
		return []Value{BoolValue(fm.Rename(from, to) == nil)}, nil
	})

	r.Register(fs, "setLastModifiedTime", "(Ljava/io/File;J)Z", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, err := filePath(t, vm.helper, args[1].Ref())
		if err != nil {
			return nil, err
		}
		millis := args[2].Long()
		err = fm.SetLastModifiedTime(path, time.UnixMilli(millis))
		return []Value{BoolValue(err == nil)}, nil
	})

	r.Register(fs, "setReadOnly", "(Ljava/io/File;)Z", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, err := filePath(t, vm.helper, args[1].Ref())
		if err != nil {
			return nil, err
		}
		return []Value{BoolValue(fm.SetReadOnly(path) == nil)}, nil
	})

	r.Register(fs, "getSpace", "(Ljava/io/File;I)J", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, err := filePath(t, vm.helper, args[1].Ref())
		if err != nil {
			return nil, err
		}
		space, err := fm.GetSpace(path, int(args[2].Int()))
		if err != nil {
			return []Value{LongValue(0)}, nil
		}
		return []Value{LongValue(space)}, nil
	})

	r.Register(fs, "canonicalize0", "(Ljava/lang/String;)Ljava/lang/String;", func(vm *VM, t VMThread, args []Value) ([]Value, error) {
		fm, err := requireManager(vm)
		if err != nil {
			return nil, err
		}
		path, _ := vm.helper.GoString(t, args[1].Ref())
		canon, err := fm.Canonicalize(path)
		if err != nil {
			return nil, vm.helper.ThrowPanic("java/lang/UnsatisfiedLinkError", err.Error())
		}
		str, err := vm.helper.NewUtf8(t, canon)
		if err != nil {
			return nil, err
		}
		return []Value{RefValue(str)}, nil
	})
}
