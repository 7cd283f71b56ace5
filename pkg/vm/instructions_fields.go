package vm

// resolveFieldSlot walks owner and its superclasses looking for a layout
// (virtual or static, chosen by the static flag) containing name/desc.
func resolveFieldSlot(owner *InstanceClass, name, desc string, static bool) (*InstanceClass, FieldSlot, bool) {
	for c := owner; c != nil; c = c.Super {
		layout := c.VirtualLayout
		if static {
			layout = c.StaticLayout
		}
		if slot, ok := layout.lookup(name, desc); ok {
			return c, slot, true
		}
	}
	return nil, FieldSlot{}, false
}

func (e *Engine) fieldrefTarget(frame *Frame, idx uint16) (*InstanceClass, string, string, error) {
	ref, err := frame.Class.Node.Fieldref(idx)
	if err != nil {
		return nil, "", "", err
	}
	owner, err := e.vm.resolveClass(frame.Class.Loader, ref.ClassName)
	if err != nil {
		return nil, "", "", err
	}
	return owner, ref.Name, ref.Descriptor, nil
}

// fieldSite is what a getfield/putfield/getstatic/putstatic instruction
// caches once resolved, keyed by bytecode offset on the owning method
// the same way invokedynamic caches its linkedSite.
type fieldSite struct {
	owner    *InstanceClass
	declarer *InstanceClass
	slot     FieldSlot
}

func (e *Engine) resolveFieldSite(frame *Frame, pc int, idx uint16, static bool) (*fieldSite, error) {
	if cached, ok := frame.Method.SiteCache(pc); ok {
		return cached.(*fieldSite), nil
	}
	owner, name, desc, err := e.fieldrefTarget(frame, idx)
	if err != nil {
		return nil, err
	}
	declarer, slot, ok := resolveFieldSlot(owner, name, desc, static)
	if !ok {
		return nil, e.vm.helper.ThrowVM("java/lang/NoSuchFieldError", owner.ClassName()+"."+name)
	}
	site := &fieldSite{owner: owner, declarer: declarer, slot: slot}
	frame.Method.CacheSite(pc, site)
	return site, nil
}

func (e *Engine) execGetstatic(t VMThread, frame *Frame) error {
	idx := frame.ReadU16()
	site, err := e.resolveFieldSite(frame, frame.PC-2, idx, true)
	if err != nil {
		return err
	}
	if err := e.vm.EnsureInitialized(t, site.owner); err != nil {
		return err
	}
	frame.Push(site.declarer.StaticStorage.Get(site.slot))
	return nil
}

func (e *Engine) execPutstatic(t VMThread, frame *Frame) error {
	idx := frame.ReadU16()
	site, err := e.resolveFieldSite(frame, frame.PC-2, idx, true)
	if err != nil {
		return err
	}
	if err := e.vm.EnsureInitialized(t, site.owner); err != nil {
		return err
	}
	site.declarer.StaticStorage.Set(site.slot, frame.Pop())
	return nil
}

func (e *Engine) execGetfield(frame *Frame) error {
	idx := frame.ReadU16()
	site, err := e.resolveFieldSite(frame, frame.PC-2, idx, false)
	if err != nil {
		return err
	}
	ref := frame.Pop()
	if err := e.vm.helper.CheckNotNull(ref); err != nil {
		return err
	}
	frame.Push(ref.Ref().GetField(site.slot))
	return nil
}

func (e *Engine) execPutfield(frame *Frame) error {
	idx := frame.ReadU16()
	site, err := e.resolveFieldSite(frame, frame.PC-2, idx, false)
	if err != nil {
		return err
	}
	v := frame.Pop()
	ref := frame.Pop()
	if err := e.vm.helper.CheckNotNull(ref); err != nil {
		return err
	}
	ref.Ref().SetField(site.slot, v)
	return nil
}
