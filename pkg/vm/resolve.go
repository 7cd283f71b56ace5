package vm

import "github.com/go-ssvm/ssvm/pkg/classnode"

// resolveStatic looks up a method declared directly on class or one of
// its superclasses, without any dynamic dispatch.
func resolveStatic(class *InstanceClass, name, desc string) (*InstanceClass, *classnode.MethodNode) {
	for c := class; c != nil; c = c.Super {
		if m := c.Node.FindMethod(name, desc); m != nil {
			return c, m
		}
	}
	return nil, nil
}

// resolveVirtual performs standard single-dispatch virtual lookup: start
// at the runtime class of the receiver and walk up until a concrete
// method is found. Interface method calls defer to this same walk per
// this implementation's resolution of the interface-dispatch question
// (see DESIGN.md): an interface call's runtime receiver always has a
// concrete class, so walking its superclass chain finds the override
// exactly as invokevirtual would.
func resolveVirtual(receiverClass *InstanceClass, name, desc string) (*InstanceClass, *classnode.MethodNode) {
	for c := receiverClass; c != nil; c = c.Super {
		if m := c.Node.FindMethod(name, desc); m != nil && !m.IsAbstract() {
			return c, m
		}
	}
	// fall back to interface default methods reachable from the receiver
	return resolveInterfaceDefault(receiverClass, name, desc)
}

func resolveInterfaceDefault(class *InstanceClass, name, desc string) (*InstanceClass, *classnode.MethodNode) {
	for c := class; c != nil; c = c.Super {
		for _, iface := range c.Interfaces {
			if owner, m := resolveInterfaceDefault(iface, name, desc); m != nil {
				return owner, m
			}
		}
	}
	if m := class.Node.FindMethod(name, desc); m != nil && !m.IsAbstract() {
		return class, m
	}
	return nil, nil
}

// resolveExact resolves a method handle's REF_invokeSpecial-style target:
// exactly the method declared on the named class, no virtual dispatch.
func resolveExact(class *InstanceClass, name, desc string) (*InstanceClass, *classnode.MethodNode) {
	if m := class.Node.FindMethod(name, desc); m != nil {
		return class, m
	}
	return nil, nil
}
