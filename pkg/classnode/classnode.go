// Package classnode adapts the third-party class-file parser into the
// shape the rest of the VM consumes. Parsing the .class format itself is
// an external collaborator: this package supplies a parsed class node and
// gets out of the way.
package classnode

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	parser "github.com/wreulicke/classfile-parser"
)

// Access flags relevant to method/field/class resolution.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// ExceptionHandler is one entry of a method's exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	// CatchType is "" for a catch-all (any) handler.
	CatchType string
}

// BootstrapMethod is one entry of the class's BootstrapMethods attribute,
// consumed by invokedynamic linkage.
type BootstrapMethod struct {
	MethodRef uint16
	Arguments []uint16
}

// MethodNode is a resolved method: name/descriptor already pulled out of
// the constant pool, Code attribute flattened for direct execution.
type MethodNode struct {
	AccessFlags       uint16
	Name              string
	Descriptor        string
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	// call-site resolution caches, one slot per bytecode offset that can
	// carry a cached getfield/putfield/getstatic/putstatic/invokedynamic
	// resolution (spec.md 4.5: "resolved once per call-site and cached
	// on the instruction node").
	siteCache map[int]any
}

// CacheSite stores a resolved call-site payload for the instruction at pc.
func (m *MethodNode) CacheSite(pc int, v any) {
	if m.siteCache == nil {
		m.siteCache = make(map[int]any)
	}
	m.siteCache[pc] = v
}

// SiteCache returns a previously cached resolution for the instruction at pc.
func (m *MethodNode) SiteCache(pc int) (any, bool) {
	v, ok := m.siteCache[pc]
	return v, ok
}

func (m *MethodNode) IsStatic() bool { return m.AccessFlags&AccStatic != 0 }
func (m *MethodNode) IsNative() bool { return m.AccessFlags&0x0100 != 0 }
func (m *MethodNode) IsAbstract() bool { return m.AccessFlags&AccAbstract != 0 }
func (m *MethodNode) HasCode() bool  { return m.Code != nil }

// FieldNode is a resolved field: name/descriptor pulled out of the
// constant pool, declared constant value (if any) converted to a host
// value ready for initializeStaticFields.
type FieldNode struct {
	AccessFlags   uint16
	Name          string
	Descriptor    string
	ConstantValue any // int32, int64, float32, float64, string, or nil
}

func (f *FieldNode) IsStatic() bool { return f.AccessFlags&AccStatic != 0 }

// ClassNode is the VM-facing view of a parsed class file.
type ClassNode struct {
	raw *parser.Classfile

	Name             string
	SuperName        string // "" for java/lang/Object
	Interfaces       []string
	AccessFlags      uint16
	Fields           []*FieldNode
	Methods          []*MethodNode
	BootstrapMethods []BootstrapMethod
}

func (c *ClassNode) IsInterface() bool { return c.AccessFlags&AccInterface != 0 }

// Parse reads a class file from r.
func Parse(r io.Reader) (*ClassNode, error) {
	p := parser.New(r)
	cf, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("classnode: parsing class: %w", err)
	}
	return adapt(cf)
}

// ParseFile opens and parses a .class file from disk.
func ParseFile(path string) (*ClassNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func adapt(cf *parser.Classfile) (*ClassNode, error) {
	cp := cf.ConstantPool

	name, err := cf.ThisClassName()
	if err != nil {
		return nil, fmt.Errorf("classnode: resolving this_class: %w", err)
	}

	super := ""
	if cf.SuperClass != 0 {
		super, err = cf.SuperClassName()
		if err != nil {
			return nil, fmt.Errorf("classnode: resolving super_class: %w", err)
		}
	}

	ifaces := make([]string, 0, len(cf.Interfaces))
	for _, idx := range cf.Interfaces {
		iname, err := cp.GetClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("classnode: resolving interface: %w", err)
		}
		ifaces = append(ifaces, iname)
	}

	fields := make([]*FieldNode, 0, len(cf.Fields))
	for i := range cf.Fields {
		fi := cf.Fields[i]
		fname, err := fi.Name(cp)
		if err != nil {
			return nil, fmt.Errorf("classnode: resolving field name: %w", err)
		}
		fdesc, err := fi.Descriptor(cp)
		if err != nil {
			return nil, fmt.Errorf("classnode: resolving field descriptor: %w", err)
		}
		var cst any
		if cv := fi.ConstantValue(); cv != nil {
			cst, err = constantHostValue(cp, cv.ConstantValueIndex, fdesc)
			if err != nil {
				return nil, fmt.Errorf("classnode: resolving field constant: %w", err)
			}
		}
		fields = append(fields, &FieldNode{
			AccessFlags:   uint16(fi.AccessFlags),
			Name:          fname,
			Descriptor:    fdesc,
			ConstantValue: cst,
		})
	}

	methods := make([]*MethodNode, 0, len(cf.Methods))
	for i := range cf.Methods {
		mi := cf.Methods[i]
		mname, err := mi.Name(cp)
		if err != nil {
			return nil, fmt.Errorf("classnode: resolving method name: %w", err)
		}
		mdesc, err := mi.Descriptor(cp)
		if err != nil {
			return nil, fmt.Errorf("classnode: resolving method descriptor: %w", err)
		}
		mn := &MethodNode{
			AccessFlags: uint16(mi.AccessFlags),
			Name:        mname,
			Descriptor:  mdesc,
		}
		if code := mi.Code(); code != nil {
			mn.MaxStack = code.MaxStack
			mn.MaxLocals = code.MaxLocals
			mn.Code = code.Codes
			for _, h := range code.ExceptionTable {
				catchType := ""
				if h.CatchType != 0 {
					catchType, err = cp.GetClassName(h.CatchType)
					if err != nil {
						return nil, fmt.Errorf("classnode: resolving catch type: %w", err)
					}
				}
				mn.ExceptionHandlers = append(mn.ExceptionHandlers, ExceptionHandler{
					StartPC:   h.StartPc,
					EndPC:     h.EndPc,
					HandlerPC: h.HandlerPc,
					CatchType: catchType,
				})
			}
		}
		methods = append(methods, mn)
	}

	var bsms []BootstrapMethod
	if bm := cf.BootstrapMethods(); bm != nil {
		for _, m := range bm.BootstrapMethods {
			bsms = append(bsms, BootstrapMethod{MethodRef: m.BootstrapMethodRef, Arguments: append([]uint16(nil), m.BootstrapArguments...)})
		}
	}

	return &ClassNode{
		raw:              cf,
		Name:             name,
		SuperName:        super,
		Interfaces:       ifaces,
		AccessFlags:      uint16(cf.AccessFlags),
		Fields:           fields,
		Methods:          methods,
		BootstrapMethods: bsms,
	}, nil
}

// FindMethod finds a method by exact name and descriptor.
func (c *ClassNode) FindMethod(name, desc string) *MethodNode {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// FindField finds a field by exact name and descriptor.
func (c *ClassNode) FindField(name, desc string) *FieldNode {
	for _, f := range c.Fields {
		if f.Name == name && f.Descriptor == desc {
			return f
		}
	}
	return nil
}

func constantHostValue(cp *parser.ConstantPool, index uint16, desc string) (any, error) {
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return nil, fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	switch c := cp.Constants[index-1].(type) {
	case *parser.ConstantInteger:
		return int32(c.Bytes), nil
	case *parser.ConstantFloat:
		return math.Float32frombits(c.Bytes), nil
	case *parser.ConstantLong:
		return int64(c.HighBytes)<<32 | int64(c.LowBytes), nil
	case *parser.ConstantDouble:
		return math.Float64frombits(uint64(c.HighBytes)<<32 | uint64(c.LowBytes)), nil
	case *parser.ConstantString:
		u := cp.LookupUtf8(c.StringIndex)
		if u == nil {
			return nil, fmt.Errorf("classnode: dangling string constant at %d", index)
		}
		return u.String(), nil
	default:
		return nil, fmt.Errorf("classnode: unsupported constant kind for descriptor %s at index %d", desc, index)
	}
}

// --- constant pool resolution, used by ldc/getstatic/invoke*/checkcast/etc. ---

// Utf8 resolves a CONSTANT_Utf8 entry.
func (c *ClassNode) Utf8(index uint16) (string, error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return "", fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	u := cp.LookupUtf8(index)
	if u == nil {
		return "", fmt.Errorf("classnode: constant pool index %d is not Utf8", index)
	}
	return u.String(), nil
}

// ClassRefName resolves a CONSTANT_Class entry to its internal name.
func (c *ClassNode) ClassRefName(index uint16) (string, error) {
	name, err := c.raw.ConstantPool.GetClassName(index)
	if err != nil {
		return "", fmt.Errorf("classnode: resolving class ref %d: %w", index, err)
	}
	return name, nil
}

// MemberRef is a resolved field/method reference: owning class plus the
// member's name and descriptor.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
}

func (c *ClassNode) nameAndType(index uint16) (name, desc string, err error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return "", "", fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	nat, ok := cp.Constants[index-1].(*parser.ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("classnode: constant pool index %d is not NameAndType", index)
	}
	n := cp.LookupUtf8(nat.NameIndex)
	d := cp.LookupUtf8(nat.DescriptorIndex)
	if n == nil || d == nil {
		return "", "", fmt.Errorf("classnode: dangling NameAndType at %d", index)
	}
	return n.String(), d.String(), nil
}

func (c *ClassNode) memberRef(classIndex, natIndex uint16) (MemberRef, error) {
	cname, err := c.raw.ConstantPool.GetClassName(classIndex)
	if err != nil {
		return MemberRef{}, fmt.Errorf("classnode: resolving owner class: %w", err)
	}
	name, desc, err := c.nameAndType(natIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{ClassName: cname, Name: name, Descriptor: desc}, nil
}

// Fieldref resolves a CONSTANT_Fieldref entry.
func (c *ClassNode) Fieldref(index uint16) (MemberRef, error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return MemberRef{}, fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	f, ok := cp.Constants[index-1].(*parser.ConstantFieldref)
	if !ok {
		return MemberRef{}, fmt.Errorf("classnode: constant pool index %d is not Fieldref", index)
	}
	return c.memberRef(f.ClassIndex, f.NameAndTypeIndex)
}

// Methodref resolves a CONSTANT_Methodref entry.
func (c *ClassNode) Methodref(index uint16) (MemberRef, error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return MemberRef{}, fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	m, ok := cp.Constants[index-1].(*parser.ConstantMethodref)
	if !ok {
		return MemberRef{}, fmt.Errorf("classnode: constant pool index %d is not Methodref", index)
	}
	return c.memberRef(m.ClassIndex, m.NameAndTypeIndex)
}

// InterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func (c *ClassNode) InterfaceMethodref(index uint16) (MemberRef, error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return MemberRef{}, fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	m, ok := cp.Constants[index-1].(*parser.ConstantInterfaceMethodref)
	if !ok {
		return MemberRef{}, fmt.Errorf("classnode: constant pool index %d is not InterfaceMethodref", index)
	}
	return c.memberRef(m.ClassIndex, m.NameAndTypeIndex)
}

// MethodHandleRef describes a resolved CONSTANT_MethodHandle entry.
type MethodHandleRef struct {
	ReferenceKind uint8 // REF_getField..REF_invokeInterface, JVMS 5.4.3.5
	Member        MemberRef
	IsField       bool
	IsInterface   bool
}

// MethodHandle resolves a CONSTANT_MethodHandle entry.
func (c *ClassNode) MethodHandle(index uint16) (MethodHandleRef, error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return MethodHandleRef{}, fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	mh, ok := cp.Constants[index-1].(*parser.ConstantMethodHandle)
	if !ok {
		return MethodHandleRef{}, fmt.Errorf("classnode: constant pool index %d is not MethodHandle", index)
	}
	switch ref := cp.Constants[mh.ReferenceIndex-1].(type) {
	case *parser.ConstantFieldref:
		mr, err := c.memberRef(ref.ClassIndex, ref.NameAndTypeIndex)
		if err != nil {
			return MethodHandleRef{}, err
		}
		return MethodHandleRef{ReferenceKind: mh.ReferenceKind, Member: mr, IsField: true}, nil
	case *parser.ConstantMethodref:
		mr, err := c.memberRef(ref.ClassIndex, ref.NameAndTypeIndex)
		if err != nil {
			return MethodHandleRef{}, err
		}
		return MethodHandleRef{ReferenceKind: mh.ReferenceKind, Member: mr}, nil
	case *parser.ConstantInterfaceMethodref:
		mr, err := c.memberRef(ref.ClassIndex, ref.NameAndTypeIndex)
		if err != nil {
			return MethodHandleRef{}, err
		}
		return MethodHandleRef{ReferenceKind: mh.ReferenceKind, Member: mr, IsInterface: true}, nil
	default:
		return MethodHandleRef{}, fmt.Errorf("classnode: unsupported MethodHandle reference at %d", index)
	}
}

// MethodType resolves a CONSTANT_MethodType entry to its descriptor.
func (c *ClassNode) MethodType(index uint16) (string, error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return "", fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	mt, ok := cp.Constants[index-1].(*parser.ConstantMethodType)
	if !ok {
		return "", fmt.Errorf("classnode: constant pool index %d is not MethodType", index)
	}
	u := cp.LookupUtf8(mt.DescriptorIndex)
	if u == nil {
		return "", fmt.Errorf("classnode: dangling MethodType at %d", index)
	}
	return u.String(), nil
}

// InvokeDynamicRef describes a resolved CONSTANT_InvokeDynamic entry.
type InvokeDynamicRef struct {
	BootstrapMethodIndex uint16
	Name                 string
	Descriptor           string
}

// InvokeDynamic resolves a CONSTANT_InvokeDynamic entry.
func (c *ClassNode) InvokeDynamic(index uint16) (InvokeDynamicRef, error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return InvokeDynamicRef{}, fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	id, ok := cp.Constants[index-1].(*parser.ConstantInvokeDynamic)
	if !ok {
		return InvokeDynamicRef{}, fmt.Errorf("classnode: constant pool index %d is not InvokeDynamic", index)
	}
	name, desc, err := c.nameAndType(id.NameAndTypeIndex)
	if err != nil {
		return InvokeDynamicRef{}, err
	}
	return InvokeDynamicRef{BootstrapMethodIndex: id.BootstrapMethodAttrIndex, Name: name, Descriptor: desc}, nil
}

// LdcKind classifies the result of resolving an ldc/ldc_w/ldc2_w operand.
type LdcKind int

const (
	LdcInt LdcKind = iota
	LdcLong
	LdcFloat
	LdcDouble
	LdcString
	LdcClass // Value is a type descriptor, e.g. "I", "[[I", "Ljava/lang/String;"
)

// LdcConstant is the host-side representation of a resolved ldc operand.
type LdcConstant struct {
	Kind  LdcKind
	Int   int32
	Long  int64
	Float float32
	Double float64
	Str   string
}

// Ldc resolves a constant pool entry valid as an ldc/ldc_w/ldc2_w operand.
func (c *ClassNode) Ldc(index uint16) (LdcConstant, error) {
	cp := c.raw.ConstantPool
	if int(index) < 1 || int(index) > len(cp.Constants) {
		return LdcConstant{}, fmt.Errorf("classnode: invalid constant pool index %d", index)
	}
	switch v := cp.Constants[index-1].(type) {
	case *parser.ConstantInteger:
		return LdcConstant{Kind: LdcInt, Int: int32(v.Bytes)}, nil
	case *parser.ConstantFloat:
		return LdcConstant{Kind: LdcFloat, Float: math.Float32frombits(v.Bytes)}, nil
	case *parser.ConstantLong:
		return LdcConstant{Kind: LdcLong, Long: int64(v.HighBytes)<<32 | int64(v.LowBytes)}, nil
	case *parser.ConstantDouble:
		return LdcConstant{Kind: LdcDouble, Double: math.Float64frombits(uint64(v.HighBytes)<<32 | uint64(v.LowBytes))}, nil
	case *parser.ConstantString:
		u := cp.LookupUtf8(v.StringIndex)
		if u == nil {
			return LdcConstant{}, fmt.Errorf("classnode: dangling string constant at %d", index)
		}
		return LdcConstant{Kind: LdcString, Str: u.String()}, nil
	case *parser.ConstantClass:
		u := cp.LookupUtf8(v.NameIndex)
		if u == nil {
			return LdcConstant{}, fmt.Errorf("classnode: dangling class constant at %d", index)
		}
		name := u.String()
		// Object/array descriptors are plain internal names; wrap bare
		// object names as a descriptor so callers have one shape to parse.
		if !strings.HasPrefix(name, "[") && len(name) > 0 {
			name = "L" + name + ";"
		}
		return LdcConstant{Kind: LdcClass, Str: name}, nil
	default:
		return LdcConstant{}, fmt.Errorf("classnode: unsupported ldc constant kind at index %d", index)
	}
}
