package vm

// toJavaX/toVMX convert between host-side Go slices and VM array
// Objects, one pair per primitive tag plus references. Every VM
// element, byte, char, short, boolean included, rides on a plain
// int32 in a Value (see value.go), so each toJavaX here is just an
// element-wise narrowing copy, and each toVMX an element-wise widening
// one into a freshly allocated array of the matching element class.

func (h *Helper) ToJavaInts(array *Object) []int32 {
	length := array.Length()
	result := make([]int32, length)
	for i := range result {
		result[i] = array.GetElement(i).Int()
	}
	return result
}

func (h *Helper) ToVMInts(array []int32, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(h.vm.BootLoader, "I")
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, IntValue(array[i]))
	}
	return arr, nil
}

func (h *Helper) ToJavaLongs(array *Object) []int64 {
	length := array.Length()
	result := make([]int64, length)
	for i := range result {
		result[i] = array.GetElement(i).Long()
	}
	return result
}

func (h *Helper) ToVMLongs(array []int64, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(h.vm.BootLoader, "J")
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, LongValue(array[i]))
	}
	return arr, nil
}

func (h *Helper) ToJavaFloats(array *Object) []float32 {
	length := array.Length()
	result := make([]float32, length)
	for i := range result {
		result[i] = array.GetElement(i).Float()
	}
	return result
}

func (h *Helper) ToVMFloats(array []float32, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(h.vm.BootLoader, "F")
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, FloatValue(array[i]))
	}
	return arr, nil
}

func (h *Helper) ToJavaDoubles(array *Object) []float64 {
	length := array.Length()
	result := make([]float64, length)
	for i := range result {
		result[i] = array.GetElement(i).Double()
	}
	return result
}

func (h *Helper) ToVMDoubles(array []float64, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(h.vm.BootLoader, "D")
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, DoubleValue(array[i]))
	}
	return arr, nil
}

func (h *Helper) ToJavaChars(array *Object) []uint16 {
	length := array.Length()
	result := make([]uint16, length)
	for i := range result {
		result[i] = uint16(array.GetElement(i).Int())
	}
	return result
}

func (h *Helper) ToVMChars(array []uint16, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(h.vm.BootLoader, "C")
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, IntValue(int32(array[i])))
	}
	return arr, nil
}

func (h *Helper) ToJavaShorts(array *Object) []int16 {
	length := array.Length()
	result := make([]int16, length)
	for i := range result {
		result[i] = int16(array.GetElement(i).Int())
	}
	return result
}

func (h *Helper) ToVMShorts(array []int16, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(h.vm.BootLoader, "S")
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, IntValue(int32(array[i])))
	}
	return arr, nil
}

func (h *Helper) ToJavaBytes(array *Object) []int8 {
	length := array.Length()
	result := make([]int8, length)
	for i := range result {
		result[i] = int8(array.GetElement(i).Int())
	}
	return result
}

func (h *Helper) ToVMBytes(array []int8, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(h.vm.BootLoader, "B")
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, IntValue(int32(array[i])))
	}
	return arr, nil
}

func (h *Helper) ToJavaBooleans(array *Object) []bool {
	length := array.Length()
	result := make([]bool, length)
	for i := range result {
		result[i] = array.GetElement(i).Int() != 0
	}
	return result
}

func (h *Helper) ToVMBooleans(array []bool, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(h.vm.BootLoader, "Z")
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, BoolValue(array[i]))
	}
	return arr, nil
}

// ToJavaValues copies a reference array's elements out as plain Values,
// the same shape toJavaX uses for every primitive tag.
func (h *Helper) ToJavaValues(array *Object) []Value {
	length := array.Length()
	result := make([]Value, length)
	for i := range result {
		result[i] = array.GetElement(i)
	}
	return result
}

// ToVMValues allocates a reference array of componentDescriptor's
// element type (e.g. "Ljava/lang/String;") and copies array[start:end]
// into it.
func (h *Helper) ToVMValues(loader *ClassLoaderData, componentDescriptor string, array []Value, start, end int) (*Object, error) {
	class, err := h.vm.findArrayClassForElement(loader, componentDescriptor)
	if err != nil {
		return nil, err
	}
	arr, err := h.vm.mm.NewArray(class, end-start)
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		arr.SetElement(i-start, array[i])
	}
	return arr, nil
}
