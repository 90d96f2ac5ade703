package vm

// maxLocals bounds the slot index a frame can grow to.
const maxLocals = 1 << 16

// Frame represents a call frame
type Frame struct {
	returnAddr int
	locals     []int32
	set        []bool
}

func (f *Frame) reset(returnAddr int) {
	f.returnAddr = returnAddr
	f.locals = f.locals[:0]
	f.set = f.set[:0]
}

// ReturnAddress is the address execution resumes at after RET.
func (f *Frame) ReturnAddress() int {
	return f.returnAddr
}

// Load returns the value in slot and whether it was ever written.
func (f *Frame) Load(slot int) (int32, bool) {
	if slot < 0 || slot >= len(f.locals) || !f.set[slot] {
		return 0, false
	}
	return f.locals[slot], true
}

// Store writes slot, growing the frame when slot is past its end.
func (f *Frame) Store(slot int, value int32) error {
	if slot < 0 || slot >= maxLocals {
		return ErrInvalidSlot
	}
	for len(f.locals) <= slot {
		f.locals = append(f.locals, 0)
		f.set = append(f.set, false)
	}
	f.locals[slot] = value
	f.set[slot] = true
	return nil
}

// NumLocals is the current length of the frame's locals.
func (f *Frame) NumLocals() int {
	return len(f.locals)
}
