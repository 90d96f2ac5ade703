package vm

// Reset returns the machine to Ready with the loaded program, reusing its
// allocations. Globals are cleared.
func (vm *VM) Reset() {
	vm.pc = 0
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	clear(vm.globals)

	vm.state = Ready
	vm.fault = nil
	vm.steps = 0
}
