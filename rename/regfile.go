package rename

import "github.com/mutalibmohammed/SimEng/register"

// RegisterFileSet is the physical register storage backing one or more
// register types. Each type gets its own flat array of physical registers,
// sized by the counts passed to NewRegisterFileSet (which should match the
// counts given to NewRAT and NewScoreboard).
type RegisterFileSet struct {
	files map[register.Type][]register.Value
}

// NewRegisterFileSet allocates a zeroed physical register file for each
// type in counts.
func NewRegisterFileSet(counts map[register.Type]int) *RegisterFileSet {
	f := &RegisterFileSet{files: make(map[register.Type][]register.Value)}
	for t, n := range counts {
		f.files[t] = make([]register.Value, n)
	}
	return f
}

// Read returns the value currently stored in physical register (t, p).
func (f *RegisterFileSet) Read(t register.Type, p int) register.Value {
	return f.files[t][p]
}

// Write stores v in physical register (t, p).
func (f *RegisterFileSet) Write(t register.Type, p int, v register.Value) {
	f.files[t][p] = v
}
