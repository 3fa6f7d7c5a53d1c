// Package arch adapts the corpus's ARM64-flavored insts/emu packages into
// a concrete instr.Uop, instr.Predecoder, and instr.ExceptionHandler: the
// one instruction set this repository ships to exercise the out-of-order
// core end-to-end.
package arch

// Memory is a flat, byte-addressable guest address space. It backs both
// the pipeline's memio.Interface implementations (via the Read/Write
// methods matching their backing-store contract) and the exception
// handler's direct syscall memory access, so a store retired through the
// pipeline and a read performed by a syscall always see the same bytes.
type Memory struct {
	bytes map[uint64]byte
}

// NewMemory builds an empty guest address space.
func NewMemory() *Memory {
	return &Memory{bytes: make(map[uint64]byte)}
}

// Read8 reads one byte, returning 0 for any address never written.
func (m *Memory) Read8(addr uint64) uint8 {
	return m.bytes[addr]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, v uint8) {
	m.bytes[addr] = v
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint64) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint64, v uint16) {
	m.Write8(addr, uint8(v))
	m.Write8(addr+1, uint8(v>>8))
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint64) uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v |= uint32(m.Read8(addr+uint64(i))) << (8 * i)
	}
	return v
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint64, v uint32) {
	for i := 0; i < 4; i++ {
		m.Write8(addr+uint64(i), uint8(v>>(8*i)))
	}
}

// Read64 reads a little-endian doubleword.
func (m *Memory) Read64(addr uint64) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(m.Read8(addr+uint64(i))) << (8 * i)
	}
	return v
}

// Write64 writes a little-endian doubleword.
func (m *Memory) Write64(addr uint64, v uint64) {
	for i := 0; i < 8; i++ {
		m.Write8(addr+uint64(i), uint8(v>>(8*i)))
	}
}

// Read implements the backing-store contract memio.FlatInterface,
// memio.FixedLatencyInterface, and the exception handler's syscall memory
// access all share.
func (m *Memory) Read(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = m.Read8(addr + uint64(i))
	}
	return data
}

// Write implements the same backing-store contract.
func (m *Memory) Write(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}

// LoadImage copies data into the guest address space starting at base,
// used to place an ELF segment's contents before simulation begins.
func (m *Memory) LoadImage(base uint64, data []byte) {
	m.Write(base, data)
}
