// Package register defines the architectural/physical register identity and
// value types shared by every component of the out-of-order core.
package register

import "fmt"

// Type selects which physical register file a Register belongs to.
type Type uint8

const (
	// General selects the general-purpose integer file.
	General Type = iota
	// Vector selects the SIMD/vector file.
	Vector
	// Predicate selects a predicate/flags file.
	Predicate
	// System selects system/control registers.
	System
)

func (t Type) String() string {
	switch t {
	case General:
		return "general"
	case Vector:
		return "vector"
	case Predicate:
		return "predicate"
	case System:
		return "system"
	default:
		return "unknown"
	}
}

// ZeroTag is the Tag value reserved for a hard-wired zero register. Such a
// register is never renamed and always reads as zero.
const ZeroTag = -1

// Register identifies a single architectural or physical register: a file
// selector plus an index into that file. Rename replaces Tag with a physical
// index while leaving Type unchanged.
type Register struct {
	Type Type
	Tag  int
}

// IsZero reports whether r refers to the hard-wired zero register.
func (r Register) IsZero() bool {
	return r.Tag == ZeroTag
}

func (r Register) String() string {
	if r.IsZero() {
		return fmt.Sprintf("%s.zero", r.Type)
	}
	return fmt.Sprintf("%s%d", r.Type, r.Tag)
}

// Forwarder is the operand-forwarding capability a scheduler exposes: write
// a value to the physical file and wake anything waiting on it. An
// ExceptionHandler that wants to deliver a result outside the normal
// execute/writeback path (a syscall return value, supplied only once the
// exception itself has been handled) binds to one of these instead of
// reaching into the register file directly.
type Forwarder interface {
	ForwardOperands(registers []Register, values []Value)
}

// maxValueWidth is the widest value a Register file in this core can hold
// (enough for one 256-bit vector register).
const maxValueWidth = 32

// Value is a sized byte blob carried between pipeline stages: operand
// supply, execution results, and memory read/write payloads all use it.
// A Value with Width 0 is invalid and denotes a faulted read.
type Value struct {
	bytes [maxValueWidth]byte
	width int
}

// Invalid returns a zero-width Value, used to signal a faulted memory access.
func Invalid() Value {
	return Value{}
}

// NewValue builds a Value from the low width bytes of data (little-endian).
// It panics if width exceeds the maximum supported register width.
func NewValue(data []byte, width int) Value {
	if width > maxValueWidth {
		panic(fmt.Sprintf("register: value width %d exceeds maximum %d", width, maxValueWidth))
	}
	v := Value{width: width}
	copy(v.bytes[:width], data)
	return v
}

// FromUint64 builds an 8-byte Value from an unsigned integer.
func FromUint64(x uint64) Value {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
	return NewValue(b[:], 8)
}

// Width returns the number of meaningful bytes in v.
func (v Value) Width() int {
	return v.width
}

// Valid reports whether v carries real data.
func (v Value) Valid() bool {
	return v.width > 0
}

// Bytes returns the meaningful bytes of v. The returned slice aliases v's
// internal storage and must not be retained across mutation.
func (v Value) Bytes() []byte {
	return v.bytes[:v.width]
}

// Uint64 interprets v as a little-endian unsigned integer, zero-extending
// if v is narrower than 8 bytes.
func (v Value) Uint64() uint64 {
	var x uint64
	for i := 0; i < v.width && i < 8; i++ {
		x |= uint64(v.bytes[i]) << (8 * i)
	}
	return x
}

// Int64 interprets v as a little-endian two's-complement integer,
// sign-extending from its declared width.
func (v Value) Int64() int64 {
	x := v.Uint64()
	if v.width >= 8 {
		return int64(x)
	}
	signBit := uint64(1) << (uint(v.width)*8 - 1)
	if x&signBit != 0 {
		x |= ^uint64(0) << (uint(v.width) * 8)
	}
	return int64(x)
}

// ZeroExtend returns a copy of v widened to width bytes with high bytes set
// to zero. It panics if width is smaller than v's current width.
func (v Value) ZeroExtend(width int) Value {
	if width < v.width {
		panic("register: ZeroExtend to smaller width")
	}
	out := Value{width: width}
	copy(out.bytes[:v.width], v.bytes[:v.width])
	return out
}

// SignExtend returns a copy of v widened to width bytes, replicating the
// sign bit of v's current width into the new high bytes.
func (v Value) SignExtend(width int) Value {
	if width < v.width {
		panic("register: SignExtend to smaller width")
	}
	out := Value{width: width}
	copy(out.bytes[:v.width], v.bytes[:v.width])
	if v.width > 0 {
		signBit := v.bytes[v.width-1] & 0x80
		if signBit != 0 {
			for i := v.width; i < width; i++ {
				out.bytes[i] = 0xff
			}
		}
	}
	return out
}
