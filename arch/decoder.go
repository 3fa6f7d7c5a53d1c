package arch

import (
	"encoding/binary"
	"fmt"

	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/insts"
)

// Decoder implements instr.Predecoder over a 32-bit fixed-width
// instruction stream, wrapping insts.Decoder and resolving each decoded
// instruction's issue ports from the core's configured port layout.
type Decoder struct {
	decoder *insts.Decoder
	ports   *portTable
}

// NewDecoder builds a Decoder whose uops report SupportedPorts per cfg's
// port/instruction-group configuration.
func NewDecoder(cfg *config.Settings) *Decoder {
	return &Decoder{decoder: insts.NewDecoder(), ports: newPortTable(cfg)}
}

// InstructionSize implements instr.Predecoder: every instruction in this
// ISA is one 4-byte word.
func (d *Decoder) InstructionSize() int { return 4 }

// Predecode implements instr.Predecoder.
func (d *Decoder) Predecode(pc uint64, bytes []byte, instructionID uint64) (instr.MacroOp, error) {
	if len(bytes) != 4 {
		return instr.MacroOp{}, fmt.Errorf("arch: predecode needs 4 bytes, got %d", len(bytes))
	}

	word := binary.LittleEndian.Uint32(bytes)
	inst := d.decoder.Decode(word)
	u := buildUop(pc, inst, instructionID, pc+4, d.ports)

	return instr.MacroOp{
		Address: pc,
		Length:  4,
		Uops:    []instr.Uop{u},
	}, nil
}
