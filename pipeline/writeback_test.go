package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mutalibmohammed/SimEng/arch"
	"github.com/mutalibmohammed/SimEng/config"
	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/pipeline"
	"github.com/mutalibmohammed/SimEng/register"
)

type fakeForwarder struct {
	registers []register.Register
	values    []register.Value
	calls     int
}

func (f *fakeForwarder) ForwardOperands(registers []register.Register, values []register.Value) {
	f.registers = registers
	f.values = values
	f.calls++
}

func decodeUop(word uint32) instr.Uop {
	d := arch.NewDecoder(config.Default())
	b := make([]byte, 4)
	b[0] = byte(word)
	b[1] = byte(word >> 8)
	b[2] = byte(word >> 16)
	b[3] = byte(word >> 24)
	mop, err := d.Predecode(0x1000, b, 1)
	Expect(err).NotTo(HaveOccurred())
	return mop.Uops[0]
}

var _ = Describe("WritebackUnit", func() {
	It("forwards a finished uop's results and marks it commit-eligible", func() {
		u := decodeUop(0x9100A820) // ADD X0, X1, #42
		u.SupplyOperand(0, register.FromUint64(1))
		u.Execute()

		in := pipeline.NewBuffer[instr.Uop](1)
		in.HeadSlots()[0] = u
		fwd := &fakeForwarder{}
		w := pipeline.NewWritebackUnit(in, fwd)

		w.Tick()

		Expect(fwd.calls).To(Equal(1))
		Expect(fwd.values[0].Uint64()).To(Equal(uint64(43)))
		Expect(u.CanCommit()).To(BeTrue())
	})

	It("skips a flushed uop without forwarding or marking it commit-eligible", func() {
		u := decodeUop(0x9100A820)
		u.SupplyOperand(0, register.FromUint64(1))
		u.Execute()
		u.SetFlushed()

		in := pipeline.NewBuffer[instr.Uop](1)
		in.HeadSlots()[0] = u
		fwd := &fakeForwarder{}
		w := pipeline.NewWritebackUnit(in, fwd)

		w.Tick()

		Expect(fwd.calls).To(Equal(0))
		Expect(u.CanCommit()).To(BeFalse())
	})

	It("tolerates a nil head slot", func() {
		in := pipeline.NewBuffer[instr.Uop](1)
		fwd := &fakeForwarder{}
		w := pipeline.NewWritebackUnit(in, fwd)
		Expect(func() { w.Tick() }).NotTo(Panic())
	})
})
