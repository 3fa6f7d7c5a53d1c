package instr_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mutalibmohammed/SimEng/instr"
	"github.com/mutalibmohammed/SimEng/register"
)

// stubUop is the minimal instr.Uop a test can construct without pulling in a
// concrete ISA: every method beyond Base's own bookkeeping is a no-op.
type stubUop struct {
	instr.Base
}

func (s *stubUop) OpClass() instr.OpClass               { return instr.ClassALU }
func (s *stubUop) SupportedPorts() []instr.Port         { return nil }
func (s *stubUop) GenerateAddresses() []instr.MemoryTarget { return nil }
func (s *stubUop) Execute()                             {}
func (s *stubUop) GetResults() []register.Value         { return nil }
func (s *stubUop) IsLoad() bool                         { return false }
func (s *stubUop) IsStore() bool                        { return false }
func (s *stubUop) IsBranch() bool                       { return false }

func newStub(instructionID, sequenceID uint64) *stubUop {
	return &stubUop{Base: instr.NewBase(instructionID, sequenceID, 0, nil, nil)}
}

var _ = Describe("Base", func() {
	var gp0, gp1 register.Register

	BeforeEach(func() {
		gp0 = register.Register{Type: register.General, Tag: 0}
		gp1 = register.Register{Type: register.General, Tag: 1}
	})

	It("tracks per-operand readiness independently", func() {
		b := instr.NewBase(1, 0, 0x1000, []register.Register{gp0, gp1}, nil)
		Expect(b.CanExecute()).To(BeFalse())

		b.SupplyOperand(0, register.FromUint64(1))
		Expect(b.IsOperandReady(0)).To(BeTrue())
		Expect(b.IsOperandReady(1)).To(BeFalse())
		Expect(b.CanExecute()).To(BeFalse())

		b.SupplyOperand(1, register.FromUint64(2))
		Expect(b.CanExecute()).To(BeTrue())
	})

	It("panics if Rename is called a second time", func() {
		b := instr.NewBase(1, 0, 0x1000, []register.Register{gp0}, []register.Register{gp1})
		b.Rename([]register.Register{{Type: register.General, Tag: 4}}, []register.Register{{Type: register.General, Tag: 5}})
		Expect(func() {
			b.Rename([]register.Register{{Type: register.General, Tag: 6}}, nil)
		}).To(Panic())
	})

	It("latches the first exception and ignores later ones", func() {
		b := instr.NewBase(1, 0, 0, nil, nil)
		b.SetException(instr.ExceptionPageFault)
		b.SetException(instr.ExceptionMisaligned)
		Expect(b.Exception()).To(Equal(instr.ExceptionPageFault))
	})

	It("records resolved branch outcome and compares it against the prediction", func() {
		b := instr.NewBase(1, 0, 0, nil, nil)
		b.SetBranchPrediction(instr.Prediction{Taken: true, Target: 0x100, TargetKnown: true})
		b.ResolveBranch(true, 0x200)

		Expect(b.ResolvedTaken()).To(BeTrue())
		Expect(b.BranchTarget()).To(Equal(uint64(0x200)))
		Expect(b.WasBranchMispredicted()).To(BeTrue())
	})

	It("reports no misprediction when taken/target both match the prediction", func() {
		b := instr.NewBase(1, 0, 0, nil, nil)
		b.SetBranchPrediction(instr.Prediction{Taken: true, Target: 0x200, TargetKnown: true})
		b.ResolveBranch(true, 0x200)
		Expect(b.WasBranchMispredicted()).To(BeFalse())
	})

	It("sizes memory data delivery to the targets installed", func() {
		b := instr.NewBase(1, 0, 0, nil, nil)
		b.SetMemoryTargets([]instr.MemoryTarget{{Address: 0x1000, Size: 8}})
		b.SupplyMemoryData(0, register.FromUint64(42))
		Expect(b.MemoryData(0).Uint64()).To(Equal(uint64(42)))
	})

	It("defaults CheckEarlyBranchMisprediction to cannot-tell", func() {
		b := instr.NewBase(1, 0, 0, nil, nil)
		_, _, ok := b.CheckEarlyBranchMisprediction()
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Less", func() {
	It("orders by instructionID first", func() {
		a := newStub(1, 5)
		b := newStub(2, 0)
		Expect(instr.Less(a, b)).To(BeTrue())
		Expect(instr.Less(b, a)).To(BeFalse())
	})

	It("breaks ties on instructionID by sequenceID", func() {
		a := newStub(1, 0)
		b := newStub(1, 1)
		Expect(instr.Less(a, b)).To(BeTrue())
	})
})
