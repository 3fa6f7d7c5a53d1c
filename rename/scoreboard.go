package rename

import "github.com/mutalibmohammed/SimEng/register"

// Scoreboard tracks, per physical register, whether a value has been
// written since it was last allocated by rename. A freshly allocated
// register starts not-ready; dispatch clears the bit for every destination
// a uop renames into, and writeback/forwarding sets it once the value is
// produced.
type Scoreboard struct {
	ready map[register.Type][]uint64
}

const wordBits = 64

// NewScoreboard builds a Scoreboard with counts[type] physical registers
// per type, all initially marked ready (an unallocated register reads as
// already valid, matching architectural registers at boot).
func NewScoreboard(counts map[register.Type]int) *Scoreboard {
	s := &Scoreboard{ready: make(map[register.Type][]uint64)}
	for t, n := range counts {
		words := (n + wordBits - 1) / wordBits
		bits := make([]uint64, words)
		for i := range bits {
			bits[i] = ^uint64(0)
		}
		s.ready[t] = bits
	}
	return s
}

// IsReady reports whether physical register (t, p) currently holds a
// produced value.
func (s *Scoreboard) IsReady(t register.Type, p int) bool {
	word, bit := p/wordBits, uint(p%wordBits)
	return s.ready[t][word]&(1<<bit) != 0
}

// Clear marks (t, p) not-ready. Called by dispatch when a uop's
// destination is allocated.
func (s *Scoreboard) Clear(t register.Type, p int) {
	word, bit := p/wordBits, uint(p%wordBits)
	s.ready[t][word] &^= 1 << bit
}

// Set marks (t, p) ready. Called once a value has been produced for it.
func (s *Scoreboard) Set(t register.Type, p int) {
	word, bit := p/wordBits, uint(p%wordBits)
	s.ready[t][word] |= 1 << bit
}
