package memio

import "github.com/mutalibmohammed/SimEng/register"

type pendingAccess struct {
	requestID  uint64
	target     Target
	data       register.Value // write payload; unset for reads
	isWrite    bool
	cyclesLeft uint64
}

// FixedLatencyInterface resolves every request after a constant number of
// Tick calls, with no cache-line splitting. It models a flat memory with a
// uniform access latency, useful when a cache model is not needed but
// timing still matters.
type FixedLatencyInterface struct {
	mem     backingMemory
	latency uint64

	pending   []*pendingAccess
	completed []CompletedRead
}

// NewFixedLatencyInterface wraps mem with a constant per-access latency in
// cycles (minimum 1).
func NewFixedLatencyInterface(mem backingMemory, latency uint64) *FixedLatencyInterface {
	if latency == 0 {
		latency = 1
	}
	return &FixedLatencyInterface{mem: mem, latency: latency}
}

// RequestRead implements Interface.
func (f *FixedLatencyInterface) RequestRead(target Target, requestID uint64) {
	f.pending = append(f.pending, &pendingAccess{
		requestID:  requestID,
		target:     target,
		cyclesLeft: f.latency,
	})
}

// RequestWrite implements Interface.
func (f *FixedLatencyInterface) RequestWrite(target Target, data register.Value) {
	f.pending = append(f.pending, &pendingAccess{
		target:     target,
		data:       data,
		isWrite:    true,
		cyclesLeft: f.latency,
	})
}

// HandleResponse implements Interface; FixedLatencyInterface has no lower
// model of its own.
func (f *FixedLatencyInterface) HandleResponse(read bool, id uint64, data []byte) {}

// GetCompletedReads implements Interface.
func (f *FixedLatencyInterface) GetCompletedReads() []CompletedRead { return f.completed }

// ClearCompletedReads implements Interface.
func (f *FixedLatencyInterface) ClearCompletedReads() { f.completed = nil }

// HasPendingRequests implements Interface.
func (f *FixedLatencyInterface) HasPendingRequests() bool { return len(f.pending) > 0 }

// Tick implements Interface: every pending access loses one cycle; any
// that reach zero are serviced against the backing memory.
func (f *FixedLatencyInterface) Tick() {
	remaining := f.pending[:0]
	for _, p := range f.pending {
		p.cyclesLeft--
		if p.cyclesLeft > 0 {
			remaining = append(remaining, p)
			continue
		}
		if p.isWrite {
			f.mem.Write(p.target.Address, p.data.Bytes()[:p.target.Size])
			continue
		}
		data := f.mem.Read(p.target.Address, p.target.Size)
		f.completed = append(f.completed, CompletedRead{
			RequestID: p.requestID,
			Value:     register.NewValue(data, p.target.Size),
		})
	}
	f.pending = remaining
}
