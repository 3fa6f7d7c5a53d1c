package memio

import "github.com/mutalibmohammed/SimEng/register"

// FlatInterface resolves every request in the same cycle it was issued,
// with no splitting and no backing cache. It exists for functional-only
// testing of pipeline stages that need an Interface but should not have
// their results perturbed by memory timing.
type FlatInterface struct {
	mem       backingMemory
	completed []CompletedRead
}

// NewFlatInterface wraps mem as a zero-latency Interface.
func NewFlatInterface(mem backingMemory) *FlatInterface {
	return &FlatInterface{mem: mem}
}

// RequestRead implements Interface.
func (f *FlatInterface) RequestRead(target Target, requestID uint64) {
	data := f.mem.Read(target.Address, target.Size)
	f.completed = append(f.completed, CompletedRead{
		RequestID: requestID,
		Value:     register.NewValue(data, target.Size),
	})
}

// RequestWrite implements Interface.
func (f *FlatInterface) RequestWrite(target Target, data register.Value) {
	f.mem.Write(target.Address, data.Bytes()[:target.Size])
}

// HandleResponse implements Interface; FlatInterface has no lower model so
// this is unused but present to satisfy the contract.
func (f *FlatInterface) HandleResponse(read bool, id uint64, data []byte) {}

// GetCompletedReads implements Interface.
func (f *FlatInterface) GetCompletedReads() []CompletedRead { return f.completed }

// ClearCompletedReads implements Interface.
func (f *FlatInterface) ClearCompletedReads() { f.completed = nil }

// HasPendingRequests implements Interface; Flat never has anything in
// flight across a cycle boundary.
func (f *FlatInterface) HasPendingRequests() bool { return false }

// Tick implements Interface; there is no internal timing to advance.
func (f *FlatInterface) Tick() {}
