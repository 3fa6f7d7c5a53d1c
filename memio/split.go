package memio

import "github.com/mutalibmohammed/SimEng/register"

// backingCache is the subset of cache.Cache that SplitInterface drives: a
// set-associative store that reports hit/miss and a latency for each
// access. SplitInterface calls it when a request is issued and counts the
// reported latency down itself in Tick; the cache is never ticked.
type backingCache interface {
	Read(addr uint64, size int) (data []byte, hit bool, latency int)
	Write(addr uint64, data []byte) (hit bool, latency int)
}

// joinRecord tracks one half of a request that was split across a cache
// line boundary. It is stored under the key of the half it describes, and
// carries everything the other half's arrival needs to complete the merge.
type joinRecord struct {
	requestID   uint64
	address     uint64 // address this half covers, used to order the halves on merge
	size        int
	partnerKey  uint64
	partnerData []byte
	ready       bool
	cyclesLeft  int
}

// SplitInterface is a cache-line-aware memory interface: any request whose
// byte range straddles a cache-line boundary is split into two child
// requests, each serviced independently and joined back together when both
// complete. The merge orders the halves by address rather than by the
// order their child keys were assigned or their timers expired, so arrival
// order of the two halves never affects the merged result.
type SplitInterface struct {
	cache          backingCache
	cacheLineWidth uint64
	missLatency    int

	nextChildKey uint64
	joins        map[uint64]*joinRecord
	pendingCount int

	completed []CompletedRead
}

// NewSplitInterface builds a SplitInterface backed by cache, splitting
// requests at cacheLineWidth-byte boundaries. missLatency is used for
// accesses the cache itself does not time (writes, in this model, are
// fire-and-forget once issued to the cache).
func NewSplitInterface(cache backingCache, cacheLineWidth uint64, missLatency int) *SplitInterface {
	if cacheLineWidth == 0 {
		cacheLineWidth = 64
	}
	return &SplitInterface{
		cache:          cache,
		cacheLineWidth: cacheLineWidth,
		missLatency:    missLatency,
		joins:          make(map[uint64]*joinRecord),
	}
}

func (s *SplitInterface) split(target Target) (first, second Target, straddles bool) {
	lineOffset := target.Address % s.cacheLineWidth
	if lineOffset+uint64(target.Size) <= s.cacheLineWidth {
		return target, Target{}, false
	}
	firstSize := int(s.cacheLineWidth - lineOffset)
	secondSize := target.Size - firstSize
	first = Target{Address: target.Address, Size: firstSize}
	second = Target{Address: target.Address + uint64(firstSize), Size: secondSize}
	return first, second, true
}

// RequestRead implements Interface.
func (s *SplitInterface) RequestRead(target Target, requestID uint64) {
	first, second, straddles := s.split(target)
	if !straddles {
		s.issueRead(target, requestID, nil)
		return
	}

	firstKey := s.nextChildKey
	s.nextChildKey++
	secondKey := s.nextChildKey
	s.nextChildKey++

	s.joins[firstKey] = &joinRecord{requestID: requestID, address: first.Address, size: first.Size, partnerKey: secondKey}
	s.joins[secondKey] = &joinRecord{requestID: requestID, address: second.Address, size: second.Size, partnerKey: firstKey}
	s.pendingCount += 2

	s.issueRead(first, requestID, s.joins[firstKey])
	s.issueRead(second, requestID, s.joins[secondKey])
}

func (s *SplitInterface) issueRead(target Target, requestID uint64, join *joinRecord) {
	if target.Size <= 0 {
		s.completed = append(s.completed, CompletedRead{RequestID: requestID, Value: register.Invalid()})
		return
	}
	data, hit, latency := s.cache.Read(target.Address, target.Size)
	if !hit {
		if latency == 0 {
			latency = s.missLatency
		}
	}
	if join != nil {
		join.cyclesLeft = latency
		join.partnerData = data
		return
	}
	if latency <= 0 {
		s.completed = append(s.completed, CompletedRead{RequestID: requestID, Value: register.NewValue(data, target.Size)})
		return
	}
	s.pendingCount++
	key := s.nextChildKey
	s.nextChildKey++
	s.joins[key] = &joinRecord{requestID: requestID, address: target.Address, size: target.Size, cyclesLeft: latency, partnerData: data, partnerKey: key}
}

// RequestWrite implements Interface. A straddling write is issued to the
// cache as two halves with no join record: both are written immediately,
// nothing is left pending, and no completion is produced, since a write has
// no merged payload a waiting uop needs delivered.
func (s *SplitInterface) RequestWrite(target Target, data register.Value) {
	first, second, straddles := s.split(target)
	if !straddles {
		s.cache.Write(target.Address, data.Bytes()[:target.Size])
		return
	}
	offset := 0
	for _, half := range []Target{first, second} {
		s.cache.Write(half.Address, data.Bytes()[offset:offset+half.Size])
		offset += half.Size
	}
}

// HandleResponse implements Interface. SplitInterface resolves everything
// against its own backing cache inside Tick, so a lower-level timing model
// calling HandleResponse is only relevant when SplitInterface itself sits
// atop another memio.Interface rather than a cache.Cache; this
// implementation treats it as an immediate single-shot completion under id.
func (s *SplitInterface) HandleResponse(read bool, id uint64, data []byte) {
	if !read {
		return
	}
	s.completed = append(s.completed, CompletedRead{RequestID: id, Value: register.NewValue(data, len(data))})
}

// GetCompletedReads implements Interface.
func (s *SplitInterface) GetCompletedReads() []CompletedRead { return s.completed }

// ClearCompletedReads implements Interface.
func (s *SplitInterface) ClearCompletedReads() { s.completed = nil }

// HasPendingRequests implements Interface.
func (s *SplitInterface) HasPendingRequests() bool { return s.pendingCount > 0 }

// Tick implements Interface: every outstanding join record loses one
// cycle; when a record reaches zero it either completes alone (unsplit
// miss) or, if its partner has also reached zero, the two halves are
// merged by ascending address and published as one completed read.
func (s *SplitInterface) Tick() {
	for key, j := range s.joins {
		if j.ready {
			continue
		}
		if j.cyclesLeft > 0 {
			j.cyclesLeft--
		}
		if j.cyclesLeft > 0 {
			continue
		}
		j.ready = true

		if j.partnerKey == key {
			// Unsplit access tracked as its own join record.
			s.completed = append(s.completed, CompletedRead{RequestID: j.requestID, Value: register.NewValue(j.partnerData, j.size)})
			delete(s.joins, key)
			s.pendingCount--
			continue
		}
		partner, ok := s.joins[j.partnerKey]
		if !ok || !partner.ready {
			continue
		}
		s.mergeAndPublish(j, partner)
	}
}

// mergeAndPublish merges two completed join halves, keyed by address so
// the result does not depend on which half's timer expired first.
func (s *SplitInterface) mergeAndPublish(a, b *joinRecord) {
	lower, upper := a, b
	if b.address < a.address {
		lower, upper = b, a
	}
	merged := make([]byte, 0, lower.size+upper.size)
	merged = append(merged, lower.partnerData...)
	merged = append(merged, upper.partnerData...)

	s.completed = append(s.completed, CompletedRead{RequestID: a.requestID, Value: register.NewValue(merged, len(merged))})

	for key, j := range s.joins {
		if j == a || j == b {
			delete(s.joins, key)
			s.pendingCount--
		}
	}
}
