package memio_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mutalibmohammed/SimEng/memio"
	"github.com/mutalibmohammed/SimEng/register"
)

// fakeCache is a minimal backingCache stub: bytes come straight from a map
// keyed by address, and hit/latency behavior is configured per-address so
// tests can force one half of a split request to outrun the other.
type fakeCache struct {
	bytes   map[uint64]byte
	latency map[uint64]int // per-address override; default is a hit (latency 0)
	writes  []struct {
		addr uint64
		data []byte
	}
}

func newFakeCache() *fakeCache {
	return &fakeCache{bytes: make(map[uint64]byte), latency: make(map[uint64]int)}
}

func (c *fakeCache) Read(addr uint64, size int) ([]byte, bool, int) {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = c.bytes[addr+uint64(i)]
	}
	lat, ok := c.latency[addr]
	if !ok {
		return data, true, 0
	}
	return data, lat == 0, lat
}

func (c *fakeCache) Write(addr uint64, data []byte) (bool, int) {
	c.writes = append(c.writes, struct {
		addr uint64
		data []byte
	}{addr, data})
	for i, b := range data {
		c.bytes[addr+uint64(i)] = b
	}
	return true, 0
}

var _ = Describe("SplitInterface", func() {
	var (
		cache *fakeCache
		s     *memio.SplitInterface
	)

	BeforeEach(func() {
		cache = newFakeCache()
		s = memio.NewSplitInterface(cache, 64, 140)
	})

	It("completes a non-straddling hit immediately with no pending requests", func() {
		cache.bytes[0x1000] = 0xAB
		for i := 1; i < 8; i++ {
			cache.bytes[0x1000+uint64(i)] = 0
		}
		s.RequestRead(memio.Target{Address: 0x1000, Size: 8}, 1)

		Expect(s.HasPendingRequests()).To(BeFalse())
		reads := s.GetCompletedReads()
		Expect(reads).To(HaveLen(1))
		Expect(reads[0].Value.Uint64()).To(Equal(uint64(0xAB)))
	})

	It("delays a miss by the latency the cache reports for it", func() {
		cache.latency[0x2000] = 1 // miss, report its own 1-cycle latency
		s.RequestRead(memio.Target{Address: 0x2000, Size: 8}, 2)

		Expect(s.HasPendingRequests()).To(BeTrue())
		s.Tick()
		Expect(s.HasPendingRequests()).To(BeFalse())
		Expect(s.GetCompletedReads()).To(HaveLen(1))
	})

	It("splits a request straddling a cache-line boundary and joins by address regardless of which half resolves first", func() {
		// A 4-byte read starting 2 bytes before the 64-byte line boundary
		// straddles: first half at [62,64), second half at [64,66).
		for i, b := range []byte{0x11, 0x22, 0x33, 0x44} {
			cache.bytes[62+uint64(i)] = b
		}
		cache.latency[62] = 3 // low half resolves slower
		cache.latency[64] = 1 // high half resolves first

		s.RequestRead(memio.Target{Address: 62, Size: 4}, 7)
		Expect(s.HasPendingRequests()).To(BeTrue())

		s.Tick() // high half ready after 1 cycle, low half still has 2 left
		Expect(s.GetCompletedReads()).To(BeEmpty())
		s.Tick()
		s.Tick() // low half now ready, triggers the merge
		Expect(s.HasPendingRequests()).To(BeFalse())

		reads := s.GetCompletedReads()
		Expect(reads).To(HaveLen(1))
		Expect(reads[0].RequestID).To(Equal(uint64(7)))
		Expect(reads[0].Value.Bytes()).To(Equal([]byte{0x11, 0x22, 0x33, 0x44}))
	})

	It("writes each half of a straddling store independently with no completion produced", func() {
		s.RequestWrite(memio.Target{Address: 62, Size: 4}, register.FromUint64(0x44332211))
		Expect(cache.writes).To(HaveLen(2))
		Expect(s.GetCompletedReads()).To(BeEmpty())
	})
})
