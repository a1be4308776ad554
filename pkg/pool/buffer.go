package pool

import "sync"

// Size buckets for byte buffers. Sequencing reads cluster tightly around
// the instrument read length, so a few buckets cover nearly all requests.
var bufferSizes = []int{64, 256, 1024, 4096, 16384}

var bufferPools [5]sync.Pool

func init() {
	for i, size := range bufferSizes {
		size := size
		bufferPools[i].New = func() interface{} {
			b := make([]byte, 0, size)
			return &b
		}
	}
}

// GetBuffer returns a byte slice with at least the requested capacity and
// zero length. Buffers above the largest bucket are allocated directly.
func GetBuffer(capacity int) []byte {
	for i, size := range bufferSizes {
		if capacity <= size {
			return (*bufferPools[i].Get().(*[]byte))[:0]
		}
	}
	return make([]byte, 0, capacity)
}

// PutBuffer returns a buffer to its size bucket. Oversized buffers are
// dropped for the garbage collector.
func PutBuffer(b []byte) {
	c := cap(b)
	for i, size := range bufferSizes {
		if c == size {
			b = b[:0]
			bufferPools[i].Put(&b)
			return
		}
	}
}
