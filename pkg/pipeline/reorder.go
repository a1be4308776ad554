package pipeline

// Reorder re-sorts a result stream into input order using the sequence
// numbers the executor attached. Results arriving ahead of their turn
// are buffered, so worst-case memory is bounded by how far batches can
// drift apart, roughly Workers * BatchSize.
//
// Reorder assumes the stream carries a contiguous sequence starting at
// zero; with mid-stream cancellation dropped batches leave holes and
// the buffered tail is emitted in sequence order on close.
func Reorder(in <-chan ExecutionResult) <-chan ExecutionResult {
	out := make(chan ExecutionResult, cap(in))
	go func() {
		defer close(out)
		pending := make(map[uint64]ExecutionResult)
		var next uint64
		for res := range in {
			if res.Seq != next {
				pending[res.Seq] = res
				continue
			}
			out <- res
			next++
			for {
				buffered, found := pending[next]
				if !found {
					break
				}
				delete(pending, next)
				out <- buffered
				next++
			}
		}
		// Drain whatever a cancelled run left behind, still in order.
		for len(pending) > 0 {
			res, found := pending[next]
			if found {
				delete(pending, next)
				out <- res
			}
			next++
		}
	}()
	return out
}
