package exec

import (
	"coredb/rid"
	"coredb/tuple"
)

// bufferedOutput is the shared drain-in-batches tail for operators that
// compute their whole result during Init (HashJoin, sort, TopN, window
// functions, aggregation, and the two nested-loop joins here): matches
// how the corpus's own hash-join and sort executors fill a result buffer
// once and stream it back out through Next.
type bufferedOutput struct {
	rows []tuple.Tuple
	rids []rid.RID
	pos  int
}

func (b *bufferedOutput) reset() {
	b.rows = nil
	b.rids = nil
	b.pos = 0
}

func (b *bufferedOutput) push(row tuple.Tuple, r rid.RID) {
	b.rows = append(b.rows, row)
	b.rids = append(b.rids, r)
}

func (b *bufferedOutput) drain(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	if b.pos >= len(b.rows) {
		return false
	}
	end := b.pos + batchSize
	if end > len(b.rows) {
		end = len(b.rows)
	}
	*out = append(*out, b.rows[b.pos:end]...)
	*outRIDs = append(*outRIDs, b.rids[b.pos:end]...)
	b.pos = end
	return true
}

func noRID() rid.RID { return rid.RID{PageID: rid.InvalidPageID} }
