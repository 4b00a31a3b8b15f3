package exec

import (
	"context"

	"coredb/rid"
	"coredb/tuple"
)

// Values is a leaf producer over a fixed, in-memory row list — the child
// an Insert plan pulls from for a literal VALUES list.
type Values struct {
	Schema *tuple.Schema
	Rows   []tuple.Tuple

	pos int
}

func (v *Values) OutputSchema() *tuple.Schema { return v.Schema }

func (v *Values) Init(_ context.Context) error {
	v.pos = 0
	return nil
}

func (v *Values) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	produced := false
	for len(*out) < batchSize && v.pos < len(v.Rows) {
		*out = append(*out, v.Rows[v.pos])
		*outRIDs = append(*outRIDs, rid.RID{PageID: rid.InvalidPageID})
		v.pos++
		produced = true
	}
	return produced
}
