// Package exec implements the Volcano-style executor runtime: every
// operator pulls batches of tuples from its children through a uniform
// Init/Next contract, resolving reads and writes through a catalog.Manager
// table's heap and secondary indexes.
package exec

import (
	"context"

	"coredb/rid"
	"coredb/tuple"
)

// Operator is the executor's uniform pull-based contract. Init prepares
// (or re-prepares) the operator to be pulled from the beginning; Next
// appends up to batchSize produced rows to *out (and their source RIDs,
// where meaningful, to *outRIDs) and reports whether it produced anything.
// A false return means exhausted; callers do not call Next again after a
// false return in the same Init epoch.
type Operator interface {
	Init(ctx context.Context) error
	Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool
}

// Predicate reports whether a tuple should pass a filter or join.
type Predicate func(tuple.Tuple) bool

// Schema returns the output schema an operator produces, needed by
// operators that build their own encodings (sort keys, hash keys, group
// keys) over a child's output.
type Schema interface {
	OutputSchema() *tuple.Schema
}

// Drain runs op to completion, collecting every batch it produces. It is
// the simplest possible driver for an operator tree; callers that want to
// stream results batch-by-batch should call Init/Next directly instead.
func Drain(ctx context.Context, op Operator, batchSize int) ([]tuple.Tuple, []rid.RID, error) {
	return drainAll(ctx, op, batchSize)
}

func drainAll(ctx context.Context, op Operator, batchSize int) ([]tuple.Tuple, []rid.RID, error) {
	if err := op.Init(ctx); err != nil {
		return nil, nil, err
	}
	var rows []tuple.Tuple
	var rids []rid.RID
	for {
		var out []tuple.Tuple
		var outRIDs []rid.RID
		if !op.Next(&out, &outRIDs, batchSize) {
			break
		}
		rows = append(rows, out...)
		rids = append(rids, outRIDs...)
	}
	return rows, rids, nil
}
