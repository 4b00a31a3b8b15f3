package exec

import (
	"context"

	"coredb/rid"
	"coredb/tuple"
)

// NestedLoopJoin is the standard two-loop join: for every left tuple, the
// right child is re-initialised and scanned to completion, matching rows
// combined via Predicate. Only INNER and LEFT are supported; anything else
// aborts with ErrUnsupportedJoinType.
type NestedLoopJoin struct {
	Left, Right Operator
	Type        JoinType
	Predicate   func(left, right tuple.Tuple) bool
	RightWidth  int // len(right output schema's columns), for LEFT-join null padding

	bufferedOutput
}

func (j *NestedLoopJoin) Init(ctx context.Context) error {
	if j.Type != JoinInner && j.Type != JoinLeft {
		return ErrUnsupportedJoinType
	}
	j.reset()

	if err := j.Left.Init(ctx); err != nil {
		return err
	}
	for {
		var leftRows []tuple.Tuple
		var leftRIDs []rid.RID
		if !j.Left.Next(&leftRows, &leftRIDs, pullBatch) {
			break
		}
		for _, leftRow := range leftRows {
			if err := j.Right.Init(ctx); err != nil {
				return err
			}
			matched := false
			for {
				var rightRows []tuple.Tuple
				var rightRIDs []rid.RID
				if !j.Right.Next(&rightRows, &rightRIDs, pullBatch) {
					break
				}
				for _, rightRow := range rightRows {
					if j.Predicate(leftRow, rightRow) {
						j.push(combine(leftRow, rightRow), noRID())
						matched = true
					}
				}
			}
			if !matched && j.Type == JoinLeft {
				j.push(combineWithNulls(leftRow, j.RightWidth), noRID())
			}
		}
	}
	return nil
}

func (j *NestedLoopJoin) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	return j.drain(out, outRIDs, batchSize)
}
