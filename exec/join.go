package exec

import "coredb/tuple"

// JoinType is the set of join semantics the join operators support.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
)

const pullBatch = 256

func combine(left, right tuple.Tuple) tuple.Tuple {
	values := make([]tuple.Value, 0, len(left.Values)+len(right.Values))
	values = append(values, left.Values...)
	values = append(values, right.Values...)
	return tuple.Tuple{Values: values}
}

func combineWithNulls(left tuple.Tuple, rightWidth int) tuple.Tuple {
	values := make([]tuple.Value, 0, len(left.Values)+rightWidth)
	values = append(values, left.Values...)
	for i := 0; i < rightWidth; i++ {
		values = append(values, nil)
	}
	return tuple.Tuple{Values: values}
}
