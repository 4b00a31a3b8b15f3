package exec

import (
	"context"

	"github.com/cespare/xxhash/v2"

	"coredb/rid"
	"coredb/storage/buffer"
	"coredb/tuple"
)

// HashJoin is a GRACE hash join: both sides are partitioned by the hash of
// their join key into Partitions spill partitions (each a chain of
// intermediate-result pages), then joined partition by partition, right
// side building the hash table, left side probing it. Only INNER and LEFT
// are supported.
//
// Per the retained BusTub executor's shape, the whole join runs to
// completion inside Init; Next only drains the precomputed result.
type HashJoin struct {
	Left, Right             Operator
	LeftSchema, RightSchema *tuple.Schema
	LeftKey, RightKey       func(tuple.Tuple) tuple.Tuple
	Type                    JoinType
	Pool                    *buffer.Pool
	Partitions              int

	bufferedOutput
}

func partitionOf(keyBytes []byte, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64(keyBytes) % uint64(n))
}

func (j *HashJoin) Init(ctx context.Context) error {
	if j.Type != JoinInner && j.Type != JoinLeft {
		return ErrUnsupportedJoinType
	}
	j.reset()

	n := j.Partitions
	if n < 1 {
		n = 1
	}

	leftParts := make([]*intermediateStore, n)
	rightParts := make([]*intermediateStore, n)
	for i := range leftParts {
		leftParts[i] = newIntermediateStore(j.Pool)
		rightParts[i] = newIntermediateStore(j.Pool)
	}
	defer func() {
		for i := range leftParts {
			leftParts[i].close()
			rightParts[i].close()
		}
	}()

	if err := j.Left.Init(ctx); err != nil {
		return err
	}
	for {
		var rows []tuple.Tuple
		var rids []rid.RID
		if !j.Left.Next(&rows, &rids, pullBatch) {
			break
		}
		for _, row := range rows {
			keyBytes := j.LeftKey(row).Encode()
			p := partitionOf(keyBytes, n)
			leftParts[p].append(row.Encode())
		}
	}

	if err := j.Right.Init(ctx); err != nil {
		return err
	}
	for {
		var rows []tuple.Tuple
		var rids []rid.RID
		if !j.Right.Next(&rows, &rids, pullBatch) {
			break
		}
		for _, row := range rows {
			keyBytes := j.RightKey(row).Encode()
			p := partitionOf(keyBytes, n)
			rightParts[p].append(row.Encode())
		}
	}

	for p := 0; p < n; p++ {
		buckets := make(map[string][]tuple.Tuple)
		rightParts[p].forEach(func(data []byte) {
			row := tuple.Decode(j.RightSchema, data)
			k := string(j.RightKey(row).Encode())
			buckets[k] = append(buckets[k], row)
		})

		leftParts[p].forEach(func(data []byte) {
			leftRow := tuple.Decode(j.LeftSchema, data)
			k := string(j.LeftKey(leftRow).Encode())
			matches := buckets[k]
			for _, rightRow := range matches {
				j.push(combine(leftRow, rightRow), noRID())
			}
			if len(matches) == 0 && j.Type == JoinLeft {
				j.push(combineWithNulls(leftRow, len(j.RightSchema.Columns)), noRID())
			}
		})
	}
	return nil
}

func (j *HashJoin) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	return j.drain(out, outRIDs, batchSize)
}
