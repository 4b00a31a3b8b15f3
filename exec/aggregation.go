package exec

import (
	"context"

	"coredb/rid"
	"coredb/tuple"
)

// AggFunc is one of the aggregate functions Aggregation and WindowFunction
// both compute over a peer group or hash bucket.
type AggFunc int

const (
	AggCountStar AggFunc = iota
	AggCount
	AggSum
	AggMin
	AggMax
	// AggRank is only meaningful inside a WindowFunction: Aggregation never
	// sees it in practice.
	AggRank
)

// AggregateExpr is one output column of an aggregation: a function over
// Eval applied to every row in the group (Eval is ignored for CountStar).
type AggregateExpr struct {
	Func AggFunc
	Eval func(tuple.Tuple) tuple.Value
}

func numAdd(acc, v tuple.Value) tuple.Value {
	if v == nil {
		return acc
	}
	if acc == nil {
		return v
	}
	if ai, ok := acc.(int64); ok {
		if vi, ok := v.(int64); ok {
			return ai + vi
		}
	}
	return toFloat(acc) + toFloat(v)
}

func toFloat(v tuple.Value) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

type aggState struct {
	countStar int64
	count     int64
	sum       tuple.Value
	min       tuple.Value
	max       tuple.Value
	sawAny    bool
}

func (s *aggState) apply(v tuple.Value) {
	s.countStar++
	if v == nil {
		return
	}
	s.count++
	s.sum = numAdd(s.sum, v)
	if !s.sawAny || tuple.CompareValues(v, s.min) < 0 {
		s.min = v
	}
	if !s.sawAny || tuple.CompareValues(v, s.max) > 0 {
		s.max = v
	}
	s.sawAny = true
}

func (s *aggState) result(fn AggFunc) tuple.Value {
	switch fn {
	case AggCountStar:
		return s.countStar
	case AggCount:
		return s.count
	case AggSum:
		return s.sum
	case AggMin:
		return s.min
	case AggMax:
		return s.max
	default:
		return nil
	}
}

func identityResult(fn AggFunc) tuple.Value {
	switch fn {
	case AggCountStar, AggCount:
		return int64(0)
	default:
		return nil
	}
}

type groupRow struct {
	key   []tuple.Value
	states []*aggState
}

// Aggregation is a hash aggregation: GroupBy projects each row to a key,
// and one aggState per Aggregates entry accumulates within that key's
// bucket. With no GroupBy, an empty input still emits a single identity
// row (count 0, sum/min/max null), matching SQL's aggregate-of-nothing
// semantics.
type Aggregation struct {
	Child      Operator
	GroupBy    []func(tuple.Tuple) tuple.Value
	Aggregates []AggregateExpr

	bufferedOutput
}

func (a *Aggregation) Init(ctx context.Context) error {
	a.reset()
	if err := a.Child.Init(ctx); err != nil {
		return err
	}

	groups := make(map[string]*groupRow)
	var order []string

	for {
		var rows []tuple.Tuple
		var rids []rid.RID
		if !a.Child.Next(&rows, &rids, pullBatch) {
			break
		}
		for _, row := range rows {
			keyVals := make([]tuple.Value, len(a.GroupBy))
			for i, g := range a.GroupBy {
				keyVals[i] = g(row)
			}
			k := string(tuple.Tuple{Values: keyVals}.Encode())

			gr, ok := groups[k]
			if !ok {
				gr = &groupRow{key: keyVals, states: make([]*aggState, len(a.Aggregates))}
				for i := range gr.states {
					gr.states[i] = &aggState{}
				}
				groups[k] = gr
				order = append(order, k)
			}
			for i, agg := range a.Aggregates {
				var v tuple.Value
				if agg.Func != AggCountStar && agg.Eval != nil {
					v = agg.Eval(row)
				}
				gr.states[i].apply(v)
			}
		}
	}

	if len(order) == 0 && len(a.GroupBy) == 0 {
		values := make([]tuple.Value, len(a.Aggregates))
		for i, agg := range a.Aggregates {
			values[i] = identityResult(agg.Func)
		}
		a.push(tuple.Tuple{Values: values}, noRID())
		return nil
	}

	for _, k := range order {
		gr := groups[k]
		values := make([]tuple.Value, 0, len(gr.key)+len(a.Aggregates))
		values = append(values, gr.key...)
		for i, agg := range a.Aggregates {
			values = append(values, gr.states[i].result(agg.Func))
		}
		a.push(tuple.Tuple{Values: values}, noRID())
	}
	return nil
}

func (a *Aggregation) Next(out *[]tuple.Tuple, outRIDs *[]rid.RID, batchSize int) bool {
	return a.drain(out, outRIDs, batchSize)
}
