// Command coredb seeds a small database, builds a secondary index, and
// runs a handful of executor operators over it, printing the results.
// Run: go run ./cmd/coredb
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"coredb/catalog"
	"coredb/config"
	"coredb/exec"
	"coredb/logging"
	"coredb/tuple"
	"coredb/txn"
)

func main() {
	cfgPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
}

var peopleSchema = tuple.Schema{
	Name: "people",
	Columns: []tuple.ColumnDef{
		{Name: "id", Type: tuple.TypeInt, IsPrimaryKey: true},
		{Name: "name", Type: tuple.TypeString},
		{Name: "age", Type: tuple.TypeInt},
	},
}

func run(cfg config.Config, logger *zap.Logger) error {
	mgr, err := catalog.NewManager(cfg, logger)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	table, err := mgr.CreateTable(peopleSchema)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	idx, err := mgr.CreateIndex("people", "by_age", []string{"age"})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	seedTxn := txn.Context{ID: 1}
	seed := &exec.Insert{
		Child: &exec.Values{
			Schema: table.Schema,
			Rows: []tuple.Tuple{
				{Values: []tuple.Value{int64(1), "ann", int64(30)}},
				{Values: []tuple.Value{int64(2), "bob", int64(25)}},
				{Values: []tuple.Value{int64(3), "carl", int64(25)}},
				{Values: []tuple.Value{int64(4), "dina", int64(40)}},
			},
		},
		Table: table,
		Txn:   seedTxn,
	}
	inserted, err := drain(seed)
	if err != nil {
		return fmt.Errorf("seed rows: %w", err)
	}
	logger.Info("seeded rows", zap.Int64("count", inserted[0].Values[0].(int64)))

	fmt.Println("--- full scan ---")
	scan := &exec.SeqScan{Heap: table.Heap, Schema: table.Schema}
	rows, err := drain(scan)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	printRows(rows)

	fmt.Println("--- index lookup age=25 ---")
	lookup := &exec.IndexScan{
		Index:  idx,
		Heap:   table.Heap,
		Schema: table.Schema,
		Keys:   []tuple.Tuple{{Values: []tuple.Value{int64(25)}}},
	}
	rows, err = drain(lookup)
	if err != nil {
		return fmt.Errorf("index lookup: %w", err)
	}
	printRows(rows)

	fmt.Println("--- count grouped by age ---")
	agg := &exec.Aggregation{
		Child:   &exec.SeqScan{Heap: table.Heap, Schema: table.Schema},
		GroupBy: []func(tuple.Tuple) tuple.Value{func(t tuple.Tuple) tuple.Value { return t.Values[2] }},
		Aggregates: []exec.AggregateExpr{
			{Func: exec.AggCountStar},
		},
	}
	rows, err = drain(agg)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	printRows(rows)

	return nil
}

func drain(op exec.Operator) ([]tuple.Tuple, error) {
	rows, _, err := exec.Drain(context.Background(), op, 64)
	return rows, err
}

func printRows(rows []tuple.Tuple) {
	for _, r := range rows {
		fmt.Println(r.Values)
	}
}
