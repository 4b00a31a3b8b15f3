// Package catalog is the storage core's metadata layer: table schemas,
// secondary indexes, and the file-per-table/file-per-index wiring that
// gives each its own disk.Manager and buffer.Pool. Schemas persist as JSON
// on disk, adapted from the corpus's own catalog persistence, and are read
// back only by Load; GetTableSchema answers from a ristretto cache keyed by
// table name before falling back to the in-memory table map.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"coredb/config"
	"coredb/rid"
	"coredb/storage/buffer"
	"coredb/storage/disk"
	"coredb/storage/heap"
	"coredb/storage/index/bptree"
	"coredb/storage/page"
	"coredb/tuple"
	"coredb/txn"
)

// TableInfo bundles one table's schema, its heap, and the secondary
// indexes built on it.
type TableInfo struct {
	Name    string
	Schema  *tuple.Schema
	Heap    *heap.TableHeap
	Indexes []*IndexInfo

	mgr  disk.Manager
	pool *buffer.Pool
}

// IndexInfo is the catalog-facing handle over one secondary index: the
// B+ tree itself, the columns it is keyed on, and the projection from a
// full table row to that key.
type IndexInfo struct {
	Name        string
	KeyAttrs    []string
	tableSchema *tuple.Schema
	keySchema   *tuple.Schema
	tree        *bptree.Tree

	mgr  disk.Manager
	pool *buffer.Pool
}

// GetKeyAttrs returns the table columns this index is keyed on, in order.
func (ii *IndexInfo) GetKeyAttrs() []string { return ii.KeyAttrs }

func (ii *IndexInfo) keyBytes(row tuple.Tuple) []byte {
	return row.Project(ii.tableSchema, ii.KeyAttrs).Encode()
}

// InsertEntry adds row's projected key -> r to the index.
func (ii *IndexInfo) InsertEntry(row tuple.Tuple, r rid.RID, _ txn.Context) (bool, error) {
	return ii.tree.Insert(ii.keyBytes(row), r)
}

// DeleteEntry removes row's projected key from the index.
func (ii *IndexInfo) DeleteEntry(row tuple.Tuple, _ rid.RID, _ txn.Context) (bool, error) {
	return ii.tree.Delete(ii.keyBytes(row))
}

// ScanKey appends the RID for row's projected key to rids, if present.
func (ii *IndexInfo) ScanKey(row tuple.Tuple, rids *[]rid.RID, _ txn.Context) error {
	r, found, err := ii.tree.GetValue(ii.keyBytes(row))
	if err != nil {
		return err
	}
	if found {
		*rids = append(*rids, r)
	}
	return nil
}

// KeySchema returns the projected schema of this index's key tuples, for
// callers (the executor's index scan/index join) that build key tuples
// directly rather than projecting a full row.
func (ii *IndexInfo) KeySchema() *tuple.Schema { return ii.keySchema }

// LookupKey appends the RID for a key already shaped as this index's key
// tuple (as opposed to ScanKey's full table row) to rids, if present.
func (ii *IndexInfo) LookupKey(key tuple.Tuple, rids *[]rid.RID) error {
	r, found, err := ii.tree.GetValue(key.Encode())
	if err != nil {
		return err
	}
	if found {
		*rids = append(*rids, r)
	}
	return nil
}

// Iterator walks every live entry of the index in key order.
func (ii *IndexInfo) Iterator() (*bptree.Iterator, error) {
	return ii.tree.Seek(nil)
}

// keyComparator orders two encoded index keys by decoding them against
// keySchema and comparing column-by-column with tuple.CompareValues,
// rather than raw byte comparison — a fixed-width numeric column's
// little-endian encoding does not sort the same way its value does.
func keyComparator(keySchema *tuple.Schema) bptree.Comparator {
	return func(a, b []byte) int {
		ta := tuple.Decode(keySchema, a)
		tb := tuple.Decode(keySchema, b)
		for i := range ta.Values {
			if c := tuple.CompareValues(ta.Values[i], tb.Values[i]); c != 0 {
				return c
			}
		}
		return 0
	}
}

// persistedIndex is an IndexInfo's on-disk shadow.
type persistedIndex struct {
	Name         string   `json:"name"`
	KeyAttrs     []string `json:"key_attrs"`
	HeaderPageID int32    `json:"header_page_id"`
}

type persistedTable struct {
	Schema  tuple.Schema     `json:"schema"`
	Indexes []persistedIndex `json:"indexes"`
}

// Manager owns every table's metadata and storage wiring for one data
// directory.
type Manager struct {
	mu      sync.Mutex
	dataDir string
	cfg     config.Config
	log     *zap.Logger
	cache   *ristretto.Cache[string, tuple.Schema]
	tables  map[string]*TableInfo
}

// NewManager opens (creating if necessary) dataDir as a catalog root.
func NewManager(cfg config.Config, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("catalog: create data dir: %w", err)
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, tuple.Schema]{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: build schema cache: %w", err)
	}
	return &Manager{
		dataDir: cfg.DataDir,
		cfg:     cfg,
		log:     log.With(zap.String("component", "catalog")),
		cache:   cache,
		tables:  make(map[string]*TableInfo),
	}, nil
}

func (m *Manager) schemaPath(table string) string {
	return filepath.Join(m.dataDir, table+"_schema.json")
}

func (m *Manager) heapPath(table string) string {
	return filepath.Join(m.dataDir, table+".heap")
}

func (m *Manager) indexPath(table, index string) string {
	return filepath.Join(m.dataDir, table+"."+index+".idx")
}

func (m *Manager) openPool(path string) (disk.Manager, *buffer.Pool, error) {
	fm, err := disk.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	sched := disk.NewScheduler(fm, 32, m.log)
	pool := buffer.NewPool(m.cfg.PoolFrames, sched, m.log)
	return fm, pool, nil
}

// CreateTable registers a brand-new table, allocating its heap file.
func (m *Manager) CreateTable(schema tuple.Schema) (*TableInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tables[schema.TableName()]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", schema.TableName())
	}

	mgr, pool, err := m.openPool(m.heapPath(schema.TableName()))
	if err != nil {
		return nil, err
	}

	sc := schema
	info := &TableInfo{
		Name:   schema.TableName(),
		Schema: &sc,
		Heap:   heap.NewTableHeap(pool, &sc),
		mgr:    mgr,
		pool:   pool,
	}
	m.tables[info.Name] = info
	m.cache.Set(info.Name, schema, 1)

	if err := m.persistTable(info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetTable returns the table registered under name.
func (m *Manager) GetTable(name string) (*TableInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	return t, ok
}

// GetTableSchema is the fast path query planning uses repeatedly: it
// checks the ristretto cache before touching the table map.
func (m *Manager) GetTableSchema(name string) (tuple.Schema, bool) {
	if schema, found := m.cache.Get(name); found {
		return schema, true
	}

	m.mu.Lock()
	t, ok := m.tables[name]
	m.mu.Unlock()
	if !ok {
		return tuple.Schema{}, false
	}
	m.cache.Set(name, *t.Schema, 1)
	return *t.Schema, true
}

// CreateIndex builds a new, empty secondary index over table's columns
// named in keyAttrs.
func (m *Manager) CreateIndex(tableName, indexName string, keyAttrs []string) (*IndexInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("catalog: table %q not found", tableName)
	}

	mgr, pool, err := m.openPool(m.indexPath(tableName, indexName))
	if err != nil {
		return nil, err
	}

	keySchema := projectSchema(table.Schema, keyAttrs)
	tree, err := bptree.Create(pool, m.cfg.BTreeMaxSize, m.cfg.TombstoneCapacity, keyComparator(keySchema), m.log)
	if err != nil {
		return nil, err
	}

	idx := &IndexInfo{
		Name:        indexName,
		KeyAttrs:    keyAttrs,
		tableSchema: table.Schema,
		keySchema:   keySchema,
		tree:        tree,
		mgr:         mgr,
		pool:        pool,
	}
	table.Indexes = append(table.Indexes, idx)

	if err := m.persistTable(table); err != nil {
		return nil, err
	}
	return idx, nil
}

// GetIndex looks up one of table's indexes by name.
func (m *Manager) GetIndex(tableName, indexName string) (*IndexInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[tableName]
	if !ok {
		return nil, false
	}
	for _, idx := range table.Indexes {
		if idx.Name == indexName {
			return idx, true
		}
	}
	return nil, false
}

// GetTableIndexes returns every index built on tableName.
func (m *Manager) GetTableIndexes(tableName string) []*IndexInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[tableName]
	if !ok {
		return nil
	}
	return append([]*IndexInfo(nil), table.Indexes...)
}

func projectSchema(schema *tuple.Schema, attrs []string) *tuple.Schema {
	out := &tuple.Schema{Columns: make([]tuple.ColumnDef, 0, len(attrs))}
	for _, name := range attrs {
		idx := schema.IndexOf(name)
		if idx >= 0 {
			out.Columns = append(out.Columns, schema.Columns[idx])
		}
	}
	return out
}

func (m *Manager) persistTable(t *TableInfo) error {
	pt := persistedTable{Schema: *t.Schema}
	for _, idx := range t.Indexes {
		pt.Indexes = append(pt.Indexes, persistedIndex{
			Name:         idx.Name,
			KeyAttrs:     idx.KeyAttrs,
			HeaderPageID: int32(idx.tree.HeaderPageID()),
		})
	}
	data, err := json.MarshalIndent(pt, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.schemaPath(t.Name), data, 0644)
}

// Load reopens a previously created table, rebuilding its heap's page
// directory by rescanning the backing file and reattaching each persisted
// index at its saved header page.
func (m *Manager) Load(tableName string) (*TableInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.tables[tableName]; ok {
		return t, nil
	}

	data, err := os.ReadFile(m.schemaPath(tableName))
	if err != nil {
		return nil, fmt.Errorf("catalog: table %q not found: %w", tableName, err)
	}
	var pt persistedTable
	if err := json.Unmarshal(data, &pt); err != nil {
		return nil, fmt.Errorf("catalog: corrupt schema for %q: %w", tableName, err)
	}

	mgr, pool, err := m.openPool(m.heapPath(tableName))
	if err != nil {
		return nil, err
	}
	schema := pt.Schema
	pageIDs := make([]page.ID, mgr.PageCount())
	for i := range pageIDs {
		pageIDs[i] = page.ID(i)
	}

	info := &TableInfo{
		Name:   tableName,
		Schema: &schema,
		Heap:   heap.OpenTableHeap(pool, &schema, pageIDs),
		mgr:    mgr,
		pool:   pool,
	}

	for _, pidx := range pt.Indexes {
		imgr, ipool, err := m.openPool(m.indexPath(tableName, pidx.Name))
		if err != nil {
			return nil, err
		}
		keySchema := projectSchema(info.Schema, pidx.KeyAttrs)
		tree := bptree.Open(ipool, page.ID(pidx.HeaderPageID), m.cfg.BTreeMaxSize, m.cfg.TombstoneCapacity, keyComparator(keySchema), m.log)
		info.Indexes = append(info.Indexes, &IndexInfo{
			Name:        pidx.Name,
			KeyAttrs:    pidx.KeyAttrs,
			tableSchema: info.Schema,
			keySchema:   keySchema,
			tree:        tree,
			mgr:         imgr,
			pool:        ipool,
		})
	}

	m.tables[tableName] = info
	m.cache.Set(tableName, schema, 1)
	return info, nil
}
