// Package catalog tracks the tables known to a running engine instance:
// their names, schemas, and backing heap files, and assigns each one the
// numeric table ID the buffer pool uses to key its page cache.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/otterdb/txdb/godb"
)

// Table is one registered table's catalog entry.
type Table struct {
	ID   int
	Name string
	File *godb.HeapFile
}

// Catalog is an in-memory registry mapping table names to their schema
// and storage, backed by a directory of one heap file per table. It is
// the thing a CLI or test harness consults to turn "SELECT * FROM foo"
// into a concrete *godb.HeapFile and table ID to hand the BufferPool.
type Catalog struct {
	dir string
	bp  *godb.BufferPool

	mu     sync.Mutex
	nextID int
	tables map[string]*Table
}

// New creates a Catalog that stores its tables' backing files under dir,
// registering tables with bp as they're created.
func New(dir string, bp *godb.BufferPool) *Catalog {
	return &Catalog{
		dir:    dir,
		bp:     bp,
		tables: make(map[string]*Table),
	}
}

// CreateTable registers a new table named name with the given schema,
// backed by a fresh (or, if present, preexisting) heap file under the
// catalog's directory.
func (c *Catalog) CreateTable(name string, desc *godb.TupleDesc) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; exists {
		return nil, fmt.Errorf("table %q already exists", name)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, err
	}
	id := c.nextID
	c.nextID++

	path := filepath.Join(c.dir, name+".dat")
	hf, err := godb.NewHeapFile(id, path, desc, c.bp)
	if err != nil {
		return nil, err
	}
	c.bp.RegisterTable(id, hf)

	tbl := &Table{ID: id, Name: name, File: hf}
	c.tables[name] = tbl
	return tbl, nil
}

// Lookup returns the catalog entry for name, or an error if no such table
// has been created.
func (c *Catalog) Lookup(name string) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tbl, ok := c.tables[name]
	if !ok {
		return nil, godb.NewDbError(godb.NoSuchTableError, fmt.Sprintf("no such table %q", name))
	}
	return tbl, nil
}

// Tables returns every registered table, in no particular order.
func (c *Catalog) Tables() []*Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	return out
}
