// Package catalog persists encoded class descriptors in a SQLite
// database so class shapes can be inspected without the code that
// defines them.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/metaobject/meta"
	"github.com/chazu/metaobject/wire"
)

var log = commonlog.GetLogger("metaobject.catalog")

// ErrClassNotFound indicates the requested class is not in the catalog.
var ErrClassNotFound = errors.New("class not found")

// Entry summarizes one stored class.
type Entry struct {
	Name     string
	Super    string
	Revision int
}

// Catalog stores classes keyed by name.
type Catalog struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	loaded map[string]*meta.MetaObject
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS classes (
		name     TEXT PRIMARY KEY,
		super    TEXT NOT NULL DEFAULT '',
		revision INTEGER NOT NULL,
		data     BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: creating table: %w", err)
	}

	return &Catalog{db: db, path: path, loaded: make(map[string]*meta.MetaObject)}, nil
}

// Path returns the database path.
func (c *Catalog) Path() string { return c.path }

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Save stores m's own descriptor, replacing any class of the same name.
func (c *Catalog) Save(m *meta.MetaObject) error {
	wc := wire.EncodeClass(m)
	data, err := wire.MarshalClass(wc)
	if err != nil {
		return fmt.Errorf("catalog: encoding %s: %w", wc.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO classes (name, super, revision, data) VALUES (?, ?, ?, ?)",
		wc.Name, wc.Super, m.Revision(), data,
	)
	if err != nil {
		return fmt.Errorf("catalog: saving %s: %w", wc.Name, err)
	}
	// Cached descendants hold the old node as their parent.
	clear(c.loaded)
	log.Debugf("saved class %s (%d bytes)", wc.Name, len(data))
	return nil
}

// SaveChain stores m and every ancestor.
func (c *Catalog) SaveChain(m *meta.MetaObject) error {
	for n := m; n != nil; n = n.SuperClass() {
		if err := c.Save(n); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the stored transport form of a class.
func (c *Catalog) Load(name string) (*wire.Class, error) {
	var data []byte
	err := c.db.QueryRow("SELECT data FROM classes WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog: %s: %w", name, ErrClassNotFound)
		}
		return nil, fmt.Errorf("catalog: querying %s: %w", name, err)
	}
	return wire.UnmarshalClass(data)
}

// LoadMetaObject rebuilds a describe-only node for name and its
// ancestors. Ancestors missing from the catalog resolve through the
// process class registry. Invoking members of the result fails with
// meta.ErrUnsupported.
func (c *Catalog) LoadMetaObject(name string) (*meta.MetaObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(name, make(map[string]bool))
}

func (c *Catalog) loadLocked(name string, visiting map[string]bool) (*meta.MetaObject, error) {
	if m, ok := c.loaded[name]; ok {
		return m, nil
	}
	if visiting[name] {
		return nil, fmt.Errorf("catalog: %s: inheritance cycle: %w", name, meta.ErrCorruptDescriptor)
	}
	visiting[name] = true

	wc, err := c.Load(name)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			if m := meta.Lookup(name); m != nil {
				return m, nil
			}
		}
		return nil, err
	}
	d, err := wc.Descriptor()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var parent *meta.MetaObject
	if wc.Super != "" {
		if parent, err = c.loadLocked(wc.Super, visiting); err != nil {
			return nil, err
		}
	}
	m := meta.NewMetaObject(d, parent, nil, wc.Capabilities...)
	c.loaded[name] = m
	return m, nil
}

// List returns every stored class ordered by name.
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query("SELECT name, super, revision FROM classes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("catalog: listing: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Super, &e.Revision); err != nil {
			return nil, fmt.Errorf("catalog: scanning: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes a class. Deleting an unknown class fails with
// ErrClassNotFound.
func (c *Catalog) Delete(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec("DELETE FROM classes WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("catalog: deleting %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: %s: %w", name, ErrClassNotFound)
	}
	clear(c.loaded)
	return nil
}
