// Package sigdb indexes decoded signature modules and serves name lookups
// to concurrently running checks.
package sigdb

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"tarn/internal/diag"
	"tarn/internal/sig"
	"tarn/internal/source"
)

// DB is the process-wide signature registry. Writes happen while snapshots
// load, reads happen from checker goroutines; оба пути защищены RWMutex,
// счётчики — атомарные.
type DB struct {
	mu       sync.RWMutex
	classes  map[string]*sig.Class
	typedefs map[string]*sig.Typedef
	modules  []*sig.Module

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats summarizes lookup traffic since the DB was created.
type Stats struct {
	Hits   uint64
	Misses uint64
	Decls  int
}

func New() *DB {
	return &DB{
		classes:  make(map[string]*sig.Class),
		typedefs: make(map[string]*sig.Typedef),
	}
}

// AddModule indexes every declaration the module publishes. Declarations
// live in one flat namespace: a name already taken by any earlier module
// keeps its first owner, and the clash is reported against the newcomer.
func (db *DB) AddModule(m *sig.Module, r diag.Reporter) {
	if m == nil {
		return
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	db.modules = append(db.modules, m)
	for _, c := range m.Classes {
		if prev, prevSpan, ok := db.ownerLocked(c.Name); ok {
			reportDuplicate(r, c.Name, prev, c.Span, prevSpan)
			continue
		}
		db.classes[c.Name] = c
	}
	for _, td := range m.Typedefs {
		if prev, prevSpan, ok := db.ownerLocked(td.Name); ok {
			reportDuplicate(r, td.Name, prev, td.Span, prevSpan)
			continue
		}
		db.typedefs[td.Name] = td
	}
}

func (db *DB) ownerLocked(name string) (kind string, span source.Span, ok bool) {
	if c, exists := db.classes[name]; exists {
		return "class", c.Span, true
	}
	if td, exists := db.typedefs[name]; exists {
		return "typedef", td.Span, true
	}
	return "", source.Span{}, false
}

// ClassSignature resolves a class by name. Part of variance.Registry.
func (db *DB) ClassSignature(name string) (*sig.Class, bool) {
	db.mu.RLock()
	c, ok := db.classes[name]
	db.mu.RUnlock()
	db.count(ok)
	return c, ok
}

// TypedefSignature resolves a type alias by name. Part of variance.Registry.
func (db *DB) TypedefSignature(name string) (*sig.Typedef, bool) {
	db.mu.RLock()
	td, ok := db.typedefs[name]
	db.mu.RUnlock()
	db.count(ok)
	return td, ok
}

// Has reports whether any declaration owns the name, without touching stats.
func (db *DB) Has(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if _, ok := db.classes[name]; ok {
		return true
	}
	_, ok := db.typedefs[name]
	return ok
}

// Modules returns the loaded modules in load order.
func (db *DB) Modules() []*sig.Module {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*sig.Module, len(db.modules))
	copy(out, db.modules)
	return out
}

// ClassNames returns all indexed class names, sorted.
func (db *DB) ClassNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.classes))
	for name := range db.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypedefNames returns all indexed alias names, sorted.
func (db *DB) TypedefNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.typedefs))
	for name := range db.typedefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeclCount returns the number of indexed declarations.
func (db *DB) DeclCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.classes) + len(db.typedefs)
}

func (db *DB) Stats() Stats {
	return Stats{
		Hits:   db.hits.Load(),
		Misses: db.misses.Load(),
		Decls:  db.DeclCount(),
	}
}

func (db *DB) count(hit bool) {
	if hit {
		db.hits.Add(1)
	} else {
		db.misses.Add(1)
	}
}

func reportDuplicate(r diag.Reporter, name, prevKind string, at, prev source.Span) {
	diag.ReportError(r, diag.ProjDuplicateDecl, at,
		fmt.Sprintf("`%s` is already declared by another snapshot", name)).
		WithNote(prev, fmt.Sprintf("previous %s `%s` declared here", prevKind, name)).
		Emit()
}
