package schema

import (
	"sort"
	"sync"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/schema/column"
)

// Registry maps table names to definitions so deferred references
// resolve. Lookups are safe for concurrent use with registration.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: map[string]*Table{}}
}

// DefaultRegistry is the process-wide registry used when tables are
// registered with Register.
var DefaultRegistry = NewRegistry()

// Register adds a table to the default registry.
func Register(t *Table) error {
	return DefaultRegistry.Add(t)
}

func registryKey(namespace, name string) string {
	return namespace + "." + name
}

// Add registers a table under its schema namespace and name.
func (r *Registry) Add(t *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := registryKey(t.schemaName, t.name)
	if _, dup := r.tables[key]; dup {
		return ostinato.NewConfigError("table %q already registered", t.name)
	}
	r.tables[key] = t
	t.reg = r
	return nil
}

// Lookup resolves a namespace and table name to its definition.
func (r *Registry) Lookup(namespace, name string) (column.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[registryKey(namespace, name)]
	if !ok {
		return nil, ostinato.NewConfigError("no table %q registered in namespace %q", name, namespace)
	}
	return t, nil
}

// Tables returns every registered table, ordered by namespace and
// name.
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].schemaName != out[j].schemaName {
			return out[i].schemaName < out[j].schemaName
		}
		return out[i].name < out[j].name
	})
	return out
}

// ReferencesTo returns every registered foreign key pointing at t: the
// reverse-relationship index.
func (r *Registry) ReferencesTo(t *Table) []*column.ForeignKey {
	var out []*column.ForeignKey
	for _, src := range r.Tables() {
		for _, fk := range src.ForeignKeys() {
			ref, err := fk.ReferencedTable()
			if err != nil {
				continue
			}
			if ref == column.Table(t) {
				out = append(out, fk)
			}
		}
	}
	return out
}
