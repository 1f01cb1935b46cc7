package column

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ostinato-db/ostinato"
)

// Registry resolves table names to table definitions. The schema
// package provides the canonical implementation.
type Registry interface {
	Lookup(namespace, name string) (Table, error)
}

// A TableRef names the table a foreign key points at. It comes in three
// variants: a direct reference to an existing definition, a deferred
// reference resolved by name through a registry (used when the target
// is declared later, or lives in another schema namespace), and a self
// reference for recursive relationships.
type TableRef struct {
	direct    Table
	name      string
	namespace string
	self      bool

	mu       sync.Mutex
	resolved Table
}

// RefTo returns a direct reference to t.
func RefTo(t Table) *TableRef {
	return &TableRef{direct: t}
}

// RefByName returns a deferred reference resolved against a registry on
// first use. An empty namespace means the default namespace.
func RefByName(name, namespace string) *TableRef {
	return &TableRef{name: name, namespace: namespace}
}

// SelfRef returns a reference to the foreign key's own table.
func SelfRef() *TableRef {
	return &TableRef{self: true}
}

// Deferred reports whether resolution requires a registry lookup.
func (r *TableRef) Deferred() bool {
	return r.direct == nil && !r.self
}

// lookupGroup collapses concurrent first resolutions of the same
// deferred name into a single registry lookup.
var lookupGroup singleflight.Group

// Resolve returns the referenced table. Deferred references are looked
// up once and memoized; failures are not cached, so a reference to a
// table registered later succeeds on retry.
func (r *TableRef) Resolve(owner Table) (Table, error) {
	if r.self {
		if owner == nil {
			return nil, ostinato.NewTraversalError("self reference resolved without an owning table")
		}
		return owner, nil
	}
	if r.direct != nil {
		return r.direct, nil
	}

	r.mu.Lock()
	if r.resolved != nil {
		t := r.resolved
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	if owner == nil || owner.Registry() == nil {
		return nil, ostinato.NewTraversalError("deferred reference to %q has no registry to resolve against", r.name)
	}
	reg := owner.Registry()
	key := fmt.Sprintf("%p/%s/%s", reg, r.namespace, r.name)
	v, err, _ := lookupGroup.Do(key, func() (any, error) {
		return reg.Lookup(r.namespace, r.name)
	})
	if err != nil {
		return nil, ostinato.NewTraversalError("cannot resolve table reference %q: %v", r.name, err)
	}
	t := v.(Table)

	r.mu.Lock()
	r.resolved = t
	r.mu.Unlock()
	return t, nil
}
