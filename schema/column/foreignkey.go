package column

import (
	"strings"

	"github.com/ostinato-db/ostinato"
)

// ReferentialAction is the policy applied to referencing rows when the
// referenced row is deleted or updated.
type ReferentialAction string

const (
	Cascade    ReferentialAction = "CASCADE"
	Restrict   ReferentialAction = "RESTRICT"
	NoAction   ReferentialAction = "NO ACTION"
	SetNull    ReferentialAction = "SET NULL"
	SetDefault ReferentialAction = "SET DEFAULT"
)

// A JoinChain records the foreign key hops crossed to reach a column or
// a further foreign key. The hop order runs from the root table
// outward.
type JoinChain []*ForeignKey

func (jc JoinChain) clone() JoinChain {
	if jc == nil {
		return nil
	}
	out := make(JoinChain, len(jc))
	copy(out, jc)
	return out
}

// Depth returns the number of hops in the chain.
func (jc JoinChain) Depth() int { return len(jc) }

// TableAlias is the alias the chain's final table joins under, built
// from the root table name and every hop name: "band$manager".
func (jc JoinChain) TableAlias() string {
	if len(jc) == 0 {
		return ""
	}
	parts := make([]string, 0, len(jc)+1)
	parts = append(parts, jc[0].table.Name())
	for _, hop := range jc {
		parts = append(parts, hop.name)
	}
	return strings.Join(parts, "$")
}

// PathName is the output name a column reached through the chain takes
// in a result row: "manager$name". Without hops it is the bare column
// name.
func (jc JoinChain) PathName(col string) string {
	if len(jc) == 0 {
		return col
	}
	parts := make([]string, 0, len(jc)+1)
	for _, hop := range jc {
		parts = append(parts, hop.name)
	}
	parts = append(parts, col)
	return strings.Join(parts, "$")
}

// ForeignKey is a column referencing a row in another table. Traversal
// methods return copies carrying an extended join chain, so the table's
// own definition is never mutated.
type ForeignKey struct {
	Column

	ref      *TableRef
	target   string
	onDelete ReferentialAction
	onUpdate ReferentialAction
}

// ForeignKeyTo builds a foreign key column pointing at the table named
// by ref.
func ForeignKeyTo(name string, ref *TableRef) *ForeignKey {
	fk := &ForeignKey{
		Column:   *newColumn(TypeForeignKey, name),
		ref:      ref,
		onDelete: NoAction,
		onUpdate: NoAction,
	}
	if ref == nil {
		fk.fail(ostinato.NewConfigError("foreign key %q: nil table reference", name))
	}
	fk.null = true
	fk.def, fk.hasDef = nil, true
	return fk
}

// Nullable marks the foreign key as accepting NULL. Foreign keys are
// nullable by default; the method exists for symmetry after NotNull.
func (fk *ForeignKey) Nullable() *ForeignKey {
	fk.null = true
	return fk
}

// NotNull makes the reference mandatory.
func (fk *ForeignKey) NotNull() *ForeignKey {
	fk.null = false
	if fk.hasDef && fk.def == nil {
		fk.def, fk.hasDef = nil, false
	}
	return fk
}

// Unique adds a uniqueness constraint, making the relationship one to
// one and the key reversible.
func (fk *ForeignKey) Unique() *ForeignKey {
	fk.unique = true
	return fk
}

// Indexed requests a secondary index on the key column.
func (fk *ForeignKey) Indexed() *ForeignKey {
	fk.index = true
	return fk
}

// Target names the referenced column. Unset, the reference points at
// the target table's primary key.
func (fk *ForeignKey) Target(name string) *ForeignKey {
	fk.target = name
	return fk
}

// OnDelete sets the delete policy.
func (fk *ForeignKey) OnDelete(a ReferentialAction) *ForeignKey {
	fk.onDelete = a
	return fk
}

// OnUpdate sets the update policy.
func (fk *ForeignKey) OnUpdate(a ReferentialAction) *ForeignKey {
	fk.onUpdate = a
	return fk
}

// DeleteAction returns the configured delete policy.
func (fk *ForeignKey) DeleteAction() ReferentialAction { return fk.onDelete }

// UpdateAction returns the configured update policy.
func (fk *ForeignKey) UpdateAction() ReferentialAction { return fk.onUpdate }

// Ref returns the table reference the key was declared with.
func (fk *ForeignKey) Ref() *TableRef { return fk.ref }

// ReferencedTable resolves the table the key points at.
func (fk *ForeignKey) ReferencedTable() (Table, error) {
	return fk.ref.Resolve(fk.table)
}

// TargetColumn resolves the referenced column: the explicitly named
// target, or the referenced table's primary key.
func (fk *ForeignKey) TargetColumn() (*Column, error) {
	t, err := fk.ReferencedTable()
	if err != nil {
		return nil, err
	}
	if fk.target != "" {
		c, ok := t.Column(fk.target)
		if !ok {
			return nil, ostinato.NewConfigError("foreign key %q: table %q has no column %q", fk.name, t.Name(), fk.target)
		}
		if !c.unique {
			return nil, ostinato.NewConfigError("foreign key %q: target column %q is not unique", fk.name, fk.target)
		}
		return c, nil
	}
	pk := t.PrimaryKey()
	if pk == nil {
		return nil, ostinato.NewConfigError("foreign key %q: table %q has no primary key", fk.name, t.Name())
	}
	return pk, nil
}

// ValueKind returns the kind of value the key column stores: the target
// column's kind with auto-increment kinds aliased to plain integers.
func (fk *ForeignKey) ValueKind() (Kind, error) {
	tc, err := fk.TargetColumn()
	if err != nil {
		return TypeInvalid, err
	}
	return tc.kind.aliased(), nil
}

// TypeName returns the SQL type of the key column under the named
// dialect. It mirrors the target column's stored representation, so a
// key onto a SERIAL primary key renders as INTEGER.
func (fk *ForeignKey) TypeName(dialectName string) (string, error) {
	tc, err := fk.TargetColumn()
	if err != nil {
		return "", err
	}
	mirror := tc.Copy()
	mirror.kind = tc.kind.aliased()
	return mirror.TypeName(dialectName)
}

// copyFK duplicates the key, cloning its chain.
func (fk *ForeignKey) copyFK() *ForeignKey {
	cp := *fk
	cp.Column = *fk.Column.Copy()
	return &cp
}

func (fk *ForeignKey) extendChain(c *Column) error {
	c.chain = append(fk.chain.clone(), fk)
	if len(c.chain) > MaxJoinDepth {
		return ostinato.ChainTooLongError(len(c.chain), MaxJoinDepth)
	}
	return nil
}

// Follow returns a copy of the named column on the referenced table,
// its join chain extended through this key. Chains are capped at
// MaxJoinDepth hops.
func (fk *ForeignKey) Follow(name string) (*Column, error) {
	t, err := fk.ReferencedTable()
	if err != nil {
		return nil, err
	}
	c, ok := t.Column(name)
	if !ok {
		return nil, ostinato.NewTraversalError("table %q has no column %q", t.Name(), name)
	}
	cp := c.Copy()
	if err := fk.extendChain(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Traverse returns a copy of the named foreign key on the referenced
// table, chain extended, ready for a further hop.
func (fk *ForeignKey) Traverse(name string) (*ForeignKey, error) {
	t, err := fk.ReferencedTable()
	if err != nil {
		return nil, err
	}
	var next *ForeignKey
	for _, cand := range t.ForeignKeys() {
		if cand.name == name {
			next = cand
			break
		}
	}
	if next == nil {
		return nil, ostinato.NewTraversalError("table %q has no foreign key %q", t.Name(), name)
	}
	cp := next.copyFK()
	if err := fk.extendChain(&cp.Column); err != nil {
		return nil, err
	}
	return cp, nil
}

// AllColumns returns traversed copies of every column on the referenced
// table, excluding any named columns.
func (fk *ForeignKey) AllColumns(exclude ...string) ([]*Column, error) {
	t, err := fk.ReferencedTable()
	if err != nil {
		return nil, err
	}
	skip := toSet(exclude)
	var out []*Column
	for _, c := range t.Columns() {
		if skip[c.name] {
			continue
		}
		cp, err := fk.Follow(c.name)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// AllRelated returns traversed copies of every foreign key on the
// referenced table, excluding any named keys.
func (fk *ForeignKey) AllRelated(exclude ...string) ([]*ForeignKey, error) {
	t, err := fk.ReferencedTable()
	if err != nil {
		return nil, err
	}
	skip := toSet(exclude)
	var out []*ForeignKey
	for _, next := range t.ForeignKeys() {
		if skip[next.name] {
			continue
		}
		cp, err := fk.Traverse(next.name)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// JoinOn builds a virtual foreign key on c's table matching c against
// the other column, used to express ad hoc joins and reversed chains.
func (c *Column) JoinOn(other *Column) (*ForeignKey, error) {
	if c.table == nil || other.table == nil {
		return nil, ostinato.NewTraversalError("join on detached columns")
	}
	fk := &ForeignKey{
		Column:   *newColumn(TypeForeignKey, c.name),
		ref:      RefTo(other.table),
		target:   other.name,
		onDelete: NoAction,
		onUpdate: NoAction,
	}
	fk.table = c.table
	fk.null = c.null
	fk.unique = c.unique
	return fk, nil
}

// Reverse flips the key, yielding a foreign key rooted on the
// referenced table that walks back to this key's table. Every hop in
// the chain, and the key itself, must be unique for the reversal to be
// well defined.
func (fk *ForeignKey) Reverse() (*ForeignKey, error) {
	full := append(fk.chain.clone(), fk)
	for _, hop := range full {
		if !hop.unique {
			return nil, ostinato.NewConfigError("foreign key %q: only unique foreign keys can be reversed", hop.name)
		}
	}
	var chain JoinChain
	var out *ForeignKey
	for i := len(full) - 1; i >= 0; i-- {
		hop := full[i]
		tc, err := hop.TargetColumn()
		if err != nil {
			return nil, err
		}
		rfk, err := tc.JoinOn(&hop.Column)
		if err != nil {
			return nil, err
		}
		rfk.chain = chain.clone()
		chain = append(chain, rfk)
		out = rfk
	}
	return out, nil
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
