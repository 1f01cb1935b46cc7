package query

import (
	"context"

	"github.com/ostinato-db/ostinato"
	osql "github.com/ostinato-db/ostinato/dialect/sql"
	"github.com/ostinato-db/ostinato/schema"
	"github.com/ostinato-db/ostinato/schema/column"
)

// m2mEndpoints resolves the joining and related tables of a
// many-to-many relation along with the two foreign key roles.
type m2mEndpoints struct {
	joining   *schema.Table
	related   *schema.Table
	primary   *column.ForeignKey
	secondary *column.ForeignKey
}

func resolveM2M(m *schema.M2M) (*m2mEndpoints, error) {
	jt, err := m.JoiningTable()
	if err != nil {
		return nil, err
	}
	joining, ok := jt.(*schema.Table)
	if !ok {
		return nil, ostinato.NewConfigError("m2m %q: joining table is not registered", m.Name())
	}
	rt, err := m.RelatedTable()
	if err != nil {
		return nil, err
	}
	related, ok := rt.(*schema.Table)
	if !ok {
		return nil, ostinato.NewConfigError("m2m %q: related table is not registered", m.Name())
	}
	primary, secondary, err := m.Keys()
	if err != nil {
		return nil, err
	}
	return &m2mEndpoints{joining: joining, related: related, primary: primary, secondary: secondary}, nil
}

// checkRelated verifies every row belongs to the relation's far side
// and target belongs to the owner.
func (ep *m2mEndpoints) checkRelated(m *schema.M2M, target *schema.Object, rows []*schema.Object) error {
	if target.Table() != m.Owner() {
		return ostinato.NewConfigError("m2m %q: target row belongs to table %q, want %q",
			m.Name(), target.Table().Name(), m.Owner().Name())
	}
	for _, r := range rows {
		if r.Table() != ep.related {
			return ostinato.NewConfigError("m2m %q: row belongs to table %q, want %q",
				m.Name(), r.Table().Name(), ep.related.Name())
		}
	}
	return nil
}

// M2MAddRelated links rows to a target through the joining table.
type M2MAddRelated struct {
	m2m    *schema.M2M
	target *schema.Object
	rows   []*schema.Object
	extra  map[string]any
}

// AddRelated links rows to target through m's joining table. Rows not
// yet saved are inserted first. Everything runs in one transaction.
func AddRelated(m *schema.M2M, target *schema.Object, rows ...*schema.Object) *M2MAddRelated {
	return &M2MAddRelated{m2m: m, target: target, rows: rows}
}

// WithValues sets extra column values on the joining rows, for joining
// tables that carry their own data.
func (q *M2MAddRelated) WithValues(extra map[string]any) *M2MAddRelated {
	q.extra = extra
	return q
}

// Run inserts unsaved related rows, then the joining rows.
func (q *M2MAddRelated) Run(ctx context.Context) error {
	ep, err := resolveM2M(q.m2m)
	if err != nil {
		return err
	}
	if err := ep.checkRelated(q.m2m, q.target, q.rows); err != nil {
		return err
	}
	if q.target.PK() == nil {
		return ostinato.NewConfigError("m2m %q: target row has no primary key value", q.m2m.Name())
	}
	e, err := boundEngine(q.m2m.Owner())
	if err != nil {
		return err
	}
	return e.Transaction(ctx, func(ctx context.Context) error {
		var unsaved []*schema.Object
		for _, r := range q.rows {
			if !r.ExistsInDB() {
				unsaved = append(unsaved, r)
			}
		}
		if len(unsaved) > 0 {
			if _, err := Insert(ep.related, unsaved...).RunReturning(ctx); err != nil {
				return err
			}
		}
		joinRows := make([]*schema.Object, 0, len(q.rows))
		for _, r := range q.rows {
			jr := ep.joining.NewObject(nil)
			if err := jr.Set(ep.primary.Name(), q.target.PK()); err != nil {
				return err
			}
			if err := jr.Set(ep.secondary.Name(), r.PK()); err != nil {
				return err
			}
			for name, v := range q.extra {
				if err := jr.Set(name, v); err != nil {
					return err
				}
			}
			joinRows = append(joinRows, jr)
		}
		return Insert(ep.joining, joinRows...).Run(ctx)
	})
}

// M2MRemoveRelated unlinks rows from a target. Only the joining rows
// are deleted; the related rows stay.
type M2MRemoveRelated struct {
	m2m    *schema.M2M
	target *schema.Object
	rows   []*schema.Object
}

// RemoveRelated unlinks rows from target in m's joining table.
func RemoveRelated(m *schema.M2M, target *schema.Object, rows ...*schema.Object) *M2MRemoveRelated {
	return &M2MRemoveRelated{m2m: m, target: target, rows: rows}
}

// Run deletes the joining rows linking target to the given rows.
func (q *M2MRemoveRelated) Run(ctx context.Context) error {
	ep, err := resolveM2M(q.m2m)
	if err != nil {
		return err
	}
	if err := ep.checkRelated(q.m2m, q.target, q.rows); err != nil {
		return err
	}
	var ids []any
	for _, r := range q.rows {
		if pk := r.PK(); pk != nil {
			ids = append(ids, pk)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	primaryCol := ep.joining.C(ep.primary.Name())
	secondaryCol := ep.joining.C(ep.secondary.Name())
	where := primaryCol.Eq(q.target.PK()).And(secondaryCol.In(ids...))
	return Delete(ep.joining).Where(where).Run(ctx)
}

// M2MGetRelated fetches the rows on the far side of a relation for one
// target row.
type M2MGetRelated struct {
	m2m    *schema.M2M
	target *schema.Object
}

// GetRelated fetches the related rows linked to target through m.
func GetRelated(m *schema.M2M, target *schema.Object) *M2MGetRelated {
	return &M2MGetRelated{m2m: m, target: target}
}

// QueryStrings renders the select for a dialect.
func (q *M2MGetRelated) QueryStrings(dialectName string) ([]osql.QueryString, error) {
	ep, err := resolveM2M(q.m2m)
	if err != nil {
		return nil, err
	}
	sel, err := q.build(ep)
	if err != nil {
		return nil, err
	}
	return sel.QueryStrings(dialectName)
}

// build selects related rows whose primary key appears in the joining
// rows for the target.
func (q *M2MGetRelated) build(ep *m2mEndpoints) (*SelectQuery, error) {
	if err := ep.checkRelated(q.m2m, q.target, nil); err != nil {
		return nil, err
	}
	if q.target.PK() == nil {
		return nil, ostinato.NewConfigError("m2m %q: target row has no primary key value", q.m2m.Name())
	}
	sub := osql.NewQueryString(
		"SELECT "+osql.QuoteIdentifier(ep.secondary.Name())+
			" FROM "+ep.joining.QualifiedName()+
			" WHERE "+osql.QuoteIdentifier(ep.primary.Name())+" = {}",
		q.target.PK(),
	)
	pk := ep.related.PrimaryKey()
	if pk == nil {
		return nil, ostinato.NewConfigError("m2m %q: related table %q has no primary key", q.m2m.Name(), ep.related.Name())
	}
	return Select(ep.related).Where(pk.In(sub)), nil
}

// Run fetches the related rows as objects.
func (q *M2MGetRelated) Run(ctx context.Context) ([]*schema.Object, error) {
	ep, err := resolveM2M(q.m2m)
	if err != nil {
		return nil, err
	}
	sel, err := q.build(ep)
	if err != nil {
		return nil, err
	}
	rows, err := sel.Run(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.Object, len(rows))
	for i, row := range rows {
		out[i] = ep.related.FromRow(row)
	}
	return out, nil
}
