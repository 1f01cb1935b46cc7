package schema

import (
	"sort"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/schema/column"
)

// Sort orders tables so that every table follows the tables its foreign
// keys reference, the order CREATE TABLE statements must run in. Self
// references are ignored; a reference cycle is an error.
func Sort(tables []*Table) ([]*Table, error) {
	index := map[column.Table]*Table{}
	for _, t := range tables {
		index[t] = t
	}

	deps := map[*Table][]*Table{}
	indegree := map[*Table]int{}
	for _, t := range tables {
		indegree[t] = 0
	}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys() {
			ref, err := fk.ReferencedTable()
			if err != nil {
				return nil, err
			}
			dep, known := index[ref]
			if !known || dep == t {
				continue
			}
			deps[dep] = append(deps[dep], t)
			indegree[t]++
		}
	}

	ready := make([]*Table, 0, len(tables))
	for _, t := range tables {
		if indegree[t] == 0 {
			ready = append(ready, t)
		}
	}
	sortByName(ready)

	out := make([]*Table, 0, len(tables))
	for len(ready) > 0 {
		t := ready[0]
		ready = ready[1:]
		out = append(out, t)
		var freed []*Table
		for _, next := range deps[t] {
			indegree[next]--
			if indegree[next] == 0 {
				freed = append(freed, next)
			}
		}
		sortByName(freed)
		ready = append(ready, freed...)
	}
	if len(out) != len(tables) {
		return nil, ostinato.NewConfigError("foreign key references between tables form a cycle")
	}
	return out, nil
}

func sortByName(ts []*Table) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].name < ts[j].name })
}
