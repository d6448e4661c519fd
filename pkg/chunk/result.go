package chunk

import "fmt"

// Partial is the closed set of shapes a batch worker may produce:
// a key-to-record mapping, a row-oriented table, or a pair of both.
// Merging is a total match over these three cases.
type Partial interface {
	isPartial()
}

// Mapping is a key → record partial result. Keys are work items, so a
// merge is an overwrite-union (last write wins, benign for unique keys).
type Mapping map[string]any

func (Mapping) isPartial() {}

// Table is a row-oriented partial result. Merging concatenates rows in
// batch order, then page order within a batch.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (*Table) isPartial() {}

// Append adds one row.
func (t *Table) Append(row ...string) {
	t.Rows = append(t.Rows, row)
}

// Paired is a partial result carrying both a primary result (a Mapping
// or a *Table) and an auxiliary mapping, for workers that produce a
// tabular subset alongside a growing dictionary.
type Paired struct {
	Primary Partial
	Aux     Mapping
}

func (Paired) isPartial() {}

// merge folds the next batch's partial into the aggregate. Shapes must
// match across batches; a mismatch is a worker programming error.
func merge(agg, next Partial) (Partial, error) {
	switch cur := agg.(type) {
	case Mapping:
		m, ok := next.(Mapping)
		if !ok {
			return nil, shapeMismatch(agg, next)
		}
		for key, value := range m {
			cur[key] = value
		}
		return cur, nil

	case *Table:
		tbl, ok := next.(*Table)
		if !ok {
			return nil, shapeMismatch(agg, next)
		}
		cur.Rows = append(cur.Rows, tbl.Rows...)
		return cur, nil

	case Paired:
		p, ok := next.(Paired)
		if !ok {
			return nil, shapeMismatch(agg, next)
		}
		primary, err := merge(cur.Primary, p.Primary)
		if err != nil {
			return nil, err
		}
		for key, value := range p.Aux {
			cur.Aux[key] = value
		}
		return Paired{Primary: primary, Aux: cur.Aux}, nil

	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported worker result shape %T", agg)}
	}
}

func shapeMismatch(agg, next Partial) error {
	return &ConfigError{Reason: fmt.Sprintf("worker returned %T for a batch but %T for an earlier one", next, agg)}
}
