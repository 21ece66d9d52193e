package core

import (
	"fmt"
	"iter"
)

// SelectResult materializes the rows of a select into Rows.
// It is lazy and one-shot: rows are read from the cursor on demand and the
// cursor cannot be rewound.
type SelectResult struct {
	model    *Model
	cursor   Cursor
	fields   []*Field
	columns  []*Field
	consumed bool
}

func newSelectResult(model *Model, cursor Cursor, fields []*Field) *SelectResult {
	return &SelectResult{model: model, cursor: cursor, fields: fields}
}

// Fields returns the selected fields in select-list order.
func (r *SelectResult) Fields() []*Field {
	return append([]*Field(nil), r.fields...)
}

// Count returns the number of rows read so far. It is final only once
// every row has been fetched, and 0 before the first fetch.
func (r *SelectResult) Count() int64 {
	return r.cursor.RowsAffected()
}

// Close releases the cursor without reading further rows.
func (r *SelectResult) Close() error {
	r.consumed = true
	return r.cursor.Close()
}

// FetchOne returns the first row and closes the cursor.
// It returns nil, nil when the result is empty.
func (r *SelectResult) FetchOne() (*Row, error) {
	if !r.model.single {
		_ = r.Close()
		return nil, fmt.Errorf("%w: use FetchOneJoined", ErrComposedModel)
	}
	rows, err := r.FetchOneJoined()
	if err != nil || rows == nil {
		return nil, err
	}
	return rows[0], nil
}

// FetchOneJoined returns the first row split into one Row per member
// model, in member order, and closes the cursor. Single models yield a
// one-element slice.
func (r *SelectResult) FetchOneJoined() ([]*Row, error) {
	defer func() { _ = r.Close() }()

	if r.consumed {
		return nil, nil
	}
	values, ok, err := r.cursor.Fetch()
	if err != nil || !ok {
		return nil, err
	}
	return r.materialize(values)
}

// FetchAll returns an iterator over the remaining rows. The cursor is
// closed when the rows are exhausted, on the first error, or when the
// loop stops early.
//
// Example:
//
//	for row, err := range res.FetchAll() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(row.Get("name"))
//	}
func (r *SelectResult) FetchAll() iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		if !r.model.single {
			_ = r.Close()
			yield(nil, fmt.Errorf("%w: use FetchAllJoined", ErrComposedModel))
			return
		}
		for rows, err := range r.FetchAllJoined() {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rows[0], nil) {
				return
			}
		}
	}
}

// FetchAllJoined is FetchAll for composed models: each item holds one Row
// per member model in member order.
func (r *SelectResult) FetchAllJoined() iter.Seq2[[]*Row, error] {
	return func(yield func([]*Row, error) bool) {
		defer func() { _ = r.Close() }()

		for !r.consumed {
			values, ok, err := r.cursor.Fetch()
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			rows, err := r.materialize(values)
			if !yield(rows, err) || err != nil {
				return
			}
		}
	}
}

// materialize routes the column values of one result row to the buckets
// of the owning models.
func (r *SelectResult) materialize(values []any) ([]*Row, error) {
	if r.columns == nil {
		columns, err := resolveColumns(r.cursor.Columns(), r.fields)
		if err != nil {
			return nil, err
		}
		r.columns = columns
	}
	if len(values) != len(r.columns) {
		return nil, fmt.Errorf("%w: row has %d values for %d columns", ErrUnknownColumn, len(values), len(r.columns))
	}

	members := r.model.Models()
	buckets := make([]map[string]any, len(members))
	for i := range buckets {
		buckets[i] = make(map[string]any)
	}

	for i, f := range r.columns {
		idx := 0
		if !r.model.single {
			idx = r.model.memberIndex(f.model)
		}
		buckets[idx][f.name] = values[i]
	}

	rows := make([]*Row, len(members))
	for i, m := range members {
		rows[i] = newRowFromData(m, buckets[i])
	}
	return rows, nil
}

// resolveColumns maps each result column label to a selected field.
//
// Selected fields are indexed by plain name, the first occurrence keeping
// the plain name and later ones with the same name keyed by full name.
// Labels are then matched by occurrence: the k-th column labelled "id" is
// the k-th selected field named "id". Labels equal to a full name resolve
// to that field directly.
func resolveColumns(labels []string, fields []*Field) ([]*Field, error) {
	byName := make(map[string]*Field, len(fields))
	byFull := make(map[string]*Field, len(fields))
	sameName := make(map[string][]*Field, len(fields))
	for _, f := range fields {
		if _, taken := byName[f.name]; taken {
			byName[f.fullName] = f
		} else {
			byName[f.name] = f
		}
		byFull[f.fullName] = f
		sameName[f.name] = append(sameName[f.name], f)
	}

	seen := make(map[string]int, len(labels))
	out := make([]*Field, len(labels))
	for i, label := range labels {
		if f, ok := byFull[label]; ok {
			out[i] = f
			continue
		}
		if candidates := sameName[label]; seen[label] < len(candidates) {
			out[i] = candidates[seen[label]]
			seen[label]++
			continue
		}
		f, ok := byName[label]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, label)
		}
		out[i] = f
	}
	return out, nil
}
