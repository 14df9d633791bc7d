package postgres

import (
	"context"
	"reflect"
)

// fakeDB scripts QueryRow through a closure and records every Exec. Enough of
// the DB interface to drive the repositories without a running database.
type fakeDB struct {
	queryRow func(sql string, args []any) Row
	execs    []execCall
	execErr  error
}

type execCall struct {
	sql  string
	args []any
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	panic("not scripted")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return db.queryRow(sql, args)
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	db.execs = append(db.execs, execCall{sql: sql, args: args})
	if db.execErr != nil {
		return nil, db.execErr
	}
	return fakeTag{}, nil
}

func (db *fakeDB) Close() {}

type fakeTag struct{}

func (fakeTag) RowsAffected() int64 { return 1 }

type fakeRow struct {
	err  error
	vals []any
}

// Scan copies vals positionally into dest. A nil val leaves the target at its
// zero value, which stands in for SQL NULL in these tests.
func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.vals {
		if v == nil {
			continue
		}
		target := reflect.ValueOf(dest[i]).Elem()
		target.Set(reflect.ValueOf(v).Convert(target.Type()))
	}
	return nil
}
