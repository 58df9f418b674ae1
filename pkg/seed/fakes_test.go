package seed

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

type memRepo struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemRepo() *memRepo { return &memRepo{files: map[string][]byte{}} }

func (r *memRepo) put(name, body string) { r.files[name] = []byte(body) }

func (r *memRepo) List(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Collect(maps.Keys(r.files)), nil
}

func (r *memRepo) Read(ctx context.Context, name string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	body, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: not found", name)
	}
	return body, nil
}

func (r *memRepo) Write(ctx context.Context, name string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[name] = body
	return nil
}

type memTable struct {
	columns []string
	rows    []Record
}

// memDB implements SchemaInspector and DataStore over in-memory tables.
type memDB struct {
	tables     map[string]*memTable
	failTables map[string]error

	fkDisabled bool
	fkToggles  int
	writes     int
}

func newMemDB() *memDB {
	return &memDB{tables: map[string]*memTable{}, failTables: map[string]error{}}
}

func (db *memDB) create(name string, columns ...string) *memTable {
	t := &memTable{columns: columns}
	db.tables[name] = t
	return t
}

func (db *memDB) HasTable(ctx context.Context, table string) (bool, error) {
	_, ok := db.tables[table]
	return ok, nil
}

func (db *memDB) HasColumn(ctx context.Context, table, column string) (bool, error) {
	t, ok := db.tables[table]
	if !ok {
		return false, nil
	}
	return slices.Contains(t.columns, column), nil
}

func (db *memDB) Columns(ctx context.Context, table string) ([]string, error) {
	t, ok := db.tables[table]
	if !ok {
		return nil, fmt.Errorf("no table %q", table)
	}
	return slices.Clone(t.columns), nil
}

func (db *memDB) WithoutForeignKeyChecks(ctx context.Context, fn func(RecordWriter) error) error {
	if db.fkDisabled {
		return errors.New("foreign key checks already disabled")
	}
	db.fkDisabled = true
	db.fkToggles++
	defer func() { db.fkDisabled = false }()
	return fn(db)
}

func (db *memDB) Insert(ctx context.Context, table string, rec Record) error {
	if err := db.writable(table); err != nil {
		return err
	}
	t := db.tables[table]
	t.rows = append(t.rows, maps.Clone(rec))
	db.writes++
	return nil
}

func (db *memDB) Upsert(ctx context.Context, table string, rec Record) error {
	if err := db.writable(table); err != nil {
		return err
	}
	t := db.tables[table]
	db.writes++
	for i, row := range t.rows {
		if fmt.Sprint(row[ColumnID]) == fmt.Sprint(rec[ColumnID]) {
			merged := maps.Clone(row)
			maps.Copy(merged, rec)
			t.rows[i] = merged
			return nil
		}
	}
	t.rows = append(t.rows, maps.Clone(rec))
	return nil
}

func (db *memDB) writable(table string) error {
	if !db.fkDisabled {
		return errors.New("write outside foreign key scope")
	}
	if err := db.failTables[table]; err != nil {
		return err
	}
	if _, ok := db.tables[table]; !ok {
		return fmt.Errorf("no table %q", table)
	}
	return nil
}

func (db *memDB) MaxID(ctx context.Context, table string) (int64, error) {
	var maxID int64
	for _, row := range db.tables[table].rows {
		if id, ok := row[ColumnID].(int64); ok && id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (db *memDB) Rows(ctx context.Context, table string, columns []string, from, to int64) ([]Record, error) {
	var out []Record
	for _, row := range db.tables[table].rows {
		id, _ := row[ColumnID].(int64)
		if id < from || id > to {
			continue
		}
		projected := Record{}
		for _, col := range columns {
			projected[col] = row[col]
		}
		out = append(out, projected)
	}
	return out, nil
}

type memLedger struct {
	entries   []LedgerEntry
	recordErr error
}

func (l *memLedger) AppliedNames(ctx context.Context) (map[string]struct{}, error) {
	names := make(map[string]struct{}, len(l.entries))
	for _, e := range l.entries {
		names[e.Seeder] = struct{}{}
	}
	return names, nil
}

func (l *memLedger) NextBatchNumber(ctx context.Context) (int, error) {
	maxBatch := 0
	for _, e := range l.entries {
		maxBatch = max(maxBatch, e.Batch)
	}
	return maxBatch + 1, nil
}

func (l *memLedger) Record(ctx context.Context, entry LedgerEntry) error {
	if l.recordErr != nil {
		return l.recordErr
	}
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memLedger) Entries(ctx context.Context) ([]LedgerEntry, error) {
	return slices.Clone(l.entries), nil
}

type columnSet map[string]bool

func (s columnSet) SelectColumn(ctx context.Context, table, column string) (bool, error) {
	return s[column], nil
}

// fixedRange returns from/to, or the defaults when useDefaults is set.
type fixedRange struct {
	from, to    int64
	useDefaults bool

	gotFrom, gotTo int64
}

func (r *fixedRange) Range(ctx context.Context, table string, defaultFrom, defaultTo int64) (int64, int64, error) {
	r.gotFrom, r.gotTo = defaultFrom, defaultTo
	if r.useDefaults {
		return defaultFrom, defaultTo, nil
	}
	return r.from, r.to, nil
}

type recordingNotifier struct {
	subjects []string
	events   []any
	err      error
}

func (n *recordingNotifier) Publish(ctx context.Context, subject string, v any) error {
	n.subjects = append(n.subjects, subject)
	n.events = append(n.events, v)
	return n.err
}

var fixedNow = time.Date(2024, 6, 1, 15, 30, 45, 0, time.UTC)

func clock() time.Time { return fixedNow }

func strPtr(s string) *string { return &s }
