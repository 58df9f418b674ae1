package seed

import "context"

// Repository stores seed documents by name (without extension).
type Repository interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, body []byte) error
}

// SchemaInspector answers questions about the live schema.
type SchemaInspector interface {
	HasTable(ctx context.Context, table string) (bool, error)
	HasColumn(ctx context.Context, table, column string) (bool, error)
	Columns(ctx context.Context, table string) ([]string, error)
}

// RecordWriter writes single records to a table.
type RecordWriter interface {
	Insert(ctx context.Context, table string, rec Record) error
	// Upsert replaces the row matching rec's id, inserting it when absent.
	Upsert(ctx context.Context, table string, rec Record) error
}

// DataStore reads and writes table data.
type DataStore interface {
	// WithoutForeignKeyChecks runs fn on a single connection with foreign
	// key enforcement suspended. Enforcement is restored before returning,
	// whatever fn returns.
	WithoutForeignKeyChecks(ctx context.Context, fn func(RecordWriter) error) error
	MaxID(ctx context.Context, table string) (int64, error)
	// Rows returns rows with from <= id <= to projected to columns, in the
	// order the store yields them.
	Rows(ctx context.Context, table string, columns []string, from, to int64) ([]Record, error)
}

// ColumnSelector decides which columns a generated seeder includes.
type ColumnSelector interface {
	SelectColumn(ctx context.Context, table, column string) (bool, error)
}

// RangePrompt picks the inclusive id range a generated seeder covers.
type RangePrompt interface {
	Range(ctx context.Context, table string, defaultFrom, defaultTo int64) (from, to int64, err error)
}

// Notifier publishes applied-seeder events. Implementations must tolerate
// being called once per applied seeder.
type Notifier interface {
	Publish(ctx context.Context, subject string, v any) error
}
