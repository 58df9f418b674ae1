package seed

import (
	"context"
	"errors"
	"fmt"
)

// Generator writes new seeders from live table data.
type Generator struct {
	repo   Repository
	schema SchemaInspector
	store  DataStore
	opts   options
}

// NewGenerator wires a Generator.
func NewGenerator(repo Repository, schema SchemaInspector, store DataStore, opts ...Option) (*Generator, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if schema == nil {
		return nil, errors.New("schema inspector is required")
	}
	if store == nil {
		return nil, errors.New("data store is required")
	}
	return &Generator{repo: repo, schema: schema, store: store, opts: buildOptions(opts)}, nil
}

// GenerateRequest describes a seeder to build from table.
type GenerateRequest struct {
	Table   string
	Tag     *string
	Columns ColumnSelector
	Range   RangePrompt
}

// Generated describes a written seeder.
type Generated struct {
	Name    string
	Columns []string
	From    int64
	To      int64
	Records int
}

// Generate snapshots rows of req.Table into a new seeder. Nothing is written
// when the table is missing or no column is selected.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*Generated, error) {
	if req.Columns == nil || req.Range == nil {
		return nil, errors.New("column selector and range prompt are required")
	}
	if err := g.ensureTable(ctx, req.Table); err != nil {
		return nil, err
	}

	available, err := g.schema.Columns(ctx, req.Table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", req.Table, err)
	}
	var columns []string
	for _, col := range available {
		ok, err := req.Columns.SelectColumn(ctx, req.Table, col)
		if err != nil {
			return nil, fmt.Errorf("select column %q: %w", col, err)
		}
		if ok {
			columns = append(columns, col)
		}
	}
	if len(columns) == 0 {
		return nil, &Error{Kind: KindNoColumnsSelected, Table: req.Table}
	}

	maxID, err := g.store.MaxID(ctx, req.Table)
	if err != nil {
		return nil, fmt.Errorf("max id of %q: %w", req.Table, err)
	}
	from, to, err := req.Range.Range(ctx, req.Table, 0, maxID)
	if err != nil {
		return nil, fmt.Errorf("id range: %w", err)
	}
	if from > to {
		from, to = to, from
	}

	rows, err := g.store.Rows(ctx, req.Table, columns, from, to)
	if err != nil {
		return nil, fmt.Errorf("read %q rows %d..%d: %w", req.Table, from, to, err)
	}

	body, err := Encode(req.Tag, columns, rows)
	if err != nil {
		return nil, fmt.Errorf("encode seeder: %w", err)
	}
	name, err := g.write(ctx, req.Table, body)
	if err != nil {
		return nil, err
	}

	g.opts.log.Info().
		Str("seeder", name).
		Str("table", req.Table).
		Strs("columns", columns).
		Int64("from", from).
		Int64("to", to).
		Int("records", len(rows)).
		Msg("generated seeder")

	return &Generated{Name: name, Columns: columns, From: from, To: to, Records: len(rows)}, nil
}

// Placeholder writes a seeder for table holding a single example record.
func (g *Generator) Placeholder(ctx context.Context, table string, tag *string) (string, error) {
	if err := g.ensureTable(ctx, table); err != nil {
		return "", err
	}

	example := []Record{{"name": "Example"}}
	body, err := Encode(tag, []string{"name"}, example)
	if err != nil {
		return "", fmt.Errorf("encode placeholder: %w", err)
	}
	name, err := g.write(ctx, table, body)
	if err != nil {
		return "", err
	}

	g.opts.log.Info().Str("seeder", name).Str("table", table).Msg("created placeholder seeder")
	return name, nil
}

func (g *Generator) ensureTable(ctx context.Context, table string) error {
	if table == "" {
		return errors.New("table name is required")
	}
	exists, err := g.schema.HasTable(ctx, table)
	if err != nil {
		return fmt.Errorf("inspect table %q: %w", table, err)
	}
	if !exists {
		return &Error{Kind: KindTableNotFound, Table: table}
	}
	return nil
}

// write stores body under a name stamped with the current second. Two
// seeders for one table in the same second collide.
func (g *Generator) write(ctx context.Context, table string, body []byte) (string, error) {
	name := NewName(table, g.opts.now())
	if err := g.repo.Write(ctx, name, body); err != nil {
		return "", fmt.Errorf("write seeder %q: %w", name, err)
	}
	return name, nil
}
