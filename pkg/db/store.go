package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"afterseed/pkg/seed"
)

// generatedTimeLayout formats temporal values read back for generated seeders.
const generatedTimeLayout = "2006-01-02 15:04:05"

// pgInsufficientPrivilege is the SQLSTATE Postgres returns when a role may
// not change a setting.
const pgInsufficientPrivilege = "42501"

// Store exposes application tables to the seed engine.
type Store struct {
	orm     *gorm.DB
	driver  Driver
	timeout time.Duration
}

var (
	_ seed.SchemaInspector = (*Store)(nil)
	_ seed.DataStore       = (*Store)(nil)
)

// NewStore wraps an open handle. timeout bounds schema and aggregate queries;
// zero means DefaultTimeout.
func NewStore(orm *gorm.DB, timeout time.Duration) (*Store, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	driver, err := driverOf(orm)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{orm: orm, driver: driver, timeout: timeout}, nil
}

// HasTable reports whether table exists. Inspection errors read as absent.
func (s *Store) HasTable(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := WithTimeout(ctx, s.timeout, func(ctx context.Context) error {
		exists = s.orm.WithContext(ctx).Migrator().HasTable(table)
		return nil
	})
	return exists, err
}

// Columns lists the columns of table in definition order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	var names []string
	err := WithTimeout(ctx, s.timeout, func(ctx context.Context) error {
		types, err := s.orm.WithContext(ctx).Migrator().ColumnTypes(table)
		if err != nil {
			return err
		}
		names = make([]string, 0, len(types))
		for _, ct := range types {
			names = append(names, ct.Name())
		}
		return nil
	})
	return names, err
}

func (s *Store) HasColumn(ctx context.Context, table, column string) (bool, error) {
	columns, err := s.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	return slices.Contains(columns, column), nil
}

// WithoutForeignKeyChecks pins one connection, suspends foreign key
// enforcement on it for the duration of fn and restores it afterwards.
//
// A Postgres role that may not set session_replication_role falls back to a
// transaction with deferred constraints; only constraints declared
// DEFERRABLE are relaxed there, and they are checked again at commit.
func (s *Store) WithoutForeignKeyChecks(ctx context.Context, fn func(seed.RecordWriter) error) error {
	disable, enable := s.driver.foreignKeyStatements()
	return s.orm.WithContext(ctx).Connection(func(conn *gorm.DB) (err error) {
		if err := conn.WithContext(ctx).Exec(disable).Error; err != nil {
			if s.driver == DriverPostgres && insufficientPrivilege(err) {
				return deferConstraints(ctx, conn, "SET CONSTRAINTS ALL DEFERRED", fn)
			}
			return fmt.Errorf("disable foreign key checks: %w", err)
		}
		defer func() {
			restoreCtx := context.WithoutCancel(ctx)
			if rerr := conn.WithContext(restoreCtx).Exec(enable).Error; rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore foreign key checks: %w", rerr))
			}
		}()
		return fn(&recordWriter{conn: conn})
	})
}

func (d Driver) foreignKeyStatements() (disable, enable string) {
	switch d {
	case DriverMySQL:
		return "SET FOREIGN_KEY_CHECKS = 0", "SET FOREIGN_KEY_CHECKS = 1"
	case DriverSQLite:
		return "PRAGMA foreign_keys = OFF", "PRAGMA foreign_keys = ON"
	default:
		return "SET session_replication_role = 'replica'", "SET session_replication_role = 'origin'"
	}
}

// deferConstraints runs fn inside a transaction on conn after executing
// stmt, which must postpone foreign key checks until commit.
func deferConstraints(ctx context.Context, conn *gorm.DB, stmt string, fn func(seed.RecordWriter) error) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("defer constraints: %w", err)
		}
		return fn(&recordWriter{conn: tx})
	})
}

func insufficientPrivilege(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege
}

// MaxID returns the highest id in table, or 0 when it is empty.
func (s *Store) MaxID(ctx context.Context, table string) (int64, error) {
	var maxID sql.NullInt64
	err := WithTimeout(ctx, s.timeout, func(ctx context.Context) error {
		return s.orm.WithContext(ctx).Table(table).Select("MAX(" + seed.ColumnID + ")").Row().Scan(&maxID)
	})
	if err != nil {
		return 0, err
	}
	return maxID.Int64, nil
}

// Rows reads rows with from <= id <= to projected to columns, in the order
// the database returns them.
func (s *Store) Rows(ctx context.Context, table string, columns []string, from, to int64) ([]seed.Record, error) {
	if len(columns) == 0 {
		return nil, errors.New("no columns requested")
	}
	selected := make([]clause.Column, 0, len(columns))
	for _, c := range columns {
		selected = append(selected, clause.Column{Name: c})
	}
	id := clause.Column{Name: seed.ColumnID}

	var rows []map[string]any
	err := s.orm.WithContext(ctx).
		Table(table).
		Clauses(clause.Select{Columns: selected}).
		Where(clause.Gte{Column: id, Value: from}).
		Where(clause.Lte{Column: id, Value: to}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]seed.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(seed.Record, len(row))
		for k, v := range row {
			rec[k] = normalizeValue(v)
		}
		out = append(out, rec)
	}
	return out, nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(generatedTimeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format(generatedTimeLayout)
	case []byte:
		return string(t)
	default:
		return v
	}
}

type recordWriter struct {
	conn *gorm.DB
}

func (w *recordWriter) Insert(ctx context.Context, table string, rec seed.Record) error {
	return w.conn.WithContext(ctx).Table(table).Create(map[string]any(rec)).Error
}

// Upsert updates the row whose id matches rec with the other columns rec
// carries, or inserts rec when no such row exists. Columns rec leaves out
// keep their stored values.
func (w *recordWriter) Upsert(ctx context.Context, table string, rec seed.Record) error {
	match := clause.Eq{Column: clause.Column{Name: seed.ColumnID}, Value: rec[seed.ColumnID]}

	var n int64
	if err := w.conn.WithContext(ctx).Table(table).Where(match).Limit(1).Count(&n).Error; err != nil {
		return fmt.Errorf("look up %s %v: %w", seed.ColumnID, rec[seed.ColumnID], err)
	}
	if n == 0 {
		return w.Insert(ctx, table, rec)
	}

	updates := maps.Clone(map[string]any(rec))
	delete(updates, seed.ColumnID)
	if len(updates) == 0 {
		return nil
	}
	return w.conn.WithContext(ctx).Table(table).Where(match).Updates(updates).Error
}
