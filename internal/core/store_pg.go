package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the Postgres Store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a store over pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// InTx runs fn in a read-committed transaction. Natural-key races between
// concurrent imports are caught by the unique constraints and surface as
// ErrRowConflict on the losing insert.
func (s *PgStore) InTx(ctx context.Context, fn func(tx EntityStore) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// List reads every row of def ordered by id.
func (s *PgStore) List(ctx context.Context, def *EntityDefinition) ([]Record, error) {
	cols := append([]string{"id"}, def.Columns()...)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id",
		strings.Join(quoted, ", "), pgx.Identifier{def.Table}.Sanitize())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", def.Table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", def.Table, err)
	}

	out := make([]Record, len(maps))
	for i, m := range maps {
		out[i] = Record(m)
	}
	return out, nil
}

// pgTx is one import transaction. Each insert runs under its own savepoint
// so a constraint violation discards only that row.
type pgTx struct {
	tx pgx.Tx
	sp int
}

func (t *pgTx) FindID(ctx context.Context, def *EntityDefinition, match Record) (int64, bool, error) {
	var (
		where []string
		args  []any
	)
	for _, col := range sortedColumns(match) {
		v := match[col]
		ident := pgx.Identifier{col}.Sanitize()
		switch {
		case v == nil:
			where = append(where, ident+" IS NULL")
		case def.IsTimeColumn(col):
			args = append(args, v)
			where = append(where, fmt.Sprintf("date_trunc('second', %s) = date_trunc('second', $%d::timestamptz)", ident, len(args)))
		default:
			args = append(args, v)
			where = append(where, fmt.Sprintf("%s = $%d", ident, len(args)))
		}
	}
	if len(where) == 0 {
		return 0, false, nil
	}

	query := fmt.Sprintf("SELECT id FROM %s WHERE %s ORDER BY id LIMIT 1",
		pgx.Identifier{def.Table}.Sanitize(), strings.Join(where, " AND "))

	var id int64
	err := t.tx.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find %s: %w", def.Table, err)
	}
	return id, true, nil
}

func (t *pgTx) Insert(ctx context.Context, def *EntityDefinition, rec Record) (int64, error) {
	var (
		cols   []string
		params []string
		args   []any
	)
	for _, col := range def.Columns() {
		v, ok := rec[col]
		if !ok || v == nil {
			// Omitted so column defaults apply.
			continue
		}
		args = append(args, v)
		cols = append(cols, pgx.Identifier{col}.Sanitize())
		params = append(params, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		pgx.Identifier{def.Table}.Sanitize(), strings.Join(cols, ", "), strings.Join(params, ", "))
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING id", pgx.Identifier{def.Table}.Sanitize())
	}

	t.sp++
	sp := fmt.Sprintf("sp_%d", t.sp)
	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
		return 0, fmt.Errorf("savepoint: %w", err)
	}

	var id int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if _, rbErr := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			return 0, fmt.Errorf("rollback to savepoint: %w (after %v)", rbErr, err)
		}
		if isRowConflict(err) {
			return 0, fmt.Errorf("%w: %s", ErrRowConflict, constraintDetail(err))
		}
		return 0, fmt.Errorf("insert %s: %w", def.Table, err)
	}

	if _, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
		return 0, fmt.Errorf("release savepoint: %w", err)
	}
	return id, nil
}

// isRowConflict reports integrity violations (class 23) and data exceptions
// (class 22) caused by the row itself.
func isRowConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "22")
}

func constraintDetail(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	if pgErr.ConstraintName != "" {
		return "violates " + pgErr.ConstraintName
	}
	return pgErr.Message
}
