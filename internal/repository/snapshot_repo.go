package repository

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShadowTable is the side table a snapshot is bulk-loaded into before it
// replaces LiveTable.
const ShadowTable = "sponsorTimesTemp"

// SnapshotRepo hot-swaps a CSV snapshot into the live table.
//
// The swap is table-rename based: the new table is cloned from the live
// one, filled, and renamed over it inside a single transaction. Readers
// that start between the DROP and the RENAME on a visibility context other
// than the importing transaction's can briefly find no table at all; that
// window is accepted.
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Import replaces the live table's contents with the rows of the CSV file at
// path. The file must carry a header row and list columns in the live
// table's order. On any error the transaction is rolled back and the live
// table is left untouched. It returns the number of rows loaded.
func (r *SnapshotRepo) Import(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return r.ImportFrom(ctx, f)
}

// ImportFrom is Import over an arbitrary CSV stream.
func (r *SnapshotRepo) ImportFrom(ctx context.Context, src io.Reader) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+quote(ShadowTable)); err != nil {
		return 0, fmt.Errorf("drop leftover shadow table: %w", err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(
		`CREATE UNLOGGED TABLE %s (LIKE %s INCLUDING DEFAULTS INCLUDING CONSTRAINTS INCLUDING INDEXES)`,
		quote(ShadowTable), quote(LiveTable)))
	if err != nil {
		return 0, fmt.Errorf("create shadow table: %w", err)
	}

	rows, err := copyCSV(ctx, tx, src)
	if err != nil {
		return 0, fmt.Errorf("bulk load snapshot: %w", err)
	}

	if _, err := tx.Exec(ctx, `DROP TABLE `+quote(LiveTable)); err != nil {
		return 0, fmt.Errorf("drop live table: %w", err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, quote(ShadowTable), quote(LiveTable)))
	if err != nil {
		return 0, fmt.Errorf("rename shadow table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return rows, nil
}

// Vacuum compacts and re-analyzes the live table. It must run outside a
// transaction.
func (r *SnapshotRepo) Vacuum(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `VACUUM ANALYZE `+quote(LiveTable))
	return err
}

// copyCSV streams src into the shadow table over the transaction's
// connection.
func copyCSV(ctx context.Context, tx pgx.Tx, src io.Reader) (int64, error) {
	stmt := fmt.Sprintf(`COPY %s FROM STDIN WITH (FORMAT csv, HEADER true, DELIMITER ',')`, quote(ShadowTable))
	tag, err := tx.Conn().PgConn().CopyFrom(ctx, src, stmt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}
