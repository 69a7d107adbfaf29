package logdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/logdb/migrations"
	"bkpt-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteLog implements the ckpt.Log interface using SQLite. One
// database file per repository. Published checkpoints are immutable:
// the log only ever appends, and each append is a single transaction,
// so lock-free readers always observe fully-published checkpoints.
type SQLiteLog struct {
	db   *sql.DB
	path string
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the log relies on. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys are OFF by default in SQLite; checkpoint_files rows
	// must cascade with their checkpoint.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// Let concurrent readers wait out a writer instead of failing.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// A :memory: database exists per connection; keep the pool at one so
	// every query sees the same schema.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// New opens (and migrates) the checkpoint log at path.
func New(path string) (*SQLiteLog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating checkpoint log: %w", err)
	}

	return &SQLiteLog{db: db, path: path}, nil
}

// NewFromDB wraps an existing database connection. The caller is
// responsible for the connection's configuration and lifecycle.
func NewFromDB(db *sql.DB) *SQLiteLog {
	return &SQLiteLog{db: db}
}

// SetBook records the repository's display metadata. Called once at
// repository creation; later calls refresh the metadata.
func (l *SQLiteLog) SetBook(ctx context.Context, book model.BookIdentity) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO repository (id, book_uuid, title, source_path, format_version, created_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			book_uuid = excluded.book_uuid,
			title = excluded.title,
			source_path = excluded.source_path,
			format_version = excluded.format_version`,
		book.UUID, book.Title, book.SourcePath, book.FormatVersion)
	if err != nil {
		return fmt.Errorf("recording book metadata: %w", err)
	}
	return nil
}

// Book returns the repository's display metadata. A repository created
// before any metadata was recorded yields the zero identity.
func (l *SQLiteLog) Book(ctx context.Context) (model.BookIdentity, error) {
	var book model.BookIdentity
	err := l.db.QueryRowContext(ctx, `
		SELECT book_uuid, title, source_path, format_version
		FROM repository WHERE id = 1`).
		Scan(&book.UUID, &book.Title, &book.SourcePath, &book.FormatVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BookIdentity{}, nil
		}
		return model.BookIdentity{}, fmt.Errorf("reading book metadata: %w", err)
	}
	return book, nil
}

// List returns all checkpoint summaries in ascending index order.
func (l *SQLiteLog) List(ctx context.Context) ([]model.CheckpointSummary, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT c.idx, c.created_at, c.description,
		       (SELECT COUNT(*) FROM checkpoint_files f WHERE f.checkpoint_idx = c.idx)
		FROM checkpoints c ORDER BY c.idx ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var summaries []model.CheckpointSummary
	for rows.Next() {
		var s model.CheckpointSummary
		if err := rows.Scan(&s.Index, &s.CreatedAt, &s.Description, &s.FileCount); err != nil {
			return nil, fmt.Errorf("scanning checkpoint summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	return summaries, nil
}

// Get returns the full checkpoint for index.
func (l *SQLiteLog) Get(ctx context.Context, index int64) (*model.Checkpoint, error) {
	cp := &model.Checkpoint{Index: index}
	err := l.db.QueryRowContext(ctx, `
		SELECT created_at, description, book_uuid, title, format_version
		FROM checkpoints WHERE idx = ?`, index).
		Scan(&cp.CreatedAt, &cp.Description, &cp.Book.UUID, &cp.Book.Title, &cp.Book.FormatVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: index %d", ckpt.ErrCheckpointNotFound, index)
		}
		return nil, fmt.Errorf("reading checkpoint %d: %w", index, err)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT path, checksum, size, kind
		FROM checkpoint_files WHERE checkpoint_idx = ? ORDER BY path ASC`, index)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %d files: %w", index, err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.FileEntry
		var kind int
		if err := rows.Scan(&entry.Path, &entry.Ref.Checksum, &entry.Ref.Size, &kind); err != nil {
			return nil, fmt.Errorf("scanning checkpoint file: %w", err)
		}
		entry.Kind = model.FileKind(kind)
		cp.Files = append(cp.Files, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading checkpoint %d files: %w", index, err)
	}

	return cp, nil
}

// Append publishes a new checkpoint in a single transaction. The index
// is assigned inside the transaction, so concurrent appends (already
// serialized by the repository lock) can never collide or leave gaps.
func (l *SQLiteLog) Append(ctx context.Context, cp *model.Checkpoint) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var maxIndex sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(idx) FROM checkpoints`).Scan(&maxIndex); err != nil {
		return 0, fmt.Errorf("reading max index: %w", err)
	}
	index := maxIndex.Int64 + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (idx, created_at, description, book_uuid, title, format_version)
		VALUES (?, ?, ?, ?, ?, ?)`,
		index, cp.CreatedAt, cp.Description, cp.Book.UUID, cp.Book.Title, cp.Book.FormatVersion)
	if err != nil {
		return 0, fmt.Errorf("inserting checkpoint: %w", err)
	}

	for _, f := range cp.Files {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO checkpoint_files (checkpoint_idx, path, checksum, size, kind)
			VALUES (?, ?, ?, ?, ?)`,
			index, f.Path, f.Ref.Checksum, f.Ref.Size, int(f.Kind))
		if err != nil {
			return 0, fmt.Errorf("inserting checkpoint file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing checkpoint: %w", err)
	}

	cp.Index = index
	return index, nil
}

// Count returns the number of published checkpoints.
func (l *SQLiteLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting checkpoints: %w", err)
	}
	return n, nil
}

// Path returns the database file path (or "" for wrapped connections).
func (l *SQLiteLog) Path() string {
	return l.path
}

// CheckMigrations verifies the log schema is up-to-date.
func (l *SQLiteLog) CheckMigrations() error {
	return migrations.CheckStatus(l.db)
}

// Close closes the database connection.
func (l *SQLiteLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteLog implements ckpt.Log
var _ ckpt.Log = (*SQLiteLog)(nil)
