package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bumpkit/sblp/internal/model"
	"github.com/bumpkit/sblp/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations. Each migration runs
// exactly once, tracked by the schema_version table.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS bumps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild TEXT NOT NULL,
	channel TEXT NOT NULL,
	user TEXT NOT NULL,
	amount INTEGER NOT NULL DEFAULT -1,
	origin TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bumps_created_at ON bumps(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bumps_channel ON bumps(channel, created_at DESC);
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Snowflakes are stored as text: sqlite INTEGER is signed 64-bit and the
// high bit of a uint64 id would wrap.
func (s *Store) RecordBump(ctx context.Context, rec model.BumpRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO bumps (guild, channel, user, amount, origin, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, formatID(rec.Guild), formatID(rec.Channel), formatID(rec.User), rec.Amount, rec.Origin, rec.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) RecentBumps(ctx context.Context, limit int) ([]model.BumpRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, guild, channel, user, amount, origin, created_at
FROM bumps
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.BumpRecord
	for rows.Next() {
		rec, err := scanBump(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) LastBump(ctx context.Context, channel uint64) (model.BumpRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, guild, channel, user, amount, origin, created_at
FROM bumps
WHERE channel = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`, formatID(channel))
	rec, err := scanBump(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BumpRecord{}, store.ErrNotFound
	}
	return rec, err
}

func (s *Store) Stats(ctx context.Context) (model.BumpStats, error) {
	var stats model.BumpStats
	var last sql.NullInt64
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(DISTINCT channel), MAX(created_at) FROM bumps
`)
	if err := row.Scan(&stats.Total, &stats.Channels, &last); err != nil {
		return model.BumpStats{}, err
	}
	if last.Valid {
		stats.LastBump = time.Unix(last.Int64, 0)
	}
	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBump(row scanner) (model.BumpRecord, error) {
	var rec model.BumpRecord
	var guild, channel, user string
	var origin sql.NullString
	var createdAt int64
	if err := row.Scan(&rec.ID, &guild, &channel, &user, &rec.Amount, &origin, &createdAt); err != nil {
		return model.BumpRecord{}, err
	}
	rec.Guild = parseID(guild)
	rec.Channel = parseID(channel)
	rec.User = parseID(user)
	rec.Origin = origin.String
	rec.CreatedAt = time.Unix(createdAt, 0)
	return rec, nil
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseID(s string) uint64 {
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}
