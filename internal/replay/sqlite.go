package replay

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteGuard is a Guard persisted to a local SQLite database, so a
// restart within the retention window cannot re-admit an already
// consumed nonce. The pure-Go driver keeps the binary cgo-free.
type SQLiteGuard struct {
	db   *sql.DB
	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

// NewSQLiteGuard opens (or creates) the database at path and prepares
// the nonce table.
func NewSQLiteGuard(path string, ttl time.Duration) (*SQLiteGuard, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// A single writer sidesteps SQLITE_BUSY under concurrent admissions.
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS nonces (
		nonce TEXT PRIMARY KEY,
		first_seen INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create nonce table: %w", err)
	}

	g := &SQLiteGuard{db: db, ttl: ttl, done: make(chan struct{})}
	go g.sweep()
	return g, nil
}

// Admit implements Guard. The INSERT's primary-key conflict is the
// serialization point: exactly one insert per nonce succeeds.
func (g *SQLiteGuard) Admit(ctx context.Context, nonce string) (bool, error) {
	now := time.Now()
	res, err := g.db.ExecContext(ctx,
		`INSERT INTO nonces(nonce, first_seen, expires_at) VALUES(?, ?, ?)
		 ON CONFLICT(nonce) DO NOTHING`,
		nonce, now.Unix(), now.Add(g.ttl).Unix())
	if err != nil {
		return false, fmt.Errorf("replay guard unavailable: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("replay guard unavailable: %w", err)
	}
	return n == 1, nil
}

func (g *SQLiteGuard) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case now := <-ticker.C:
			if _, err := g.db.Exec(`DELETE FROM nonces WHERE expires_at < ?`, now.Unix()); err != nil {
				continue
			}
		}
	}
}

// Close stops the sweeper and closes the database.
func (g *SQLiteGuard) Close() error {
	g.once.Do(func() { close(g.done) })
	return g.db.Close()
}
