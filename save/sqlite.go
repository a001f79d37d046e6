package save

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteGateway stores the save slot as a single row in SQLite.
type SQLiteGateway struct {
	db         *sql.DB
	slot       string
	staleAfter time.Duration
	log        *zap.Logger
	now        func() time.Time
}

var _ Gateway = (*SQLiteGateway)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS saves (
	slot       TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// OpenSQLite opens (creating if needed) the SQLite save store at
// path. slot == "" uses DefaultSlot; staleAfter <= 0 uses the default
// threshold.
func OpenSQLite(path, slot string, staleAfter time.Duration, log *zap.Logger) (*SQLiteGateway, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("save db path is required")
	}
	if slot == "" {
		slot = DefaultSlot
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open save db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping save db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create saves table: %w", err)
	}
	return &SQLiteGateway{db: db, slot: slot, staleAfter: staleAfter, log: log, now: time.Now}, nil
}

// Save overwrites the slot row.
func (g *SQLiteGateway) Save(rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	_, err = g.db.Exec(`
		INSERT INTO saves (slot, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		g.slot, string(data), g.now().Unix())
	if err != nil {
		return fmt.Errorf("write save slot %q: %w", g.slot, err)
	}
	return nil
}

// Load reads the slot row. Any fault reads as absent.
func (g *SQLiteGateway) Load() (Record, bool) {
	var data string
	err := g.db.QueryRow(`SELECT record FROM saves WHERE slot = ?`, g.slot).Scan(&data)
	if err == sql.ErrNoRows {
		return Record{}, false
	}
	if err != nil {
		g.log.Warn("save slot read failed", zap.String("slot", g.slot), zap.Error(err))
		return Record{}, false
	}
	rec, ok := Decode([]byte(data))
	if !ok {
		g.log.Warn("discarding corrupt save record", zap.String("slot", g.slot))
		return Record{}, false
	}
	if Stale(rec, g.now(), g.staleAfter) {
		g.log.Info("discarding stale save record",
			zap.String("slot", g.slot), zap.Int64("timestamp", rec.Timestamp))
		return Record{}, false
	}
	return rec, true
}

// Clear empties the slot.
func (g *SQLiteGateway) Clear() error {
	_, err := g.db.Exec(`DELETE FROM saves WHERE slot = ?`, g.slot)
	return err
}

// Close closes the database handle.
func (g *SQLiteGateway) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}
