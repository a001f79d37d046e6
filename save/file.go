package save

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FileGateway stores the save slot as a single JSON file.
type FileGateway struct {
	path       string
	staleAfter time.Duration
	log        *zap.Logger
	now        func() time.Time
}

var _ Gateway = (*FileGateway)(nil)

// NewFileGateway creates a file-backed gateway. staleAfter <= 0 uses
// the default threshold.
func NewFileGateway(path string, staleAfter time.Duration, log *zap.Logger) *FileGateway {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &FileGateway{path: path, staleAfter: staleAfter, log: log, now: time.Now}
}

// Save overwrites the slot file.
func (g *FileGateway) Save(rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(g.path, data, 0o644)
}

// Load reads the slot file. Any fault (missing file, bad JSON,
// missing fields, staleness) reads as absent.
func (g *FileGateway) Load() (Record, bool) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return Record{}, false
	}
	rec, ok := Decode(data)
	if !ok {
		g.log.Warn("discarding corrupt save record", zap.String("path", g.path))
		return Record{}, false
	}
	if Stale(rec, g.now(), g.staleAfter) {
		g.log.Info("discarding stale save record",
			zap.String("path", g.path), zap.Int64("timestamp", rec.Timestamp))
		return Record{}, false
	}
	return rec, true
}

// Clear removes the slot file.
func (g *FileGateway) Clear() error {
	err := os.Remove(g.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op for the file backend.
func (g *FileGateway) Close() error { return nil }
