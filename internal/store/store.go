package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Record is one completed wrap or unwrap, kept for audit.
type Record struct {
	RecordID   string `json:"record_id"`
	Kind       string `json:"kind"`
	Account    string `json:"account"`
	TxHash     string `json:"tx_hash"`
	Amount     string `json:"amount"`
	Repetition int    `json:"repetition"`
	CreatedAt  string `json:"created_at"`
}

func NewRecordID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "txn-unknown"
	}
	return fmt.Sprintf("txn_%s", hex.EncodeToString(b))
}

// Store is a sqlite-backed outcome journal guarded by a file lock so a second
// process cannot corrupt it.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS outcomes (
			record_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			account TEXT NOT NULL,
			tx_hash TEXT NOT NULL,
			repetition INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_outcomes_created ON outcomes(created_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(rec Record) error {
	if strings.TrimSpace(rec.RecordID) == "" {
		rec.RecordID = NewRecordID()
	}
	if strings.TrimSpace(rec.CreatedAt) == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock journal: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	createdUnix := time.Now().UTC().Unix()
	if t, err := time.Parse(time.RFC3339, rec.CreatedAt); err == nil {
		createdUnix = t.UTC().Unix()
	}

	_, err = s.db.Exec(`
		INSERT INTO outcomes (record_id, kind, account, tx_hash, repetition, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.RecordID, rec.Kind, rec.Account, rec.TxHash, rec.Repetition, createdUnix, payload)
	if err != nil {
		return fmt.Errorf("save outcome: %w", err)
	}
	return nil
}

// List returns the most recent outcomes, newest first.
func (s *Store) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query("SELECT payload FROM outcomes ORDER BY created_at DESC, record_id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode outcome payload: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}
	return records, nil
}

// DefaultPaths places the journal under the user cache directory.
func DefaultPaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "wrapcycle")
	return filepath.Join(dir, "outcomes.db"), filepath.Join(dir, "outcomes.lock"), nil
}
