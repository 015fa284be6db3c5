package constitution

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
	"github.com/HendryAvila/sdd-engine/internal/slug"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// RunRecord is one row of check history.
type RunRecord struct {
	ID                    int64     `json:"id"`
	FeatureID             string    `json:"featureId"`
	CheckedAt             time.Time `json:"checkedAt"`
	FilesChecked          int       `json:"filesChecked"`
	TotalViolations       int       `json:"totalViolations"`
	ShouldBlock           bool      `json:"shouldBlock"`
	RequiresPhaseMinusOne bool      `json:"requiresPhaseMinusOne"`
}

// SQLiteResultStore keeps every check run, so Load returns the latest one
// and History lists earlier runs.
type SQLiteResultStore struct {
	db *sql.DB
}

// OpenSQLiteResultStore opens (creating if needed) the database at path.
func OpenSQLiteResultStore(path string) (*SQLiteResultStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, sdderr.Persistence("create history dir", err)
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, sdderr.Persistence("open history database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, sdderr.Persistence(fmt.Sprintf("pragma %q", p), err)
		}
	}

	s := &SQLiteResultStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, sdderr.Persistence("migrate history database", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteResultStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS check_runs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			feature_key      TEXT    NOT NULL,
			feature_id       TEXT    NOT NULL,
			checked_at       TEXT    NOT NULL,
			files_checked    INTEGER NOT NULL,
			total_violations INTEGER NOT NULL,
			should_block     INTEGER NOT NULL,
			phase_minus_one  INTEGER NOT NULL,
			result           TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_check_runs_feature ON check_runs(feature_key, id);
	`)
	return err
}

// Save appends r to the feature's history.
func (s *SQLiteResultStore) Save(featureID string, r *CheckResult) error {
	if r == nil {
		return sdderr.Invalid("check result is required")
	}
	key, err := slug.Key(featureID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return sdderr.Persistence("encode check result", err)
	}
	d := ShouldBlockMerge(r)
	_, err = s.db.Exec(
		`INSERT INTO check_runs
			(feature_key, feature_id, checked_at, files_checked, total_violations, should_block, phase_minus_one, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key, featureID, r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.Summary.FilesChecked, r.Summary.TotalViolations,
		boolInt(d.ShouldBlock), boolInt(d.RequiresPhaseMinusOne), string(data),
	)
	return sdderr.Persistence("insert check run", err)
}

// Load returns the most recent run for featureID, or nil.
func (s *SQLiteResultStore) Load(featureID string) (*CheckResult, error) {
	key, err := slug.Key(featureID)
	if err != nil {
		return nil, err
	}
	var data string
	err = s.db.QueryRow(
		`SELECT result FROM check_runs WHERE feature_key = ? ORDER BY id DESC LIMIT 1`, key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, sdderr.Persistence("query check run", err)
	}
	var r CheckResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, sdderr.Persistence("decode check run", err)
	}
	return &r, nil
}

// History lists up to limit runs for featureID, newest first. A limit
// below 1 means 20.
func (s *SQLiteResultStore) History(featureID string, limit int) ([]RunRecord, error) {
	key, err := slug.Key(featureID)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, feature_id, checked_at, files_checked, total_violations, should_block, phase_minus_one
		 FROM check_runs WHERE feature_key = ? ORDER BY id DESC LIMIT ?`, key, limit,
	)
	if err != nil {
		return nil, sdderr.Persistence("query check history", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec          RunRecord
			checkedAt    string
			block, phase int
		)
		if err := rows.Scan(&rec.ID, &rec.FeatureID, &checkedAt, &rec.FilesChecked,
			&rec.TotalViolations, &block, &phase); err != nil {
			return nil, sdderr.Persistence("scan check history", err)
		}
		rec.CheckedAt, _ = time.Parse(time.RFC3339Nano, checkedAt)
		rec.ShouldBlock = block != 0
		rec.RequiresPhaseMinusOne = phase != 0
		out = append(out, rec)
	}
	return out, sdderr.Persistence("iterate check history", rows.Err())
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// MultiResultStore saves to every store and loads from the first one.
type MultiResultStore []ResultStore

// Save writes r to each store, stopping at the first failure.
func (m MultiResultStore) Save(featureID string, r *CheckResult) error {
	for _, s := range m {
		if err := s.Save(featureID, r); err != nil {
			return err
		}
	}
	return nil
}

// Load reads from the first store.
func (m MultiResultStore) Load(featureID string) (*CheckResult, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].Load(featureID)
}
