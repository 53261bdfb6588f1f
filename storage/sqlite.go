package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"padwatch/models"
)

// SQLiteStore is the local operational store: the command queue, per-run
// summaries, and per-source fetch stats. Domain data lives in Postgres.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS run_summaries (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		stats JSON
	);

	CREATE TABLE IF NOT EXISTS source_stats (
		source_id TEXT PRIMARY KEY,
		last_fetch_at DATETIME,
		last_fetch_status TEXT,
		total_listings INTEGER DEFAULT 0,
		total_fetches INTEGER DEFAULT 0,
		total_failures INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS op_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		alert_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_summaries_started ON run_summaries(started_at);
	CREATE INDEX IF NOT EXISTS idx_op_logs_run ON op_logs(run_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error {
	var paramsJSON []byte
	if params != nil {
		paramsJSON, _ = json.Marshal(params)
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params) VALUES (?, ?)`, cmd, paramsJSON)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// SaveRunSummary mirrors a finished check run locally so the daemon's
// recent history survives without a Postgres round trip.
func (s *SQLiteStore) SaveRunSummary(runID int64, startedAt time.Time, finishedAt *time.Time, status models.RunStatus, stats json.RawMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO run_summaries (run_id, started_at, finished_at, status, stats)
		VALUES (?, ?, ?, ?, ?)`,
		runID, startedAt, finishedAt, status, string(stats))
	return err
}

func (s *SQLiteStore) GetLastRunTime() (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRow(`
		SELECT started_at FROM run_summaries ORDER BY started_at DESC LIMIT 1`).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return lastRun, err
}

func (s *SQLiteStore) RecordSourceFetch(sourceID string, listings int, fetchErr error) error {
	status := "ok"
	failures := 0
	if fetchErr != nil {
		status = "failed"
		failures = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO source_stats (source_id, last_fetch_at, last_fetch_status, total_listings, total_fetches, total_failures)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			last_fetch_at = excluded.last_fetch_at,
			last_fetch_status = excluded.last_fetch_status,
			total_listings = total_listings + excluded.total_listings,
			total_fetches = total_fetches + 1,
			total_failures = total_failures + excluded.total_failures`,
		sourceID, time.Now(), status, listings, failures)
	return err
}

func (s *SQLiteStore) GetSourceFailureRate(sourceID string) (float64, error) {
	var fetches, failures int
	err := s.db.QueryRow(`
		SELECT total_fetches, total_failures FROM source_stats WHERE source_id = ?`,
		sourceID).Scan(&fetches, &failures)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if fetches == 0 {
		return 0, nil
	}
	return float64(failures) / float64(fetches), nil
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, alertID string) error {
	_, err := s.db.Exec(`
		INSERT INTO op_logs (run_id, timestamp, level, message, alert_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, alertID)
	return err
}

// PruneLogs keeps the operational log table bounded.
func (s *SQLiteStore) PruneLogs(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.Exec(`DELETE FROM op_logs WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ResetAllData clears all SQLite operational tables
func (s *SQLiteStore) ResetAllData() error {
	tables := []string{
		"op_logs",
		"run_summaries",
		"source_stats",
		"commands",
	}

	for _, table := range tables {
		_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	return nil
}
