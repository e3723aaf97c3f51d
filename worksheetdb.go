package exercisegen

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB stores finished worksheets and their validation reports
type DB struct {
	db *sql.DB
}

// OpenDB opens a worksheet database connection
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db}, nil
}

// CloseDB closes the database connection
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS worksheets (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			grade INTEGER NOT NULL,
			topic TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'generating'
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			worksheet_id TEXT NOT NULL,
			item_num INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (worksheet_id, item_num),
			FOREIGN KEY (worksheet_id) REFERENCES worksheets(id)
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			worksheet_id TEXT PRIMARY KEY,
			valid INTEGER NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (worksheet_id) REFERENCES worksheets(id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// CreateWorksheet inserts a new worksheet record
func (db *DB) CreateWorksheet(w *Worksheet) error {
	_, err := db.db.Exec(
		"INSERT INTO worksheets (id, subject, grade, topic, difficulty, created_at, status) VALUES (?, ?, ?, ?, ?, ?, ?)",
		w.ID, string(w.Context.Subject), w.Context.Grade, w.Context.Topic, w.Context.Difficulty, w.CreatedAt, string(w.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create worksheet: %w", err)
	}
	return nil
}

// UpdateWorksheetStatus moves a worksheet through the async flow
func (db *DB) UpdateWorksheetStatus(id string, status WorksheetStatus) error {
	_, err := db.db.Exec("UPDATE worksheets SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update worksheet status: %w", err)
	}
	return nil
}

// SaveItems stores the final item list of a worksheet, replacing any
// previously stored items
func (db *DB) SaveItems(worksheetID string, items []GeneratedItem) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM items WHERE worksheet_id = ?", worksheetID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	for i, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item %d: %w", i, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO items (worksheet_id, item_num, payload) VALUES (?, ?, ?)",
			worksheetID, i, string(payload),
		); err != nil {
			return fmt.Errorf("failed to save item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}
	return nil
}

// SaveReport stores the validation report of a worksheet
func (db *DB) SaveReport(worksheetID string, report *ValidationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	valid := 0
	if report.Valid {
		valid = 1
	}

	_, err = db.db.Exec(
		"INSERT OR REPLACE INTO reports (worksheet_id, valid, payload, created_at) VALUES (?, ?, ?, ?)",
		worksheetID, valid, string(payload), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetWorksheet retrieves a worksheet with its items
func (db *DB) GetWorksheet(id string) (*Worksheet, error) {
	var w Worksheet
	var subject, status string
	err := db.db.QueryRow(
		"SELECT id, subject, grade, topic, difficulty, created_at, status FROM worksheets WHERE id = ?",
		id,
	).Scan(&w.ID, &subject, &w.Context.Grade, &w.Context.Topic, &w.Context.Difficulty, &w.CreatedAt, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("worksheet not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get worksheet: %w", err)
	}
	w.Context.Subject = Subject(subject)
	w.Status = WorksheetStatus(status)

	rows, err := db.db.Query(
		"SELECT payload FROM items WHERE worksheet_id = ? ORDER BY item_num",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		var item GeneratedItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		w.Items = append(w.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}

	return &w, nil
}

// GetWorksheets lists worksheets newest first; limit 0 means all
func (db *DB) GetWorksheets(limit int) ([]Worksheet, error) {
	query := "SELECT id, subject, grade, topic, difficulty, created_at, status FROM worksheets ORDER BY created_at DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list worksheets: %w", err)
	}
	defer rows.Close()

	var worksheets []Worksheet
	for rows.Next() {
		var w Worksheet
		var subject, status string
		if err := rows.Scan(&w.ID, &subject, &w.Context.Grade, &w.Context.Topic, &w.Context.Difficulty, &w.CreatedAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan worksheet: %w", err)
		}
		w.Context.Subject = Subject(subject)
		w.Status = WorksheetStatus(status)
		worksheets = append(worksheets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read worksheets: %w", err)
	}

	return worksheets, nil
}

// GetReport retrieves the stored validation report for a worksheet
func (db *DB) GetReport(worksheetID string) (*ValidationReport, error) {
	var payload string
	err := db.db.QueryRow(
		"SELECT payload FROM reports WHERE worksheet_id = ?",
		worksheetID,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report not found for worksheet: %s", worksheetID)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report ValidationReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
