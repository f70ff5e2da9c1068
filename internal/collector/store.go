// Package collector receives reports from the reporter and persists them.
package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/joe/dropsentry/internal/report"
	"github.com/joe/dropsentry/internal/walker"
)

// Exported constants.
const (
	MemoryPath = ":memory:"
)

// Exported variables.
var (
	ErrEmptyMessage   = errors.New("message carries no report")
	ErrReportNotFound = errors.New("report not found")
)

// Store persists received reports in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// StoredReport is a persisted report with its files.
type StoredReport struct {
	ID         string       `json:"id"`
	Kind       string       `json:"kind"`
	URL        string       `json:"url"`
	Title      string       `json:"title,omitempty"`
	Content    string       `json:"content,omitempty"`
	ReceivedAt time.Time    `json:"received_at"`
	Files      []StoredFile `json:"files,omitempty"`
}

// StoredFile is one parsed file record.
type StoredFile struct {
	Name       string `json:"name"`
	ModifiedMs int64  `json:"modified_ms"`
}

// Open opens (creating if needed) the database at dbPath and runs migrations.
// MemoryPath opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	dsn := MemoryPath

	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		dsn = dbPath + "?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, now: time.Now}

	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists msg and returns the stored report. File records are parsed
// into name and modification time; a malformed record rejects the message.
func (s *Store) Save(ctx context.Context, msg report.Message) (StoredReport, error) {
	stored, err := s.toStored(msg)
	if err != nil {
		return StoredReport{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StoredReport{}, fmt.Errorf("begin: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, kind, url, title, content, received_at) VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Kind, stored.URL, stored.Title, stored.Content, stored.ReceivedAt,
	)
	if err != nil {
		return StoredReport{}, fmt.Errorf("insert report: %w", err)
	}

	for i, f := range stored.Files {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO report_files (report_id, position, name, modified_ms) VALUES (?, ?, ?, ?)`,
			stored.ID, i, f.Name, f.ModifiedMs,
		)
		if err != nil {
			return StoredReport{}, fmt.Errorf("insert file %q: %w", f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return StoredReport{}, fmt.Errorf("commit: %w", err)
	}

	return stored, nil
}

// Get returns the report with id.
func (s *Store) Get(ctx context.Context, id string) (StoredReport, error) {
	var r StoredReport

	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, url, title, content, received_at FROM reports WHERE id = ?`, id,
	).Scan(&r.ID, &r.Kind, &r.URL, &r.Title, &r.Content, &r.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredReport{}, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}

	if err != nil {
		return StoredReport{}, fmt.Errorf("query report: %w", err)
	}

	files, err := s.files(ctx, id)
	if err != nil {
		return StoredReport{}, err
	}

	r.Files = files

	return r, nil
}

// Recent returns up to limit reports, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]StoredReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, url, title, content, received_at FROM reports ORDER BY received_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []StoredReport

	for rows.Next() {
		var r StoredReport
		if err := rows.Scan(&r.ID, &r.Kind, &r.URL, &r.Title, &r.Content, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}

		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}

	for i := range reports {
		files, err := s.files(ctx, reports[i].ID)
		if err != nil {
			return nil, err
		}

		reports[i].Files = files
	}

	return reports, nil
}

func (s *Store) files(ctx context.Context, id string) ([]StoredFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, modified_ms FROM report_files WHERE report_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []StoredFile

	for rows.Next() {
		var f StoredFile
		if err := rows.Scan(&f.Name, &f.ModifiedMs); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}

		files = append(files, f)
	}

	return files, rows.Err()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			received_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS report_files (
			report_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			modified_ms INTEGER NOT NULL,
			PRIMARY KEY (report_id, position),
			FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_received_at ON reports(received_at)`,
		`CREATE INDEX IF NOT EXISTS idx_report_files_name ON report_files(name)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

func (s *Store) toStored(msg report.Message) (StoredReport, error) {
	stored := StoredReport{
		ID:         uuid.New().String(),
		Kind:       msg.Kind(),
		ReceivedAt: s.now().UTC(),
	}

	switch {
	case msg.FileUpload != nil:
		stored.URL = msg.FileUpload.URL

		for _, record := range msg.FileUpload.Files {
			name, millis, err := walker.ParseRecord(record)
			if err != nil {
				return StoredReport{}, err
			}

			stored.Files = append(stored.Files, StoredFile{Name: name, ModifiedMs: millis})
		}
	case msg.PrintOperation != nil:
		stored.URL = msg.PrintOperation.URL
		stored.Title = msg.PrintOperation.TabTitle
		stored.Content = msg.PrintOperation.PrintContent
	default:
		return StoredReport{}, ErrEmptyMessage
	}

	return stored, nil
}
