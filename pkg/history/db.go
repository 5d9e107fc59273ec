// Package history stores completed assessments in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"solarassess/pkg/logx"
	"solarassess/pkg/workflow"
)

// CurrentSchemaVersion defines the current schema version for migration support.
const CurrentSchemaVersion = 2

const timeLayout = time.RFC3339Nano

// ErrNotFound is returned when a session has no history entry.
var ErrNotFound = errors.New("history entry not found")

// Entry is one recorded assessment.
type Entry struct {
	StartedAt          time.Time  `json:"startedAt"`
	CompletedAt        time.Time  `json:"completedAt"`
	SavingsAt          *time.Time `json:"savingsAt,omitempty"`
	SessionID          string     `json:"sessionId"`
	Address            string     `json:"address"`
	EnergyNeeds        string     `json:"energyNeeds"`
	SolarScore         string     `json:"solarScore"`
	ProposalSummary    string     `json:"proposalSummary"`
	SavingsInfographic bool       `json:"savingsInfographic"`
}

// Store implements workflow.HistorySink on top of SQLite.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
	now    func() time.Time
}

var _ workflow.HistorySink = (*Store)(nil)

// Open opens (creating if needed) the database at dbPath and migrates the schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{db: db, logger: logx.NewLogger("history"), now: time.Now}
	s.logger.Info("History database initialized: %s", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// AssessmentCompleted records a finished assessment. Re-recording a session replaces it.
func (s *Store) AssessmentCompleted(ctx context.Context, rec workflow.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assessments (session_id, address, energy_needs, solar_score, proposal_summary, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			address = excluded.address,
			energy_needs = excluded.energy_needs,
			solar_score = excluded.solar_score,
			proposal_summary = excluded.proposal_summary,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`, rec.SessionID, rec.Address, rec.EnergyNeeds, rec.SolarScore, rec.ProposalSummary,
		rec.StartedAt.UTC().Format(timeLayout), rec.CompletedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to record assessment %s: %w", rec.SessionID, err)
	}
	logx.Debug(ctx, "history", "recorded assessment %s score=%s", rec.SessionID, rec.SolarScore)
	return nil
}

// SavingsGenerated marks that the session produced a savings infographic.
func (s *Store) SavingsGenerated(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessments SET savings_at = ? WHERE session_id = ?`,
		s.now().UTC().Format(timeLayout), sessionID)
	if err != nil {
		return fmt.Errorf("failed to record savings for %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

// List returns the most recent entries, newest first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, address, energy_needs, solar_score, proposal_summary, started_at, completed_at, savings_at
		FROM assessments
		ORDER BY completed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// Get returns the entry for sessionID.
func (s *Store) Get(ctx context.Context, sessionID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, address, energy_needs, solar_score, proposal_summary, started_at, completed_at, savings_at
		FROM assessments WHERE session_id = ?
	`, sessionID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return entry, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                    Entry
		startedAt, completed string
		savingsAt            sql.NullString
	)
	if err := row.Scan(&e.SessionID, &e.Address, &e.EnergyNeeds, &e.SolarScore, &e.ProposalSummary,
		&startedAt, &completed, &savingsAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err //nolint:wrapcheck // sentinel checked by caller
		}
		return Entry{}, fmt.Errorf("failed to scan history entry: %w", err)
	}

	var err error
	if e.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return Entry{}, fmt.Errorf("invalid started_at: %w", err)
	}
	if e.CompletedAt, err = time.Parse(timeLayout, completed); err != nil {
		return Entry{}, fmt.Errorf("invalid completed_at: %w", err)
	}
	if savingsAt.Valid {
		t, err := time.Parse(timeLayout, savingsAt.String)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid savings_at: %w", err)
		}
		e.SavingsAt = &t
		e.SavingsInfographic = true
	}
	return e, nil
}
