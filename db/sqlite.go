package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Prediction is one journaled outcome, accepted or rejected.
type Prediction struct {
	ID            int64           `json:"id"`
	RequestID     string          `json:"request_id"`
	Inputs        json.RawMessage `json:"inputs"`
	Label         string          `json:"res,omitempty"`
	Class         *int            `json:"class,omitempty"`
	Probabilities []float64       `json:"res_proba,omitempty"`
	ErrorMessage  string          `json:"error_msg,omitempty"`
	ModelType     string          `json:"model_type"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Store is an append-only sqlite journal of predictions.
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        inputs TEXT NOT NULL,
        label TEXT,
        class INTEGER,
        proba_no_fire REAL,
        proba_fire REAL,
        error_msg TEXT,
        model_type TEXT,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SavePrediction(ctx context.Context, p Prediction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	var probaNoFire, probaFire sql.NullFloat64
	if len(p.Probabilities) == 2 {
		probaNoFire = sql.NullFloat64{Float64: p.Probabilities[0], Valid: true}
		probaFire = sql.NullFloat64{Float64: p.Probabilities[1], Valid: true}
	}
	var class sql.NullInt64
	if p.Class != nil {
		class = sql.NullInt64{Int64: int64(*p.Class), Valid: true}
	}
	inputs := p.Inputs
	if len(inputs) == 0 {
		inputs = json.RawMessage("{}")
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions (request_id, inputs, label, class, proba_no_fire, proba_fire, error_msg, model_type, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RequestID, string(inputs), p.Label, class, probaNoFire, probaFire, p.ErrorMessage, p.ModelType, p.CreatedAt.UTC())
	return err
}

// RecentPredictions returns up to limit entries, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, request_id, inputs, label, class, proba_no_fire, proba_fire, error_msg, model_type, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make([]Prediction, 0)
	for rows.Next() {
		var p Prediction
		var inputs string
		var label, errorMsg, modelType sql.NullString
		var class sql.NullInt64
		var probaNoFire, probaFire sql.NullFloat64
		err := rows.Scan(&p.ID, &p.RequestID, &inputs, &label, &class, &probaNoFire, &probaFire, &errorMsg, &modelType, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		p.Inputs = json.RawMessage(inputs)
		p.Label = label.String
		p.ErrorMessage = errorMsg.String
		p.ModelType = modelType.String
		if class.Valid {
			c := int(class.Int64)
			p.Class = &c
		}
		if probaNoFire.Valid && probaFire.Valid {
			p.Probabilities = []float64{probaNoFire.Float64, probaFire.Float64}
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}
