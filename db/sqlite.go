// Package db stores the labeled URL dataset and training history used by the
// offline trainer. The serving path never touches it.
package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB opens (or creates) the SQLite database at path.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS samples (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        url TEXT NOT NULL,
        label INTEGER NOT NULL,
        source TEXT,
        added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE(url)
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        accuracy REAL,
        precision REAL,
        recall REAL,
        trained_at DATETIME,
        data_points INTEGER
    );`
	_, err = database.Exec(query)
	return err
}

// Close closes the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// Sample is one labeled URL. Label is 1 for phishing, 0 for safe.
type Sample struct {
	URL     string
	Label   int
	Source  string
	AddedAt time.Time
}

// SaveSample inserts a labeled URL, ignoring duplicates.
func SaveSample(url string, label int, source string) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if url == "" {
		return errors.New("url is empty")
	}
	if label != 0 && label != 1 {
		return errors.New("label must be 0 or 1")
	}
	_, err := database.Exec(
		`INSERT OR IGNORE INTO samples (url, label, source) VALUES (?, ?, ?)`,
		url, label, source,
	)
	return err
}

// QuerySamples returns up to limit samples in insertion order. A limit of 0
// or less returns everything.
func QuerySamples(limit int) ([]Sample, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}

	query := `SELECT url, label, COALESCE(source, ''), added_at FROM samples ORDER BY id`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = database.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = database.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.URL, &s.Label, &s.Source, &s.AddedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// CountSamples returns the dataset size.
func CountSamples() (int, error) {
	if database == nil {
		return 0, errors.New("database not initialized")
	}
	var count int
	err := database.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&count)
	return count, err
}

// TrainingRun records one offline training pass.
type TrainingRun struct {
	ModelName  string
	Accuracy   float64
	Precision  float64
	Recall     float64
	DataPoints int
}

// SaveTrainingRun appends a row to the training log.
func SaveTrainingRun(run TrainingRun) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(
		`INSERT INTO training_log (model_name, accuracy, precision, recall, trained_at, data_points)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ModelName, run.Accuracy, run.Precision, run.Recall, time.Now(), run.DataPoints,
	)
	return err
}
