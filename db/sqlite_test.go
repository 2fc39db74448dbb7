package db

import (
	"path/filepath"
	"testing"
)

func setupDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := InitDB(path); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestSaveAndQuerySamples(t *testing.T) {
	setupDB(t)

	if err := SaveSample("https://www.google.com", 0, "seed"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := SaveSample("http://phish.example.net/login", 1, "seed"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	// Duplicate URLs are ignored.
	if err := SaveSample("https://www.google.com", 0, "seed"); err != nil {
		t.Fatalf("duplicate save failed: %v", err)
	}

	count, err := CountSamples()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 samples, got %d", count)
	}

	samples, err := QuerySamples(0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].URL != "https://www.google.com" || samples[0].Label != 0 {
		t.Fatalf("unexpected first sample: %+v", samples[0])
	}
	if samples[1].Label != 1 {
		t.Fatalf("unexpected second sample: %+v", samples[1])
	}
}

func TestSaveSampleValidation(t *testing.T) {
	setupDB(t)

	if err := SaveSample("", 0, "seed"); err == nil {
		t.Fatal("expected error for empty url")
	}
	if err := SaveSample("https://a.com", 7, "seed"); err == nil {
		t.Fatal("expected error for non-binary label")
	}
}

func TestSaveTrainingRun(t *testing.T) {
	setupDB(t)

	run := TrainingRun{
		ModelName:  "gbt",
		Accuracy:   0.97,
		Precision:  0.95,
		Recall:     0.94,
		DataPoints: 1000,
	}
	if err := SaveTrainingRun(run); err != nil {
		t.Fatalf("save training run failed: %v", err)
	}
}

func TestUninitialized(t *testing.T) {
	Close()
	if err := SaveSample("https://a.com", 0, ""); err == nil {
		t.Fatal("expected error when database not initialized")
	}
	if _, err := QuerySamples(0); err == nil {
		t.Fatal("expected error when database not initialized")
	}
}
