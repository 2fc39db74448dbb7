package ml

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// syntheticDataset builds a linearly separable 15-dimensional dataset where
// the last two features carry the signal, mimicking has_https/has_ip.
func syntheticDataset() ([][]float64, []int) {
	features := make([][]float64, 0, 200)
	labels := make([]int, 0, 200)
	for i := 0; i < 100; i++ {
		safe := make([]float64, 15)
		safe[0] = 20 + float64(i%10)
		safe[13] = 1 // https
		features = append(features, safe)
		labels = append(labels, 0)

		phish := make([]float64, 15)
		phish[0] = 70 + float64(i%10)
		phish[7] = 5 // dashes
		phish[14] = 1
		features = append(features, phish)
		labels = append(labels, 1)
	}
	return features, labels
}

func TestGBTTrainAndPredict(t *testing.T) {
	features, labels := syntheticDataset()
	model := NewGBTClassifier(30, 3, 0.2)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}

	for i, row := range features {
		p, err := model.PredictProba(row)
		if err != nil {
			t.Fatalf("unexpected predict error: %v", err)
		}
		if p < 0 || p > 1 {
			t.Fatalf("probability out of range: %v", p)
		}
		if labels[i] == 1 && p < 0.5 {
			t.Fatalf("phishing sample %d scored %v", i, p)
		}
		if labels[i] == 0 && p >= 0.5 {
			t.Fatalf("safe sample %d scored %v", i, p)
		}
	}
}

func TestGBTSaveLoadRoundTrip(t *testing.T) {
	features, labels := syntheticDataset()
	model := NewGBTClassifier(10, 3, 0.2)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "gbt.model")
	if err := model.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := &GBTClassifier{}
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.FeatureCount() != 15 {
		t.Fatalf("expected feature count 15, got %d", loaded.FeatureCount())
	}

	for _, row := range features[:10] {
		want, err := model.PredictProba(row)
		if err != nil {
			t.Fatalf("unexpected predict error: %v", err)
		}
		got, err := loaded.PredictProba(row)
		if err != nil {
			t.Fatalf("unexpected predict error: %v", err)
		}
		if math.Abs(want-got) > 1e-12 {
			t.Fatalf("prediction drift after reload: %v vs %v", want, got)
		}
	}
}

func TestGBTTrainValidation(t *testing.T) {
	model := NewGBTClassifier(10, 3, 0.1)
	if err := model.Train(nil, nil); err == nil {
		t.Fatal("expected error for empty dataset")
	}
	if err := model.Train([][]float64{{1}}, []int{0, 1}); err == nil {
		t.Fatal("expected error for size mismatch")
	}
	if err := model.Train([][]float64{{1}, {2}}, []int{0, 3}); err == nil {
		t.Fatal("expected error for non-binary label")
	}
}

func TestGBTPredictBeforeTrain(t *testing.T) {
	model := &GBTClassifier{}
	if _, err := model.PredictProba(make([]float64, 15)); err == nil {
		t.Fatal("expected error for untrained model")
	}
}

func TestGBTFeatureLengthMismatch(t *testing.T) {
	features, labels := syntheticDataset()
	model := NewGBTClassifier(5, 2, 0.2)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected train error: %v", err)
	}
	if _, err := model.PredictProba([]float64{1, 2}); err == nil {
		t.Fatal("expected error for short feature vector")
	}
}

func TestGBTLoadRejectsCorruptArtifact(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{
			"empty tree",
			`{"base_score":0,"learning_rate":0.1,"feature_count":15,"trees":[[]]}`,
		},
		{
			"child index out of range",
			`{"base_score":0,"learning_rate":0.1,"feature_count":15,"trees":[[
				{"feature_idx":0,"threshold":1,"left_child":5,"right_child":1,"value":0,"is_leaf":false},
				{"feature_idx":-1,"threshold":0,"left_child":-1,"right_child":-1,"value":0.5,"is_leaf":true}
			]]}`,
		},
		{
			"child pointing at ancestor",
			`{"base_score":0,"learning_rate":0.1,"feature_count":15,"trees":[[
				{"feature_idx":0,"threshold":1,"left_child":1,"right_child":1,"value":0,"is_leaf":false},
				{"feature_idx":1,"threshold":1,"left_child":0,"right_child":0,"value":0,"is_leaf":false}
			]]}`,
		},
	}
	for _, c := range cases {
		path := filepath.Join(t.TempDir(), "corrupt.model")
		if err := os.WriteFile(path, []byte(c.payload), 0o600); err != nil {
			t.Fatalf("%s: write failed: %v", c.name, err)
		}
		model := &GBTClassifier{}
		if err := model.Load(path); err == nil {
			t.Fatalf("%s: expected load to fail", c.name)
		}
	}
}

func TestLoadModelUnsupportedType(t *testing.T) {
	if _, err := LoadModel("svm", "nope.model"); err == nil {
		t.Fatal("expected error for unsupported model type")
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	if _, err := LoadModel("gbt", filepath.Join(t.TempDir(), "missing.model")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}
