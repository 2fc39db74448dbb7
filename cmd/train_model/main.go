package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"phishguard/db"
	"phishguard/features"
	"phishguard/ml"
)

func main() {
	dataPath := flag.String("data", "", "CSV dataset with url,label columns")
	dbPath := flag.String("db", "", "SQLite dataset store (imported from -data when both are set)")
	modelPath := flag.String("model_path", "./models/gbt.model", "model output path")
	rounds := flag.Int("rounds", 200, "boosting rounds")
	maxDepth := flag.Int("max_depth", 4, "max tree depth")
	learningRate := flag.Float64("learning_rate", 0.1, "boosting learning rate")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	flag.Parse()

	if *dataPath == "" && *dbPath == "" {
		log.Fatal("either -data or -db is required")
	}

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			log.Fatalf("failed to open dataset store: %v", err)
		}
		defer db.Close()
	}

	urls, labels, err := loadDataset(*dataPath, *dbPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d samples", len(urls))

	vectors := make([][]float64, len(urls))
	for i, url := range urls {
		vectors[i] = features.Extract(url).Vector()
	}

	trainX, trainY, testX, testY := splitDataset(vectors, labels, *testRatio)

	model := ml.NewGBTClassifier(*rounds, *maxDepth, *learningRate)
	if err := model.Train(trainX, trainY); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	accuracy, precision, recall := evaluateModel(model, testX, testY)
	log.Printf("accuracy=%.3f precision=%.3f recall=%.3f", accuracy, precision, recall)

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	if err := model.Save(*modelPath); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	if *dbPath != "" {
		err := db.SaveTrainingRun(db.TrainingRun{
			ModelName:  "gbt",
			Accuracy:   accuracy,
			Precision:  precision,
			Recall:     recall,
			DataPoints: len(urls),
		})
		if err != nil {
			log.Printf("failed to record training run: %v", err)
		}
	}

	fmt.Printf("model saved to %s\n", *modelPath)
}

// loadDataset reads labeled URLs from the CSV file, the dataset store, or
// both. CSV rows are imported into the store when one is configured.
func loadDataset(dataPath, dbPath string) ([]string, []int, error) {
	var urls []string
	var labels []int

	if dataPath != "" {
		csvURLs, csvLabels, err := readCSV(dataPath)
		if err != nil {
			return nil, nil, err
		}
		if dbPath != "" {
			for i, url := range csvURLs {
				if err := db.SaveSample(url, csvLabels[i], filepath.Base(dataPath)); err != nil {
					return nil, nil, err
				}
			}
		}
		urls = csvURLs
		labels = csvLabels
	}

	if dataPath == "" && dbPath != "" {
		samples, err := db.QuerySamples(0)
		if err != nil {
			return nil, nil, err
		}
		for _, s := range samples {
			urls = append(urls, s.URL)
			labels = append(labels, s.Label)
		}
	}

	if len(urls) == 0 {
		return nil, nil, errors.New("dataset is empty")
	}
	return urls, labels, nil
}

// readCSV parses url,label rows. A header row is skipped when its label
// column is not numeric.
func readCSV(path string) ([]string, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2

	var urls []string
	var labels []int
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		label, err := strconv.Atoi(record[1])
		if err != nil {
			if first {
				first = false
				continue
			}
			return nil, nil, fmt.Errorf("invalid label %q for url %q", record[1], record[0])
		}
		first = false
		if label != 0 && label != 1 {
			return nil, nil, fmt.Errorf("label must be 0 or 1, got %d for url %q", label, record[0])
		}
		urls = append(urls, record[0])
		labels = append(labels, label)
	}
	return urls, labels, nil
}

func splitDataset(vectors [][]float64, labels []int, testRatio float64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	split := int(float64(len(vectors)) * (1 - testRatio))
	for i := range vectors {
		if i < split {
			trainX = append(trainX, vectors[i])
			trainY = append(trainY, labels[i])
		} else {
			testX = append(testX, vectors[i])
			testY = append(testY, labels[i])
		}
	}
	return trainX, trainY, testX, testY
}

func evaluateModel(model *ml.GBTClassifier, testX [][]float64, testY []int) (accuracy, precision, recall float64) {
	if len(testX) == 0 {
		return 0, 0, 0
	}

	var correct int
	var truePositive int
	var predictedPositive int
	var actualPositive int

	for i, vector := range testX {
		probability, err := model.PredictProba(vector)
		if err != nil {
			continue
		}
		label := 0
		if probability >= 0.5 {
			label = 1
		}
		if label == testY[i] {
			correct++
		}
		if label == 1 {
			predictedPositive++
		}
		if testY[i] == 1 {
			actualPositive++
			if label == 1 {
				truePositive++
			}
		}
	}

	accuracy = float64(correct) / float64(len(testX))
	if predictedPositive > 0 {
		precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		recall = float64(truePositive) / float64(actualPositive)
	}
	return accuracy, precision, recall
}
