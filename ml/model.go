package ml

// Classifier is the read-only inference surface the prediction service
// depends on. The returned value is the probability of the phishing class.
type Classifier interface {
	PredictProba(features []float64) (float64, error)
}

// TrainableModel is the full lifecycle a model artifact goes through in the
// offline training pipeline.
type TrainableModel interface {
	Classifier
	Train(features [][]float64, labels []int) error
	Save(path string) error
	Load(path string) error
}
