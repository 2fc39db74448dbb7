// Package predict turns URLs into phishing verdicts using a pretrained
// classifier.
package predict

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"phishguard/features"
	"phishguard/ml"
)

// MaxBatchSize caps the number of URLs accepted by a single batch request.
const MaxBatchSize = 100

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrEmptyURL         = errors.New("url must be a non-empty string")
	ErrURLNotString     = errors.New("url must be a string")
	ErrBatchTooLarge    = fmt.Errorf("maximum %d urls allowed per request", MaxBatchSize)
)

const (
	LabelSafe     = "safe"
	LabelPhishing = "phishing"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of classifying a single URL.
type Result struct {
	URL         string  `json:"url"`
	Prediction  string  `json:"prediction"`
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
	Status      string  `json:"status"`
}

// BatchItem is one entry of a batch response. Error entries carry only the
// url, error and status fields; the url is absent when the element was not a
// string at all.
type BatchItem struct {
	URL         string   `json:"url,omitempty"`
	Prediction  string   `json:"prediction,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Error       string   `json:"error,omitempty"`
	Status      string   `json:"status"`
}

// Service classifies URLs with an injected model. The model handle may be
// swapped at runtime by Reload; all other state is a pure-function result
// cache, so the service is safe for concurrent use.
type Service struct {
	mu         sync.RWMutex
	model      ml.Classifier
	generation uint64
	cache      *lru.Cache[string, Result]
	logger     *zap.Logger
}

// NewService builds a Service around model, which may be nil when the
// artifact failed to load; predictions then fail fast until Reload succeeds.
func NewService(model ml.Classifier, cacheSize int, logger *zap.Logger) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, Result](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create prediction cache: %w", err)
	}
	return &Service{model: model, cache: cache, logger: logger}, nil
}

// ModelLoaded reports whether a model is available for inference.
func (s *Service) ModelLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Reload replaces the live model with the artifact at path. The old model
// keeps serving until the new one has loaded successfully.
func (s *Service) Reload(modelType, path string) error {
	model, err := ml.LoadModel(modelType, path)
	if err != nil {
		return fmt.Errorf("reload model from %s: %w", path, err)
	}
	s.mu.Lock()
	s.model = model
	s.generation++
	// Purging under the write lock pairs with the generation check in
	// Predict: no result computed against the old model can be cached after
	// this point.
	s.cache.Purge()
	s.mu.Unlock()
	s.logger.Info("model reloaded", zap.String("path", path))
	return nil
}

// Predict classifies a single URL. The decision threshold is 0.5: a phishing
// probability at or above it yields the phishing label. Confidence is the
// model's certainty in the chosen label, so it is always at least 0.5.
func (s *Service) Predict(url string) (Result, error) {
	if url == "" {
		return Result{}, ErrEmptyURL
	}

	s.mu.RLock()
	model := s.model
	generation := s.generation
	s.mu.RUnlock()
	if model == nil {
		return Result{}, ErrModelUnavailable
	}

	if cached, ok := s.cache.Get(url); ok {
		return cached, nil
	}

	vector := features.Extract(url).Vector()
	probability, err := model.PredictProba(vector)
	if err != nil {
		s.logger.Error("inference failed", zap.String("url", url), zap.Error(err))
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}

	result := Result{
		URL:         url,
		Probability: probability,
		Status:      StatusSuccess,
	}
	if probability >= 0.5 {
		result.Prediction = LabelPhishing
		result.Confidence = probability
	} else {
		result.Prediction = LabelSafe
		result.Confidence = 1 - probability
	}

	// Cache only while the model that produced the result is still live;
	// Reload purges under the write lock, so a matching generation here means
	// no reload has slipped in between.
	s.mu.RLock()
	if s.generation == generation {
		s.cache.Add(url, result)
	}
	s.mu.RUnlock()
	return result, nil
}

// PredictBatch classifies urls independently, preserving input order. The
// elements come straight from the decoded request, so a wrong-typed or empty
// element yields an error entry without aborting its siblings. Batches over
// MaxBatchSize are rejected before any work is done.
func (s *Service) PredictBatch(urls []interface{}) ([]BatchItem, error) {
	if len(urls) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	if !s.ModelLoaded() {
		return nil, ErrModelUnavailable
	}

	items := make([]BatchItem, 0, len(urls))
	for _, raw := range urls {
		url, ok := raw.(string)
		if !ok {
			items = append(items, BatchItem{
				Error:  ErrURLNotString.Error(),
				Status: StatusError,
			})
			continue
		}
		result, err := s.Predict(url)
		if err != nil {
			items = append(items, BatchItem{
				URL:    url,
				Error:  err.Error(),
				Status: StatusError,
			})
			continue
		}
		probability := result.Probability
		confidence := result.Confidence
		items = append(items, BatchItem{
			URL:         result.URL,
			Prediction:  result.Prediction,
			Probability: &probability,
			Confidence:  &confidence,
			Status:      result.Status,
		})
	}
	return items, nil
}

// Features returns the labeled feature map for url without classifying it.
// It works even when no model is loaded.
func (s *Service) Features(url string) (map[string]float64, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	return features.Extract(url).Map(), nil
}
