package ml

import (
	"errors"
)

// LoadModel loads a serialized model artifact from path.
func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case "gbt":
		model := &GBTClassifier{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, errors.New("unsupported model type")
	}
}
