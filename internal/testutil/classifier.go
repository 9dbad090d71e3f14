package testutil

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/tphakala/cropdoc/internal/classifier"
)

// StaticClassifier returns fixed predictions, or Err when set.
type StaticClassifier struct {
	Backend     string
	Predictions []classifier.Prediction
	Err         error

	calls atomic.Int32
}

// Name implements classifier.Classifier.
func (s *StaticClassifier) Name() string {
	if s.Backend == "" {
		return "static"
	}
	return s.Backend
}

// Classify implements classifier.Classifier.
func (s *StaticClassifier) Classify(ctx context.Context, _ []byte) ([]classifier.Prediction, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return slices.Clone(s.Predictions), nil
}

// Close implements classifier.Classifier.
func (s *StaticClassifier) Close() error { return nil }

// Calls returns how many times Classify ran.
func (s *StaticClassifier) Calls() int { return int(s.calls.Load()) }
