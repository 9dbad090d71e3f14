// Package classifier turns leaf images into ranked crop/disease labels using
// a remote inference backend.
package classifier

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/httpclient"
	"github.com/tphakala/cropdoc/internal/logger"
)

// DefaultTopK is used when settings do not specify how many predictions to keep.
const DefaultTopK = 5

// Prediction is one label and its probability-like score.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier labels a single encoded image. Implementations must be safe
// for concurrent use.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, image []byte) ([]Prediction, error)
	Close() error
}

func getLogger() logger.Logger {
	return logger.Global().Module("classifier")
}

// New builds the backend selected in settings. labels lists the canonical
// labels the classifier is expected to produce; backends that need to be
// told the label set, such as Gemini, use it.
func New(ctx context.Context, settings *conf.Settings, client *httpclient.Client, labels []string) (Classifier, error) {
	cs := settings.Classifier
	backend := strings.ToLower(strings.TrimSpace(cs.Backend))

	switch backend {
	case "", conf.BackendHuggingFace:
		return NewHuggingFace(client, &cs), nil
	case conf.BackendGemini:
		return NewGemini(ctx, &cs, labels)
	default:
		return nil, errors.Newf("unknown classifier backend %q", cs.Backend).
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Context("backend", cs.Backend).
			Build()
	}
}

// rank sorts predictions by descending score and keeps the top k. Equal
// scores keep their original order.
func rank(preds []Prediction, k int) []Prediction {
	if k <= 0 {
		k = DefaultTopK
	}
	slices.SortStableFunc(preds, func(a, b Prediction) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(preds) > k {
		preds = preds[:k]
	}
	return preds
}

// Top returns the best prediction.
func Top(preds []Prediction) (Prediction, bool) {
	if len(preds) == 0 {
		return Prediction{}, false
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, true
}

// emptyResult reports a backend that answered without any label.
func emptyResult(backend string) error {
	return errors.Newf("%s returned no predictions", backend).
		Component("classifier").
		Category(errors.CategoryClassifier).
		Context("backend", backend).
		Build()
}
