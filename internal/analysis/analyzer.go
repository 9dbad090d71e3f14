// Package analysis runs the diagnosis pipeline: classify an image, resolve
// the top label against the knowledge base, then persist and publish the
// result.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/tphakala/cropdoc/internal/cache"
	"github.com/tphakala/cropdoc/internal/classifier"
	"github.com/tphakala/cropdoc/internal/datastore"
	"github.com/tphakala/cropdoc/internal/diagnosis"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/events"
	"github.com/tphakala/cropdoc/internal/logger"
	"github.com/tphakala/cropdoc/internal/observability/metrics"
)

// Sources recorded on scans and events.
const (
	SourceCLI      = "cli"
	SourceAPI      = "api"
	SourceTelegram = "telegram"
)

// ErrClassification marks a result whose image could not be classified.
// The accompanying Result carries a FAILED report.
var ErrClassification = errors.NewStd("classification failed")

// Config wires the pipeline. Classifier and Resolver are required; the rest
// are optional.
type Config struct {
	Classifier classifier.Classifier
	Resolver   *diagnosis.Resolver
	Cache      cache.Store
	Store      datastore.Interface
	Bus        *events.EventBus
	Metrics    *metrics.DiagnosisMetrics
	Node       string
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	classifier classifier.Classifier
	resolver   *diagnosis.Resolver
	cache      cache.Store
	store      datastore.Interface
	bus        *events.EventBus
	metrics    *metrics.DiagnosisMetrics
	recorder   metrics.Recorder
	node       string
	log        logger.Logger
}

// Input is one image to analyze.
type Input struct {
	Image  []byte
	Name   string // file name, informational
	Source string // SourceCLI, SourceAPI or SourceTelegram
}

// Result is the outcome of analyzing one image.
type Result struct {
	ScanID         string                  `json:"scan_id,omitempty"`
	ImageName      string                  `json:"image_name,omitempty"`
	Source         string                  `json:"source"`
	Backend        string                  `json:"backend"`
	Image          classifier.ImageInfo    `json:"image"`
	Predictions    []classifier.Prediction `json:"predictions"`
	Report         diagnosis.Report        `json:"report"`
	Cached         bool                    `json:"cached"`
	ProcessingTime time.Duration           `json:"-"`
	ProcessingMs   int64                   `json:"processing_time_ms"`
}

// New creates an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if cfg.Classifier == nil || cfg.Resolver == nil {
		return nil, errors.Newf("analyzer requires a classifier and a resolver").
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Build()
	}

	a := &Analyzer{
		classifier: cfg.Classifier,
		resolver:   cfg.Resolver,
		cache:      cfg.Cache,
		store:      cfg.Store,
		bus:        cfg.Bus,
		metrics:    cfg.Metrics,
		recorder:   metrics.NoOpRecorder{},
		node:       cfg.Node,
		log:        GetLogger(),
	}
	if cfg.Metrics != nil {
		a.recorder = cfg.Metrics
	}
	return a, nil
}

// GetLogger returns the analysis module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("analysis")
}

// Resolver returns the resolver used for label lookups.
func (a *Analyzer) Resolver() *diagnosis.Resolver { return a.resolver }

// Backend returns the classifier backend name.
func (a *Analyzer) Backend() string { return a.classifier.Name() }

// DiagnoseLabel resolves a label without classifying an image.
func (a *Analyzer) DiagnoseLabel(label string, score float64) diagnosis.Report {
	report := a.resolver.Diagnose(label, score)
	if a.metrics != nil {
		a.metrics.RecordDiagnosis(string(report.Status), string(report.Match), report.Confidence)
	}
	return report
}

// Analyze classifies and diagnoses one image. An image that cannot be
// decoded is rejected with an error and no result. A classifier failure
// yields a FAILED result together with an error wrapping ErrClassification.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (Result, error) {
	start := time.Now()

	info, err := classifier.Inspect(in.Image)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		ImageName: in.Name,
		Source:    in.Source,
		Backend:   a.classifier.Name(),
		Image:     info,
	}

	preds, cached, classifyErr := a.classify(ctx, in.Image)
	if classifyErr != nil {
		res.Report = diagnosis.FailedReport()
		a.log.Warn("classification failed",
			logger.String("image", in.Name),
			logger.String("backend", res.Backend),
			logger.Error(classifyErr))
	} else {
		top, _ := classifier.Top(preds)
		res.Report = a.resolver.Diagnose(top.Label, top.Score)
		res.Predictions = preds
		res.Cached = cached
	}

	res.ProcessingTime = time.Since(start)
	res.ProcessingMs = res.ProcessingTime.Milliseconds()

	if a.metrics != nil {
		a.metrics.RecordDiagnosis(string(res.Report.Status), string(res.Report.Match), res.Report.Confidence)
	}
	a.recorder.RecordDuration(metrics.OpDiagnose, res.ProcessingTime.Seconds())

	a.save(&res, in.Image)

	if classifyErr != nil {
		return res, errors.New(errors.Join(ErrClassification, classifyErr)).
			Component("analysis").
			Category(errors.CategoryClassifier).
			Context("backend", res.Backend).
			Build()
	}

	a.publish(res, start)
	return res, nil
}

// classify returns predictions from the cache or the classifier.
func (a *Analyzer) classify(ctx context.Context, image []byte) (preds []classifier.Prediction, cached bool, err error) {
	key := cache.Key(a.classifier.Name(), image)

	if a.cache != nil {
		preds, ok, err := a.cache.Get(ctx, key)
		switch {
		case err != nil:
			a.recorder.RecordError(metrics.OpCacheLookup, errorType(err))
			a.log.Debug("cache lookup failed", logger.Error(err))
		case ok && len(preds) > 0:
			a.recorder.RecordOperation(metrics.OpCacheLookup, metrics.StatusHit)
			return preds, true, nil
		default:
			a.recorder.RecordOperation(metrics.OpCacheLookup, metrics.StatusMiss)
		}
	}

	start := time.Now()
	preds, err = a.classifier.Classify(ctx, image)
	a.recorder.RecordDuration(metrics.OpClassify, time.Since(start).Seconds())
	if err != nil {
		a.recorder.RecordError(metrics.OpClassify, errorType(err))
		return nil, false, err
	}
	if len(preds) == 0 {
		err := errors.Newf("%s returned no predictions", a.classifier.Name()).
			Component("analysis").
			Category(errors.CategoryClassifier).
			Build()
		a.recorder.RecordError(metrics.OpClassify, errorType(err))
		return nil, false, err
	}
	a.recorder.RecordOperation(metrics.OpClassify, metrics.StatusSuccess)

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, preds); err != nil {
			a.recorder.RecordError(metrics.OpCacheStore, errorType(err))
			a.log.Debug("cache store failed", logger.Error(err))
		} else {
			a.recorder.RecordOperation(metrics.OpCacheStore, metrics.StatusSuccess)
		}
	}
	return preds, false, nil
}

// save persists res when a store is configured. Failures are logged; they do
// not fail the analysis.
func (a *Analyzer) save(res *Result, image []byte) {
	if a.store == nil {
		return
	}

	scan := newScan(*res, image, a.node)
	start := time.Now()
	err := a.store.Save(scan)
	a.recorder.RecordDuration(metrics.OpScanSave, time.Since(start).Seconds())
	if err != nil {
		a.recorder.RecordError(metrics.OpScanSave, errorType(err))
		a.log.Error("failed to save scan", logger.Error(err))
		return
	}
	a.recorder.RecordOperation(metrics.OpScanSave, metrics.StatusSuccess)
	res.ScanID = scan.PublicID
}

func (a *Analyzer) publish(res Result, start time.Time) {
	if a.bus == nil {
		return
	}
	ok := a.bus.TryPublish(events.DiagnosisEvent{
		ScanID:         res.ScanID,
		Node:           a.node,
		Source:         res.Source,
		ImageName:      res.ImageName,
		Backend:        res.Backend,
		Time:           start,
		ProcessingTime: res.ProcessingTime,
		Report:         res.Report,
	})
	status := metrics.StatusSuccess
	if !ok {
		status = metrics.StatusError
	}
	a.recorder.RecordOperation(metrics.OpPublish, status)
}

// newScan maps a result to its stored form.
func newScan(res Result, image []byte, node string) *datastore.Scan {
	sum := sha256.Sum256(image)
	report, _ := json.Marshal(res.Report)

	scan := &datastore.Scan{
		SourceNode:      node,
		Source:          res.Source,
		ImageName:       res.ImageName,
		ImageSHA256:     hex.EncodeToString(sum[:]),
		Backend:         res.Backend,
		Crop:            res.Report.Crop,
		Disease:         res.Report.Disease,
		OriginalLabel:   res.Report.OriginalLabel,
		Confidence:      res.Report.Confidence,
		ConfidenceLevel: string(res.Report.ConfidenceLevel),
		Severity:        string(res.Report.Severity),
		Status:          string(res.Report.Status),
		Match:           string(res.Report.Match),
		ProcessingTime:  res.ProcessingTime,
		Report:          string(report),
	}
	for i, p := range res.Predictions {
		scan.Predictions = append(scan.Predictions, datastore.Prediction{
			Position: i + 1,
			Label:    p.Label,
			Score:    p.Score,
		})
	}
	return scan
}

// errorType is the metrics label for err.
func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}
