package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"golang.org/x/time/rate"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/httpclient"
	"github.com/tphakala/cropdoc/internal/logger"
)

const (
	huggingFaceName = "huggingface"

	// maxLoadingWait caps the wait suggested by a loading model.
	maxLoadingWait = 30 * time.Second
	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 * 1024
	// defaultRateLimitWait is used when a 429 carries no usable Retry-After.
	defaultRateLimitWait = 5 * time.Second
)

// ErrModelLoading is returned when the hosted model is still warming up
// after all retries were used.
var ErrModelLoading = errors.NewStd("model is loading")

// HuggingFace classifies images through the Hugging Face inference API.
type HuggingFace struct {
	client     *httpclient.Client
	endpoint   string
	model      string
	topK       int
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	wait       func(ctx context.Context, d time.Duration) error
}

// NewHuggingFace creates the Hugging Face backend.
func NewHuggingFace(client *httpclient.Client, cs *conf.ClassifierSettings) *HuggingFace {
	hf := cs.HuggingFace

	var limiter *rate.Limiter
	if hf.RateLimit > 0 {
		burst := max(hf.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(hf.RateLimit), burst)
	}

	return &HuggingFace{
		client:     client,
		endpoint:   strings.TrimRight(hf.URL, "/") + "/" + strings.Trim(hf.Model, "/"),
		model:      hf.Model,
		topK:       cs.TopK,
		timeout:    cs.Timeout,
		maxRetries: max(hf.MaxRetries, 0),
		limiter:    limiter,
		wait:       sleepContext,
	}
}

// Name returns the backend name.
func (h *HuggingFace) Name() string { return huggingFaceName }

// Close is a no-op; the shared HTTP client is owned by the caller.
func (h *HuggingFace) Close() error { return nil }

// Classify posts the raw image bytes to the inference endpoint. A 503 from a
// cold model is retried after the suggested delay.
func (h *HuggingFace) Classify(ctx context.Context, image []byte) ([]Prediction, error) {
	info, err := Inspect(image)
	if err != nil {
		return nil, err
	}

	log := getLogger().With(logger.String("backend", huggingFaceName), logger.String("model", h.model))

	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if h.limiter != nil {
			if err := h.limiter.Wait(ctx); err != nil {
				return nil, errors.New(err).
					Component("classifier").
					Category(errors.CategoryLimit).
					Context("operation", "rate_limiter_wait").
					Build()
			}
		}

		preds, retryAfter, err := h.do(ctx, image, info.MIME)
		if err == nil {
			return rank(preds, h.topK), nil
		}
		lastErr = err

		if retryAfter <= 0 || attempt == h.maxRetries {
			break
		}

		log.Info("model not ready, retrying",
			logger.Int("attempt", attempt+1),
			logger.Int("max_retries", h.maxRetries),
			logger.Duration("retry_after", retryAfter))

		if err := h.wait(ctx, retryAfter); err != nil {
			return nil, errors.New(err).
				Component("classifier").
				Category(errors.CategoryCancellation).
				Context("operation", "retry_wait").
				Build()
		}
	}

	return nil, lastErr
}

// do performs one request. retryAfter is positive when the failure is
// transient and worth retrying.
func (h *HuggingFace) do(ctx context.Context, image []byte, mime string) (preds []Prediction, retryAfter time.Duration, err error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := h.client.Post(ctx, h.endpoint, mime, bytes.NewReader(image))
	if err != nil {
		return nil, 0, errors.New(fmt.Errorf("inference request failed: %w", err)).
			Component("classifier").
			Category(errors.CategoryNetwork).
			NetworkContext(h.endpoint, h.timeout).
			Timing("huggingface_request", time.Since(start)).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return h.handleError(resp)
	}

	value, err := jason.NewValueFromReader(resp.Body)
	if err != nil {
		return nil, 0, h.parseError(err)
	}

	preds, err = parsePredictions(value)
	if err != nil {
		return nil, 0, h.parseError(err)
	}
	if len(preds) == 0 {
		return nil, 0, emptyResult(huggingFaceName)
	}

	return preds, 0, nil
}

// parsePredictions accepts both a flat list of {label, score} objects and the
// nested list returned for batched inputs.
func parsePredictions(value *jason.Value) ([]Prediction, error) {
	items, err := value.Array()
	if err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}

	if len(items) > 0 {
		if nested, err := items[0].Array(); err == nil {
			items = nested
		}
	}

	preds := make([]Prediction, 0, len(items))
	for i, item := range items {
		obj, err := item.Object()
		if err != nil {
			return nil, fmt.Errorf("prediction %d is not an object: %w", i, err)
		}
		label, err := obj.GetString("label")
		if err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
		score, err := obj.GetFloat64("score")
		if err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
		preds = append(preds, Prediction{Label: label, Score: score})
	}
	return preds, nil
}

func (h *HuggingFace) handleError(resp *http.Response) ([]Prediction, time.Duration, error) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := strings.TrimSpace(string(body))
	var estimated float64
	if obj, err := jason.NewObjectFromBytes(body); err == nil {
		if msg, err := obj.GetString("error"); err == nil {
			message = msg
		}
		if est, err := obj.GetFloat64("estimated_time"); err == nil {
			estimated = est
		}
	}

	var retryAfter time.Duration
	var cause error
	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		cause = ErrModelLoading
		retryAfter = time.Duration(estimated * float64(time.Second))
		if retryAfter <= 0 {
			retryAfter = 2 * time.Second
		}
		retryAfter = min(retryAfter, maxLoadingWait)
	case http.StatusTooManyRequests:
		cause = errors.NewStd("rate limited by inference API")
		retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		if retryAfter <= 0 {
			retryAfter = defaultRateLimitWait
		}
		retryAfter = min(retryAfter, maxLoadingWait)
	default:
		cause = errors.NewStd("inference API error")
	}

	category := errors.CategoryClassifier
	if resp.StatusCode == http.StatusTooManyRequests {
		category = errors.CategoryLimit
	}

	return nil, retryAfter, errors.New(fmt.Errorf("%w: status %d: %s", cause, resp.StatusCode, message)).
		Component("classifier").
		Category(category).
		Context("status_code", resp.StatusCode).
		Context("model", h.model).
		Build()
}

// parseRetryAfter reads a Retry-After header given either as delta-seconds or
// as an HTTP-date. Zero means the header is absent or unusable.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func (h *HuggingFace) parseError(err error) error {
	return errors.New(fmt.Errorf("failed to parse inference response: %w", err)).
		Component("classifier").
		Category(errors.CategoryClassifier).
		Context("model", h.model).
		Build()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
