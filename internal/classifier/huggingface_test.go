package classifier

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/httpclient"
)

const testEndpoint = "https://inference.test/models/acme/leaf-model"

func newTestHuggingFace(t *testing.T, retries int) (*HuggingFace, *[]time.Duration) {
	t.Helper()

	client := httpclient.New(&httpclient.Config{BearerToken: "hf_test"})
	httpmock.ActivateNonDefault(client.StandardClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	hf := NewHuggingFace(client, &conf.ClassifierSettings{
		TopK: 3,
		HuggingFace: conf.HuggingFaceSettings{
			URL:        "https://inference.test/models/",
			Model:      "acme/leaf-model",
			MaxRetries: retries,
		},
	})

	var waits []time.Duration
	hf.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return hf, &waits
}

func TestHuggingFaceClassify(t *testing.T) {
	hf, _ := newTestHuggingFace(t, 0)
	assert.Equal(t, testEndpoint, hf.endpoint)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "image/png", req.Header.Get("Content-Type"))
			assert.Equal(t, "Bearer hf_test", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK, `[
				{"label": "Tomato___healthy", "score": 0.05},
				{"label": "Tomato___Early_blight", "score": 0.87},
				{"label": "Tomato___Late_blight", "score": 0.06},
				{"label": "Potato___Early_blight", "score": 0.02}
			]`), nil
		})

	preds, err := hf.Classify(t.Context(), encodePNG(t, 4, 4))
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, Prediction{Label: "Tomato___Early_blight", Score: 0.87}, preds[0])
	assert.Equal(t, "Tomato___Late_blight", preds[1].Label)
	assert.Equal(t, "Tomato___healthy", preds[2].Label)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHuggingFaceNestedResponse(t *testing.T) {
	hf, _ := newTestHuggingFace(t, 0)
	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `[[{"label": "Apple___Black_rot", "score": 0.91}]]`))

	preds, err := hf.Classify(t.Context(), encodePNG(t, 4, 4))
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "Apple___Black_rot", preds[0].Label)
}

func TestHuggingFaceRetriesWhileLoading(t *testing.T) {
	hf, waits := newTestHuggingFace(t, 2)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(http.StatusServiceUnavailable,
				`{"error": "Model acme/leaf-model is currently loading", "estimated_time": 12.5}`),
			httpmock.NewStringResponse(http.StatusOK, `[{"label": "Grape___Black_rot", "score": 0.7}]`),
		}))

	preds, err := hf.Classify(t.Context(), encodePNG(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, "Grape___Black_rot", preds[0].Label)
	assert.Equal(t, []time.Duration{12500 * time.Millisecond}, *waits)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestHuggingFaceGivesUpWhileLoading(t *testing.T) {
	hf, waits := newTestHuggingFace(t, 1)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusServiceUnavailable,
			`{"error": "loading", "estimated_time": 600}`))

	_, err := hf.Classify(t.Context(), encodePNG(t, 4, 4))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrModelLoading)
	assert.Equal(t, []time.Duration{maxLoadingWait}, *waits)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestHuggingFaceHonorsRetryAfter(t *testing.T) {
	hf, waits := newTestHuggingFace(t, 1)

	limited := httpmock.NewStringResponse(http.StatusTooManyRequests, `{"error": "rate limit reached"}`)
	limited.Header = http.Header{"Retry-After": []string{"1"}}
	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			limited,
			httpmock.NewStringResponse(http.StatusOK, `[{"label": "Corn___Common_rust", "score": 0.8}]`),
		}))

	preds, err := hf.Classify(t.Context(), encodePNG(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, "Corn___Common_rust", preds[0].Label)
	assert.Equal(t, []time.Duration{time.Second}, *waits)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestHuggingFaceRateLimitedWithoutRetryAfter(t *testing.T) {
	hf, waits := newTestHuggingFace(t, 1)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error": "slow down"}`))

	_, err := hf.Classify(t.Context(), encodePNG(t, 4, 4))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryLimit), "got %v", err)
	assert.Equal(t, []time.Duration{defaultRateLimitWait}, *waits)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "7", 7 * time.Second},
		{"zero seconds", "0", 0},
		{"negative", "-3", 0},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"date in the past", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.value, now))
		})
	}
}

func TestHuggingFaceErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category errors.ErrorCategory
	}{
		{"bad request", http.StatusBadRequest, `{"error": "bad image"}`, errors.CategoryClassifier},
		{"not json", http.StatusOK, `<html>oops</html>`, errors.CategoryClassifier},
		{"wrong shape", http.StatusOK, `{"label": "x"}`, errors.CategoryClassifier},
		{"empty list", http.StatusOK, `[]`, errors.CategoryClassifier},
		{"missing score", http.StatusOK, `[{"label": "x"}]`, errors.CategoryClassifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hf, waits := newTestHuggingFace(t, 3)
			httpmock.RegisterResponder(http.MethodPost, testEndpoint,
				httpmock.NewStringResponder(tt.status, tt.body))

			_, err := hf.Classify(t.Context(), encodePNG(t, 4, 4))
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			assert.Empty(t, *waits)
		})
	}
}

func TestHuggingFaceRejectsInvalidImage(t *testing.T) {
	hf, _ := newTestHuggingFace(t, 0)

	_, err := hf.Classify(t.Context(), []byte("plain text"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
	assert.Zero(t, httpmock.GetTotalCallCount())
}
