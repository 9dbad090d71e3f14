package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/httpclient"
)

func TestRank(t *testing.T) {
	preds := []Prediction{
		{"a", 0.1}, {"b", 0.5}, {"c", 0.5}, {"d", 0.9}, {"e", 0.2}, {"f", 0.3},
	}

	got := rank(preds, 3)
	assert.Equal(t, []Prediction{{"d", 0.9}, {"b", 0.5}, {"c", 0.5}}, got)

	got = rank([]Prediction{{"x", 0.4}}, 0)
	assert.Len(t, got, 1)
}

func TestTop(t *testing.T) {
	_, ok := Top(nil)
	assert.False(t, ok)

	best, ok := Top([]Prediction{{"a", 0.2}, {"b", 0.8}, {"c", 0.1}})
	require.True(t, ok)
	assert.Equal(t, "b", best.Label)
}

func TestNewSelectsBackend(t *testing.T) {
	settings := &conf.Settings{}
	settings.Classifier.Backend = conf.BackendHuggingFace
	settings.Classifier.HuggingFace.URL = "https://example.test/models"
	settings.Classifier.HuggingFace.Model = "m"

	c, err := New(t.Context(), settings, httpclient.New(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "huggingface", c.Name())
	require.NoError(t, c.Close())

	settings.Classifier.Backend = "Gemini"
	_, err = New(t.Context(), settings, httpclient.New(nil), nil)
	require.Error(t, err, "gemini without an API key must fail")

	settings.Classifier.Backend = "tflite"
	_, err = New(t.Context(), settings, httpclient.New(nil), nil)
	require.Error(t, err)
}

type fakeGenerator struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	parts     []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	f.parts = parts
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

func TestGeminiClassify(t *testing.T) {
	gen := &fakeGenerator{
		errs: []error{errors.New("unavailable"), nil},
		responses: []*genai.GenerateContentResponse{
			nil,
			textResponse("```json\n{\"predictions\":[{\"label\":\"Potato___Late_blight\",\"score\":0.8},{\"label\":\" \",\"score\":0.1},{\"label\":\"Potato___healthy\",\"score\":1.4}]}\n```"),
		},
	}
	g := &Gemini{model: gen, modelName: "test", topK: 5, maxRetries: 1}

	preds, err := g.Classify(t.Context(), encodeJPEG(t, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, []Prediction{
		{Label: "Potato___healthy", Score: 1},
		{Label: "Potato___Late_blight", Score: 0.8},
	}, preds)

	blob, ok := gen.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
}

func TestGeminiBadAnswer(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse("the leaf looks sad")}}
	g := &Gemini{model: gen, modelName: "test"}

	_, err := g.Classify(t.Context(), encodePNG(t, 2, 2))
	require.Error(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestGeminiEmptyAnswer(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse(`{"predictions":[]}`)}}
	g := &Gemini{model: gen, modelName: "test"}

	_, err := g.Classify(t.Context(), encodePNG(t, 2, 2))
	require.Error(t, err)
}

func TestGeminiCloseWithoutClient(t *testing.T) {
	assert.NoError(t, (&Gemini{}).Close())
}
