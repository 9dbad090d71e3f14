package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

const geminiName = "gemini"

const geminiInstruction = `You are a plant pathologist. Identify the crop and the disease visible on the leaf in the image.
Answer only with JSON of the form {"predictions":[{"label":"<label>","score":<0..1>}]}, best match first.
Pick labels from this list when one fits, otherwise use "<Crop>___<Disease_with_underscores>":
`

// contentGenerator is the part of *genai.GenerativeModel used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini classifies images with a Gemini vision model.
type Gemini struct {
	client     *genai.Client
	model      contentGenerator
	modelName  string
	topK       int
	timeout    time.Duration
	maxRetries int
}

// NewGemini creates the Gemini backend. labels is the canonical label set
// offered to the model.
func NewGemini(ctx context.Context, cs *conf.ClassifierSettings, labels []string) (*Gemini, error) {
	gs := cs.Gemini
	if strings.TrimSpace(gs.APIKey) == "" {
		return nil, errors.Newf("gemini API key is not set").
			Component("classifier").
			Category(errors.CategoryConfiguration).
			Build()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(gs.APIKey)))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create gemini client: %w", err)).
			Component("classifier").
			Category(errors.CategoryIntegration).
			Build()
	}

	m := client.GenerativeModel(strings.TrimSpace(gs.Model))
	temperature := gs.Temperature
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(geminiInstruction + strings.Join(labels, "\n"))},
	}

	return &Gemini{
		client:     client,
		model:      m,
		modelName:  gs.Model,
		topK:       cs.TopK,
		timeout:    cs.Timeout,
		maxRetries: max(gs.MaxRetries, 0),
	}, nil
}

// Name returns the backend name.
func (g *Gemini) Name() string { return geminiName }

// Close releases the Gemini client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Classify sends the image with the labelling instruction and parses the
// JSON answer. Transient failures are retried with a linear backoff.
func (g *Gemini) Classify(ctx context.Context, image []byte) ([]Prediction, error) {
	info, err := Inspect(image)
	if err != nil {
		return nil, err
	}

	parts := []genai.Part{
		genai.Blob{MIMEType: info.MIME, Data: image},
		genai.Text("Classify this leaf."),
	}

	log := getLogger().With(logger.String("backend", geminiName), logger.String("model", g.modelName))

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries+1; attempt++ {
		resp, err := g.generate(ctx, parts)
		if err == nil {
			preds, perr := parseGeminiAnswer(firstText(resp))
			if perr != nil {
				return nil, errors.New(perr).
					Component("classifier").
					Category(errors.CategoryClassifier).
					Context("model", g.modelName).
					Build()
			}
			if len(preds) == 0 {
				return nil, emptyResult(geminiName)
			}
			return rank(preds, g.topK), nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Warn("gemini request failed", logger.Int("attempt", attempt), logger.Error(err))
		if err := sleepContext(ctx, time.Duration(attempt)*300*time.Millisecond); err != nil {
			break
		}
	}

	return nil, errors.New(fmt.Errorf("gemini request failed: %w", lastErr)).
		Component("classifier").
		Category(errors.CategoryIntegration).
		Context("model", g.modelName).
		Build()
}

func (g *Gemini) generate(ctx context.Context, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.model.GenerateContent(ctx, parts...)
}

type geminiAnswer struct {
	Predictions []Prediction `json:"predictions"`
}

// parseGeminiAnswer decodes the model output. Scores are clamped to [0, 1]
// and blank labels dropped.
func parseGeminiAnswer(text string) ([]Prediction, error) {
	text = stripCodeFences(text)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	var answer geminiAnswer
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return nil, fmt.Errorf("bad JSON in response: %w", err)
	}

	preds := answer.Predictions[:0]
	for _, p := range answer.Predictions {
		p.Label = strings.TrimSpace(p.Label)
		if p.Label == "" {
			continue
		}
		p.Score = min(max(p.Score, 0), 1)
		preds = append(preds, p)
	}
	return preds, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
