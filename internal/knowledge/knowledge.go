// Package knowledge loads the plant disease knowledge base, either the copy
// embedded in the binary or a custom YAML file.
package knowledge

import (
	_ "embed" // For embedding data
	"bytes"
	"fmt"
	"os"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/cropdoc/internal/diagnosis"
	"github.com/tphakala/cropdoc/internal/errors"
)

//go:embed data/knowledge.yaml
var knowledgeData []byte

// document is the on-disk layout. Lists keep the source order, which the
// healthy lookup depends on.
type document struct {
	Diseases []diseaseRecord `yaml:"diseases"`
	Healthy  []healthyRecord `yaml:"healthy"`
}

type diseaseRecord struct {
	Key                    string `yaml:"key"`
	diagnosis.DiseaseEntry `yaml:",inline"`
}

type healthyRecord struct {
	Key                    string `yaml:"key"`
	diagnosis.HealthyEntry `yaml:",inline"`
}

// Load reads the knowledge base from customPath, or the embedded copy when
// customPath is empty.
func Load(customPath string) (*diagnosis.KnowledgeBase, error) {
	if customPath == "" {
		return Parse(knowledgeData)
	}

	data, err := os.ReadFile(customPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read knowledge base %s: %w", customPath, err)).
			Component("knowledge").
			Category(errors.CategoryFileIO).
			FileContext(customPath, 0).
			Build()
	}

	return Parse(data)
}

// Parse decodes a knowledge base document. Unknown fields are rejected.
// UTF-16 input with a byte order mark is accepted, and text is normalized
// to NFC so keys typed on different systems compare equal.
func Parse(data []byte) (*diagnosis.KnowledgeBase, error) {
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to decode knowledge base: %w", err)).
			Component("knowledge").
			Category(errors.CategoryFileParsing).
			Build()
	}

	dec := yaml.NewDecoder(bytes.NewReader(norm.NFC.Bytes(text)))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.New(fmt.Errorf("failed to parse knowledge base: %w", err)).
			Component("knowledge").
			Category(errors.CategoryFileParsing).
			Build()
	}

	diseases := make([]diagnosis.KeyedDisease, len(doc.Diseases))
	for i, d := range doc.Diseases {
		diseases[i] = diagnosis.KeyedDisease{Key: d.Key, Entry: d.DiseaseEntry}
	}

	healthy := make([]diagnosis.KeyedHealthy, len(doc.Healthy))
	for i, h := range doc.Healthy {
		healthy[i] = diagnosis.KeyedHealthy{Key: h.Key, Entry: h.HealthyEntry}
	}

	return diagnosis.NewKnowledgeBase(diseases, healthy)
}

var defaultBase = sync.OnceValues(func() (*diagnosis.KnowledgeBase, error) {
	return Parse(knowledgeData)
})

// Default returns the embedded knowledge base, parsed once per process.
func Default() (*diagnosis.KnowledgeBase, error) {
	return defaultBase()
}
