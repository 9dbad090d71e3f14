package diagnosis

import (
	"fmt"
	"strings"

	"github.com/tphakala/cropdoc/internal/errors"
)

const healthyDisease = "Healthy"

// KeyedDisease pairs a canonical label with its disease entry.
type KeyedDisease struct {
	Key   string
	Entry DiseaseEntry
}

// KeyedHealthy pairs a canonical label with its healthy entry.
type KeyedHealthy struct {
	Key   string
	Entry HealthyEntry
}

// KnowledgeBase is the read-only lookup table used by the Resolver.
// It is built once and never mutated; accessors return copies.
type KnowledgeBase struct {
	diseases     map[string]DiseaseEntry
	diseaseOrder []string
	healthy      []KeyedHealthy // lookup order is significant
}

// NewKnowledgeBase validates and freezes the given tables. Keys must be
// unique across both tables and contain the Crop___Disease separator.
// Healthy entries keep their given order.
func NewKnowledgeBase(diseases []KeyedDisease, healthy []KeyedHealthy) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		diseases:     make(map[string]DiseaseEntry, len(diseases)),
		diseaseOrder: make([]string, 0, len(diseases)),
		healthy:      make([]KeyedHealthy, 0, len(healthy)),
	}

	seen := make(map[string]struct{}, len(diseases)+len(healthy))
	var problems []error

	checkKey := func(key string) bool {
		if err := validateKey(key); err != nil {
			problems = append(problems, err)
			return false
		}
		if _, dup := seen[key]; dup {
			problems = append(problems, fmt.Errorf("duplicate key %q", key))
			return false
		}
		seen[key] = struct{}{}
		return true
	}

	for _, d := range diseases {
		if !checkKey(d.Key) {
			continue
		}
		if !d.Entry.Severity.Valid() {
			problems = append(problems, fmt.Errorf("%s: unknown severity %q", d.Key, d.Entry.Severity))
			continue
		}
		if d.Entry.Crop == "" || d.Entry.Disease == "" {
			problems = append(problems, fmt.Errorf("%s: crop and disease must be set", d.Key))
			continue
		}
		kb.diseases[d.Key] = d.Entry.clone()
		kb.diseaseOrder = append(kb.diseaseOrder, d.Key)
	}

	for _, h := range healthy {
		if !checkKey(h.Key) {
			continue
		}
		if !strings.Contains(strings.ToLower(h.Key), "healthy") {
			problems = append(problems, fmt.Errorf("%s: healthy key must contain \"healthy\"", h.Key))
			continue
		}
		if h.Entry.Message == "" {
			problems = append(problems, fmt.Errorf("%s: message must be set", h.Key))
			continue
		}
		entry := h.Entry.clone()
		entry.Disease = healthyDisease
		kb.healthy = append(kb.healthy, KeyedHealthy{Key: h.Key, Entry: entry})
	}

	if len(problems) > 0 {
		return nil, errors.New(errors.Join(problems...)).
			Component("knowledge").
			Category(errors.CategoryKnowledge).
			Context("problems", len(problems)).
			Build()
	}

	return kb, nil
}

func validateKey(key string) error {
	crop, disease, ok := strings.Cut(key, labelSeparator)
	if !ok || crop == "" || disease == "" {
		return fmt.Errorf("key %q is not in Crop___Disease form", key)
	}
	if strings.TrimSpace(key) != key {
		return fmt.Errorf("key %q has surrounding whitespace", key)
	}
	return nil
}

// Disease returns the disease entry stored under key.
func (kb *KnowledgeBase) Disease(key string) (DiseaseEntry, bool) {
	e, ok := kb.diseases[key]
	if !ok {
		return DiseaseEntry{}, false
	}
	return e.clone(), true
}

// Healthy returns the healthy entry stored under key.
func (kb *KnowledgeBase) Healthy(key string) (HealthyEntry, bool) {
	for _, h := range kb.healthy {
		if h.Key == key {
			return h.Entry.clone(), true
		}
	}
	return HealthyEntry{}, false
}

// DiseaseKeys returns disease keys in source order.
func (kb *KnowledgeBase) DiseaseKeys() []string {
	return append([]string(nil), kb.diseaseOrder...)
}

// HealthyKeys returns healthy keys in lookup order.
func (kb *KnowledgeBase) HealthyKeys() []string {
	keys := make([]string, len(kb.healthy))
	for i, h := range kb.healthy {
		keys[i] = h.Key
	}
	return keys
}

// Len returns the total number of entries.
func (kb *KnowledgeBase) Len() int {
	return len(kb.diseases) + len(kb.healthy)
}

// Lookup returns the entry stored under an exact key from either table.
func (kb *KnowledgeBase) Lookup(key string) (Solution, bool) {
	if e, ok := kb.Disease(key); ok {
		return e, true
	}
	if h, ok := kb.Healthy(key); ok {
		return h, true
	}
	return nil, false
}
