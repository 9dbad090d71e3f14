package diagnosis

import "strings"

// Fixed fallback texts
const (
	healthyFallbackCrop    = "Plant"
	healthyFallbackMessage = "Your plant appears healthy!"
	healthyFallbackTip     = "Continue good agricultural practices"
	unknownMessage         = "No specific solution available for this disease."
	unknownRecommendation  = "Please consult with a local agricultural extension officer or plant pathologist."
)

// Resolver maps labels to knowledge base entries.
type Resolver struct {
	kb *KnowledgeBase
}

// NewResolver returns a Resolver backed by kb.
func NewResolver(kb *KnowledgeBase) *Resolver {
	return &Resolver{kb: kb}
}

// KnowledgeBase returns the backing knowledge base.
func (r *Resolver) KnowledgeBase() *KnowledgeBase {
	return r.kb
}

// Canonicalize rewrites "Crop Disease name" as "Crop___Disease_name".
// Labels without a space are returned unchanged.
func Canonicalize(label string) string {
	crop, rest, ok := strings.Cut(label, " ")
	if !ok {
		return label
	}
	return crop + labelSeparator + strings.ReplaceAll(rest, " ", "_")
}

// Resolve finds guidance for label. It tries, in order:
//
//  1. the healthy table, when the canonical label mentions "healthy"
//  2. the disease table by canonical label
//  3. the disease table by the label as given
//  4. an unknown-disease fallback
//
// Healthy lookup walks the table in order and takes the first key that equals
// the canonical label, contains the given label, or is contained in the
// canonical label. With no match a generic healthy fallback is returned.
func (r *Resolver) Resolve(label string) Solution {
	canonical := Canonicalize(strings.TrimSpace(label))

	if strings.Contains(strings.ToLower(canonical), "healthy") {
		for _, h := range r.kb.healthy {
			if canonical == h.Key || strings.Contains(h.Key, label) || strings.Contains(canonical, h.Key) {
				return h.Entry.clone()
			}
		}
		return healthyFallback(canonical)
	}

	if e, ok := r.kb.Disease(canonical); ok {
		return e
	}

	if e, ok := r.kb.Disease(label); ok {
		return e
	}

	return unknownFallback(label)
}

func healthyFallback(canonical string) Fallback {
	crop := healthyFallbackCrop
	if before, _, ok := strings.Cut(canonical, labelSeparator); ok {
		crop = before
	}
	return Fallback{
		Crop:        crop,
		Disease:     healthyDisease,
		Message:     healthyFallbackMessage,
		Maintenance: []string{healthyFallbackTip},
		Healthy:     true,
	}
}

func unknownFallback(label string) Fallback {
	crop, disease := unknownCrop, label
	if before, after, ok := strings.Cut(label, " "); ok {
		crop, disease = before, after
	}
	return Fallback{
		Crop:           crop,
		Disease:        disease,
		Message:        unknownMessage,
		Recommendation: unknownRecommendation,
	}
}
