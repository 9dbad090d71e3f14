// internal/api/v2/knowledge.go
package api

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/cropdoc/internal/diagnosis"
)

// KnowledgeEntryResponse is one knowledge base entry with its key.
type KnowledgeEntryResponse struct {
	Key   string                 `json:"key"`
	Kind  diagnosis.SolutionKind `json:"kind"`
	Entry diagnosis.Solution     `json:"entry"`
}

// KnowledgeListResponse lists the knowledge base.
type KnowledgeListResponse struct {
	Total   int                      `json:"total"`
	Entries []KnowledgeEntryResponse `json:"entries"`
}

// ListKnowledge handles GET /api/v2/knowledge. The optional kind query
// parameter restricts the list to disease or healthy entries.
func (c *Controller) ListKnowledge(ctx echo.Context) error {
	kb := c.Analyzer.Resolver().KnowledgeBase()
	kind := diagnosis.SolutionKind(ctx.QueryParam("kind"))

	var keys []string
	switch kind {
	case "":
		keys = append(kb.DiseaseKeys(), kb.HealthyKeys()...)
	case diagnosis.KindDisease:
		keys = kb.DiseaseKeys()
	case diagnosis.KindHealthy:
		keys = kb.HealthyKeys()
	default:
		return c.HandleError(ctx, nil, "kind must be disease or healthy", http.StatusBadRequest)
	}

	resp := KnowledgeListResponse{Entries: make([]KnowledgeEntryResponse, 0, len(keys))}
	for _, key := range keys {
		sol, ok := kb.Lookup(key)
		if !ok {
			continue
		}
		resp.Entries = append(resp.Entries, KnowledgeEntryResponse{Key: key, Kind: sol.Kind(), Entry: sol})
	}
	resp.Total = len(resp.Entries)

	return ctx.JSON(http.StatusOK, resp)
}

// GetKnowledgeEntry handles GET /api/v2/knowledge/:label. The label is
// resolved through the full lookup cascade, so unknown labels return their
// fallback with kind "fallback" rather than 404. Pass exact=true to require
// an exact key match.
func (c *Controller) GetKnowledgeEntry(ctx echo.Context) error {
	label, err := url.PathUnescape(ctx.Param("label"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid label", http.StatusBadRequest)
	}

	if ctx.QueryParam("exact") == "true" {
		sol, ok := c.Analyzer.Resolver().KnowledgeBase().Lookup(label)
		if !ok {
			return c.HandleError(ctx, nil, "Knowledge base entry not found", http.StatusNotFound)
		}
		return ctx.JSON(http.StatusOK, KnowledgeEntryResponse{Key: label, Kind: sol.Kind(), Entry: sol})
	}

	sol := c.Analyzer.Resolver().Resolve(label)
	return ctx.JSON(http.StatusOK, KnowledgeEntryResponse{
		Key:   diagnosis.Canonicalize(label),
		Kind:  sol.Kind(),
		Entry: sol,
	})
}
