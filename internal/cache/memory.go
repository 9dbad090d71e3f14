package cache

import (
	"context"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tphakala/cropdoc/internal/classifier"
)

// Memory is an in-process store backed by go-cache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates an in-process store whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, 2*ttl)}
}

// Get returns a copy of the cached predictions.
func (m *Memory) Get(_ context.Context, key string) ([]classifier.Prediction, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	preds, ok := v.([]classifier.Prediction)
	if !ok {
		m.c.Delete(key)
		return nil, false, nil
	}
	return slices.Clone(preds), true, nil
}

// Set stores a copy of preds with the default expiration.
func (m *Memory) Set(_ context.Context, key string, preds []classifier.Prediction) error {
	m.c.SetDefault(key, slices.Clone(preds))
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

// Close drops all entries.
func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}
