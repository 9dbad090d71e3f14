package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEachBatches(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Hour)
	for i := range 5 {
		require.NoError(t, store.Save(testScan("Tomato", "Early Blight", "DISEASED", base.Add(time.Duration(i)*time.Minute))))
	}

	var sizes []int
	err := store.Each(t.Context(), 2, func(scans []Scan) error {
		sizes = append(sizes, len(scans))
		for _, s := range scans {
			assert.Len(t, s.Predictions, 2)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestEachStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testScan("Apple", "Scab", "DISEASED", time.Now())))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := store.Each(ctx, 10, func([]Scan) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestCopy(t *testing.T) {
	src := newTestStore(t)
	dst := newTestStore(t)

	created := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	first := testScan("Potato", "Late Blight", "DISEASED", created)
	require.NoError(t, src.Save(first))
	require.NoError(t, src.Save(testScan("Grape", "Healthy", "HEALTHY", created.Add(time.Minute))))

	// already present in the target
	existing := *first
	existing.ID = 0
	existing.Predictions = nil
	require.NoError(t, dst.Save(&existing))

	result, err := Copy(t.Context(), src, dst, 1)
	require.NoError(t, err)
	assert.Equal(t, CopyResult{Copied: 1, Skipped: 1}, result)

	_, total, err := dst.List(ScanFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	again, err := Copy(t.Context(), src, dst, 10)
	require.NoError(t, err)
	assert.Equal(t, CopyResult{Skipped: 2}, again)
}

func TestCopyKeepsPredictions(t *testing.T) {
	src := newTestStore(t)
	dst := newTestStore(t)

	scan := testScan("Corn", "Common Rust", "DISEASED", time.Now())
	require.NoError(t, src.Save(scan))

	_, err := Copy(t.Context(), src, dst, 0)
	require.NoError(t, err)

	got, err := dst.Get(scan.PublicID)
	require.NoError(t, err)
	require.Len(t, got.Predictions, 2)
	assert.Equal(t, "Corn___Common Rust", got.Predictions[0].Label)
	assert.Equal(t, "Common Rust", got.Disease)
}
