// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_PutLookupList(t *testing.T) {
	m, err := OpenManifest(t.TempDir())
	require.NoError(t, err)
	defer m.Close()
	ctx := context.Background()

	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.Put(ctx, CacheEntry{ArxivID: "2301.12345", Path: "c/2301.12345.pdf", SourceURL: "u1", Size: 10, SHA256: "aa", PageCount: 3, FetchedAt: fetched}))
	require.NoError(t, m.Put(ctx, CacheEntry{ArxivID: "1706.03762", Path: "c/1706.03762.pdf", Size: 20, PageCount: 15, FetchedAt: fetched}))

	e, ok, err := m.Lookup(ctx, "2301.12345")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", e.SourceURL)
	assert.Equal(t, int64(10), e.Size)
	assert.Equal(t, 3, e.PageCount)
	assert.True(t, fetched.Equal(e.FetchedAt))

	_, ok, err = m.Lookup(ctx, "9999.99999")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1706.03762", entries[0].ArxivID)
	assert.Equal(t, "2301.12345", entries[1].ArxivID)
}

func TestManifest_PutReplacesEnsureDoesNot(t *testing.T) {
	m, err := OpenManifest(t.TempDir())
	require.NoError(t, err)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, CacheEntry{ArxivID: "2301.12345", Path: "p", PageCount: 1}))
	require.NoError(t, m.Ensure(ctx, CacheEntry{ArxivID: "2301.12345", Path: "p", PageCount: 9}))

	e, _, err := m.Lookup(ctx, "2301.12345")
	require.NoError(t, err)
	assert.Equal(t, 1, e.PageCount)

	require.NoError(t, m.Put(ctx, CacheEntry{ArxivID: "2301.12345", Path: "p", PageCount: 2}))
	e, _, err = m.Lookup(ctx, "2301.12345")
	require.NoError(t, err)
	assert.Equal(t, 2, e.PageCount)
}

func TestManifest_ReopenKeepsRows(t *testing.T) {
	dir := t.TempDir()
	m, err := OpenManifest(dir)
	require.NoError(t, err)
	require.NoError(t, m.Put(context.Background(), CacheEntry{ArxivID: "2301.12345", Path: "p"}))
	require.NoError(t, m.Close())

	m2, err := OpenManifest(dir)
	require.NoError(t, err)
	defer m2.Close()
	entries, err := m2.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
