package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newStore(t *testing.T) *EventStore {
	t.Helper()
	store, err := NewEventStore(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndListNewestFirst(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Append("emergency_break", "Published brake for V1: critical-near"))
	require.NoError(t, store.Append("brake_status", "V1 reported brake_applied"))

	events, p, err := store.List(1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "brake_status", events[0].Type, "newest first")
	assert.Equal(t, "emergency_break", events[1].Type)
	assert.Equal(t, "Published brake for V1: critical-near", events[1].Details)
	assert.NotEmpty(t, events[0].Timestamp)
	assert.Equal(t, 2, p.TotalCount)
	assert.Equal(t, 1, p.TotalPages)
}

func TestListPagination(t *testing.T) {
	store := newStore(t)
	for i := 0; i < 250; i++ {
		require.NoError(t, store.Append("error", fmt.Sprintf("event %d", i)))
	}

	tests := []struct {
		name       string
		page       int
		wantLen    int
		wantPage   int
		wantNext   bool
		wantPrev   bool
		firstEvent string
	}{
		{"first page", 1, 100, 1, true, false, "event 249"},
		{"middle page", 2, 100, 2, true, true, "event 149"},
		{"short last page", 3, 50, 3, false, true, "event 49"},
		{"past the end", 4, 0, 4, false, true, ""},
		{"page clamped to 1", 0, 100, 1, true, false, "event 249"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, p, err := store.List(tt.page, 100)
			require.NoError(t, err)
			assert.Len(t, events, tt.wantLen)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, 250, p.TotalCount)
			assert.Equal(t, 3, p.TotalPages)
			assert.Equal(t, tt.wantNext, p.HasNext)
			assert.Equal(t, tt.wantPrev, p.HasPrev)
			if tt.firstEvent != "" {
				assert.Equal(t, tt.firstEvent, events[0].Details)
			}
		})
	}
}

func TestListDefaultLimit(t *testing.T) {
	store := newStore(t)
	for i := 0; i < 120; i++ {
		require.NoError(t, store.Append("error", "x"))
	}

	events, p, err := store.List(1, 0)
	require.NoError(t, err)
	assert.Len(t, events, 100)
	assert.Equal(t, 100, p.Limit)
	assert.True(t, p.HasNext)
}

func TestCount(t *testing.T) {
	store := newStore(t)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.Append("error", "x"))
	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
