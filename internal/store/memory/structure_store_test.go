package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventlens/crawler/internal/ingest"
)

func TestStructureStore_FirstVersionIsOne(t *testing.T) {
	t.Parallel()

	s := NewStructureStore()
	created, err := s.CreateStructure(context.Background(), "st-1", map[string]any{"title": "str"}, time.Unix(100, 0))

	require.NoError(t, err)
	require.Equal(t, 1, created.Version)
	require.True(t, created.IsActive)
}

func TestStructureStore_CreationDeactivatesPrior(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStructureStore()

	for i := 1; i <= 5; i++ {
		created, err := s.CreateStructure(ctx, fmt.Sprintf("st-%d", i), map[string]any{"n": float64(i)}, time.Unix(int64(i), 0))
		require.NoError(t, err)
		require.Equal(t, i, created.Version)

		all, err := s.ListStructures(ctx)
		require.NoError(t, err)
		active := 0
		for _, st := range all {
			if st.IsActive {
				active++
				require.Equal(t, i, st.Version)
			}
		}
		require.Equal(t, 1, active)
	}
}

func TestStructureStore_GetActiveBeforeAnyCreation(t *testing.T) {
	t.Parallel()

	s := NewStructureStore()
	_, err := s.GetActiveStructure(context.Background())
	require.ErrorIs(t, err, ingest.ErrNoActiveStructure)
}

func TestStructureStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStructureStore()
	for i := 1; i <= 3; i++ {
		_, err := s.CreateStructure(ctx, fmt.Sprintf("st-%d", i), nil, time.Unix(int64(i), 0))
		require.NoError(t, err)
	}

	all, err := s.ListStructures(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 3, all[0].Version)
	require.Equal(t, 1, all[2].Version)
}

func TestStructureStore_StoredFieldsAreImmutable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStructureStore()
	fields := map[string]any{"title": "str"}
	_, err := s.CreateStructure(ctx, "st-1", fields, time.Unix(1, 0))
	require.NoError(t, err)

	fields["title"] = "mutated"

	active, err := s.GetActiveStructure(ctx)
	require.NoError(t, err)
	require.Equal(t, "str", active.Fields["title"])
}
