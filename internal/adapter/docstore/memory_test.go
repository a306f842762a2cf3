package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelUpdates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "things", "t1", Doc{
		"count":  int64(1),
		"tags":   []interface{}{"a"},
		"nested": map[string]interface{}{"keep": true, "drop": true},
	}))

	err := store.Update(ctx, "things", "t1", []Update{
		{Path: "count", Value: Increment(2)},
		{Path: "tags", Value: ArrayUnion("b", "a")},
		{Path: "nested.drop", Value: DeleteField()},
	})
	require.NoError(t, err)

	snap, err := store.Get(ctx, "things", "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Data["count"])
	assert.Equal(t, []interface{}{"a", "b"}, snap.Data["tags"])
	assert.Equal(t, map[string]interface{}{"keep": true}, snap.Data["nested"])

	err = store.Update(ctx, "things", "t1", []Update{
		{Path: "tags", Value: ArrayRemove("a")},
	})
	require.NoError(t, err)

	snap, err = store.Get(ctx, "things", "t1")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"b"}, snap.Data["tags"])
}

func TestUpdateMissingDoc(t *testing.T) {
	store := NewMemoryStore()

	err := store.Update(context.Background(), "things", "absent", []Update{
		{Path: "count", Value: Increment(1)},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchRejectsOversizedCommit(t *testing.T) {
	store := NewMemoryStore()

	batch := store.Batch()
	for i := 0; i <= MaxBatchSize; i++ {
		batch.Delete("things", "t")
	}
	assert.Error(t, batch.Commit(context.Background()))
}

func TestTransactionRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "things", "t1", Doc{"count": int64(1)}))

	boom := errors.New("abort")
	err := store.RunTransaction(ctx, func(tx Tx) error {
		if err := tx.Update("things", "t1", []Update{{Path: "count", Value: Increment(5)}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, err := store.Get(ctx, "things", "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Data["count"])
}

func TestSubscribeCoalescesBursts(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := store.Subscribe(ctx, Query{Path: "things"})
	require.NoError(t, err)

	initial := <-feed
	assert.Empty(t, initial)

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Put(ctx, "things", "t1", Doc{"rev": int64(i)}))
	}

	// A burst of writes may collapse into fewer emissions; the final
	// emission always reflects the latest state.
	deadline := time.After(time.Second)
	for {
		select {
		case snaps := <-feed:
			if len(snaps) == 1 && snaps[0].Data["rev"] == int64(9) {
				return
			}
		case <-deadline:
			t.Fatal("never observed the final revision")
		}
	}
}

func TestQueryFilterOrderLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i, owner := range []string{"alice", "alice", "bob", "alice"} {
		require.NoError(t, store.Put(ctx, "items", string(rune('a'+i)), Doc{
			"owner":     owner,
			"createdAt": base.Add(time.Duration(i) * time.Second),
		}))
	}

	snaps, err := store.Query(ctx, Query{
		Path:    "items",
		Filters: []Filter{{Path: "owner", Op: OpEqual, Value: "alice"}},
		OrderBy: []Order{{Path: "createdAt", Desc: true}},
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "d", snaps[0].ID)
	assert.Equal(t, "b", snaps[1].ID)
}
