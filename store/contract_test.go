package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-openid-client/store"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type contractStore interface {
	store.Store[string]
	store.Taker[string]
}

// storeFactory builds a fresh store and a function that moves its notion of
// time forward.
type storeFactory func(t *testing.T, observers store.Observers[string]) (contractStore, func(time.Duration))

func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("missing key is absent", func(t *testing.T) {
		s, _ := newStore(t, store.Observers[string]{})
		value, ok, err := s.Get(ctx, store.StringKey("nope"))
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, value)

		empty, err := s.IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		s, _ := newStore(t, store.Observers[string]{})
		key := store.StringKey("k")
		require.NoError(t, s.Set(ctx, key, "v1", 0))
		require.NoError(t, s.Set(ctx, key, "v2", 0))

		value, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v2", value)

		empty, err := s.IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})

	t.Run("tuple keys are positional", func(t *testing.T) {
		s, _ := newStore(t, store.Observers[string]{})
		require.NoError(t, s.Set(ctx, store.MustKey("A", "B"), "ab", 0))
		require.NoError(t, s.Set(ctx, store.MustKey("B", "A"), "ba", 0))
		require.NoError(t, s.Set(ctx, store.MustKey(1), "int", 0))
		require.NoError(t, s.Set(ctx, store.MustKey("1"), "string", 0))

		for _, tc := range []struct {
			key  store.Key
			want string
		}{
			{store.MustKey("A", "B"), "ab"},
			{store.MustKey("B", "A"), "ba"},
			{store.MustKey(1), "int"},
			{store.MustKey("1"), "string"},
			{store.StringKey("1"), "string"},
		} {
			value, ok, err := s.Get(ctx, tc.key)
			require.NoError(t, err)
			require.True(t, ok, tc.key.String())
			require.Equal(t, tc.want, value)
		}
	})

	t.Run("ttl boundary", func(t *testing.T) {
		s, advance := newStore(t, store.Observers[string]{})
		key := store.StringKey("short")
		require.NoError(t, s.Set(ctx, key, "v", time.Second))
		require.NoError(t, s.Set(ctx, store.StringKey("other"), "o", 0))

		advance(999 * time.Millisecond)
		value, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v", value)

		// writes to other keys do not extend the entry
		require.NoError(t, s.Set(ctx, store.StringKey("another"), "x", 0))
		require.NoError(t, s.Delete(ctx, store.StringKey("another")))

		advance(2 * time.Millisecond)
		_, ok, err = s.Get(ctx, key)
		require.NoError(t, err)
		require.False(t, ok)

		_, ok, err = s.Take(ctx, key)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("entries without ttl persist", func(t *testing.T) {
		s, advance := newStore(t, store.Observers[string]{})
		key := store.StringKey("forever")
		require.NoError(t, s.Set(ctx, key, "v", 0))
		require.NoError(t, s.Set(ctx, store.StringKey("negative"), "n", -time.Second))

		advance(24 * time.Hour)
		_, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		_, ok, err = s.Get(ctx, store.StringKey("negative"))
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("overwrite replaces expiry", func(t *testing.T) {
		s, advance := newStore(t, store.Observers[string]{})
		key := store.StringKey("k")
		require.NoError(t, s.Set(ctx, key, "short", time.Second))
		require.NoError(t, s.Set(ctx, key, "long", time.Minute))

		advance(2 * time.Second)
		value, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "long", value)
	})

	t.Run("expired entries leave the store empty", func(t *testing.T) {
		s, advance := newStore(t, store.Observers[string]{})
		require.NoError(t, s.Set(ctx, store.StringKey("a"), "a", time.Second))
		require.NoError(t, s.Set(ctx, store.StringKey("b"), "b", 2*time.Second))

		advance(3 * time.Second)
		empty, err := s.IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)
	})

	t.Run("delete", func(t *testing.T) {
		s, _ := newStore(t, store.Observers[string]{})
		key := store.StringKey("k")
		require.NoError(t, s.Delete(ctx, key))
		require.NoError(t, s.Set(ctx, key, "v", time.Minute))
		require.NoError(t, s.Delete(ctx, key))

		_, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("take is single use", func(t *testing.T) {
		s, _ := newStore(t, store.Observers[string]{})
		key := store.StringKey("once")
		require.NoError(t, s.Set(ctx, key, "v", time.Minute))

		value, ok, err := s.Take(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v", value)

		_, ok, err = s.Take(ctx, key)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("concurrent take delivers at most once", func(t *testing.T) {
		s, _ := newStore(t, store.Observers[string]{})
		key := store.StringKey("race")
		require.NoError(t, s.Set(ctx, key, "v", time.Minute))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := s.Take(ctx, key)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})

	t.Run("observers run after mutation", func(t *testing.T) {
		var sets []string
		var deletes []string
		var existed []bool
		var s contractStore
		observers := store.Observers[string]{
			OnSet: func(ctx context.Context, key store.Key, value string) error {
				stored, ok, err := s.Get(ctx, key)
				require.NoError(t, err)
				require.True(t, ok)
				sets = append(sets, stored)
				return nil
			},
			OnDelete: func(ctx context.Context, key store.Key, previous string, ok bool) error {
				_, stillThere, err := s.Get(ctx, key)
				require.NoError(t, err)
				require.False(t, stillThere)
				deletes = append(deletes, previous)
				existed = append(existed, ok)
				return nil
			},
		}
		s, _ = newStore(t, observers)

		key := store.StringKey("k")
		require.NoError(t, s.Set(ctx, key, "v", 0))
		require.NoError(t, s.Delete(ctx, key))
		require.NoError(t, s.Delete(ctx, key))

		require.Equal(t, []string{"v"}, sets)
		require.Equal(t, []string{"v", ""}, deletes)
		require.Equal(t, []bool{true, false}, existed)
	})

	t.Run("observer errors propagate", func(t *testing.T) {
		errObserver := errors.New("observer failed")
		s, _ := newStore(t, store.Observers[string]{
			OnSet: func(context.Context, store.Key, string) error {
				return errObserver
			},
			OnDelete: func(context.Context, store.Key, string, bool) error {
				return errObserver
			},
		})

		key := store.StringKey("k")
		require.ErrorIs(t, s.Set(ctx, key, "v", 0), errObserver)

		// the mutation itself was applied
		value, ok, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "v", value)

		require.ErrorIs(t, s.Delete(ctx, key), errObserver)
		_, _, err = s.Take(ctx, key)
		require.ErrorIs(t, err, errObserver)
	})

	t.Run("zero key is rejected", func(t *testing.T) {
		s, _ := newStore(t, store.Observers[string]{})
		require.ErrorIs(t, s.Set(ctx, store.Key{}, "v", 0), store.ErrInvalidKey)
		_, _, err := s.Get(ctx, store.Key{})
		require.ErrorIs(t, err, store.ErrInvalidKey)
	})
}
