// Package authflowrepo persists pending authorization flows between the
// redirect to the provider and the callback.
package authflowrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-openid-client/internal/keylock"
	"github.com/jrsteele09/go-openid-client/store"
)

// AuthFlowState is the pending flow recorded when the user is sent to the
// provider. It is keyed by the state parameter and consumed exactly once.
type AuthFlowState[I any] struct {
	ProviderID   string    `json:"provider_id"`
	CodeVerifier string    `json:"code_verifier"`
	RedirectURI  string    `json:"redirect_uri"`
	Nonce        string    `json:"nonce,omitempty"`
	Info         I         `json:"info"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repo stores AuthFlowState records in any store.Store.
type Repo[I any] struct {
	store store.Store[AuthFlowState[I]]
	locks *keylock.Locker
}

// New wraps s. Stores that do not implement store.Taker get their
// read-then-delete serialised per state with a key scoped lock.
func New[I any](s store.Store[AuthFlowState[I]]) *Repo[I] {
	return &Repo[I]{
		store: s,
		locks: keylock.New(),
	}
}

// Upsert stores the flow under state for ttl.
func (r *Repo[I]) Upsert(ctx context.Context, state string, flow *AuthFlowState[I], ttl time.Duration) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}
	return r.store.Set(ctx, store.StringKey(state), *flow, ttl)
}

// Get returns the flow recorded under state without consuming it.
func (r *Repo[I]) Get(ctx context.Context, state string) (*AuthFlowState[I], bool, error) {
	if state == "" {
		return nil, false, nil
	}
	flow, ok, err := r.store.Get(ctx, store.StringKey(state))
	if err != nil || !ok {
		return nil, false, err
	}
	return &flow, true, nil
}

// Take removes the flow recorded under state and returns it. Of several
// concurrent calls for the same state at most one gets the flow.
func (r *Repo[I]) Take(ctx context.Context, state string) (*AuthFlowState[I], bool, error) {
	if state == "" {
		return nil, false, nil
	}
	key := store.StringKey(state)

	if taker, ok := r.store.(store.Taker[AuthFlowState[I]]); ok {
		flow, ok, err := taker.Take(ctx, key)
		if err != nil || !ok {
			return nil, false, err
		}
		return &flow, true, nil
	}

	unlock := r.locks.Lock(key.String())
	defer unlock()

	flow, ok, err := r.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return nil, false, err
	}
	return &flow, true, nil
}

// Delete discards the flow recorded under state.
func (r *Repo[I]) Delete(ctx context.Context, state string) error {
	if state == "" {
		return nil
	}
	return r.store.Delete(ctx, store.StringKey(state))
}
