package providers

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-openid-client/idtoken"
)

// lazyVerifier defers building a verifier until the first token arrives,
// so constructing a provider never touches the network. A failed build is
// retried on the next call.
type lazyVerifier struct {
	ctx   context.Context
	build func(context.Context) (idtoken.Verifier, error)

	mu       sync.Mutex
	verifier idtoken.Verifier
}

func newLazyVerifier(ctx context.Context, build func(context.Context) (idtoken.Verifier, error)) *lazyVerifier {
	return &lazyVerifier{ctx: ctx, build: build}
}

func (l *lazyVerifier) Verify(ctx context.Context, raw string) (*idtoken.Claims, error) {
	verifier, err := l.get()
	if err != nil {
		return nil, err
	}
	return verifier.Verify(ctx, raw)
}

func (l *lazyVerifier) get() (idtoken.Verifier, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.verifier != nil {
		return l.verifier, nil
	}
	verifier, err := l.build(l.ctx)
	if err != nil {
		return nil, err
	}
	l.verifier = verifier
	return verifier, nil
}
