// Package credential obtains and caches the signed credentials the
// target platform requires for its backlink endpoints.
//
// A fresh credential is expensive: it needs a remote CAPTCHA solve
// (up to ~30 s, metered against the solving service's quota) followed
// by a signature exchange. The Provider therefore serves from the
// cache whenever the cached credential is still inside its validity
// window and only drives the solve+mint pipeline on a miss.
package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/credcache"
	"go.uber.org/zap"
)

// ErrUnavailable is returned by Obtain when every avenue of acquiring a
// credential has been exhausted.
var ErrUnavailable = errors.New("credential unavailable")

// Solver obtains an anti-bot verification token for a challenge page.
// *solver.Client satisfies this interface.
type Solver interface {
	Solve(ctx context.Context, siteURL string) (string, bool)
}

// Minter exchanges a verification token for a signed credential.
// *Exchange satisfies this interface.
type Minter interface {
	Mint(ctx context.Context, token, subject string) (*credcache.Credential, bool)
}

// Provider returns a valid signed credential for a subject, reusing a
// cached one when possible.
type Provider struct {
	store  credcache.Store
	solver Solver
	minter Minter
	logger *zap.Logger
}

// NewProvider creates a Provider.
func NewProvider(store credcache.Store, solver Solver, minter Minter, logger *zap.Logger) *Provider {
	return &Provider{store: store, solver: solver, minter: minter, logger: logger}
}

// Obtain returns a valid credential for subject. The cache is the fast
// path; on a miss it solves the challenge embedded on siteURL and mints
// a fresh credential. There is no retry beyond the solver's bounded
// polling: a failure surfaces as ErrUnavailable with the reason wrapped.
func (p *Provider) Obtain(ctx context.Context, subject, siteURL string) (*credcache.Credential, error) {
	if cred, ok := p.store.Load(subject); ok {
		p.logger.Debug("credential served from cache",
			zap.String("subject", subject),
			zap.String("valid_until", cred.ValidUntil),
		)
		cacheHits.Inc()
		return cred, nil
	}
	cacheMisses.Inc()

	token, ok := p.solver.Solve(ctx, siteURL)
	if !ok {
		solves.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: token acquisition failed for %q", ErrUnavailable, subject)
	}
	solves.WithLabelValues("success").Inc()

	cred, ok := p.minter.Mint(ctx, token, subject)
	if !ok {
		mints.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: signature exchange failed for %q", ErrUnavailable, subject)
	}
	mints.WithLabelValues("success").Inc()

	return cred, nil
}
