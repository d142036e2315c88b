package fetcher

import (
	"context"
	"fmt"

	"github.com/eventlens/crawler/internal/ingest"
)

// Promoter decides whether a static result warrants a rendered re-fetch.
type Promoter interface {
	ShouldPromote(result ingest.FetchResult) bool
}

// Waiter throttles outbound requests per domain.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Gate blocks URLs that crawl policy forbids.
type Gate interface {
	Allowed(ctx context.Context, url string) bool
}

// Router dispatches fetch requests to the static or rendered fetcher based
// on the request mode. With a Promoter configured, a static result that
// looks script-dependent is transparently re-fetched rendered.
type Router struct {
	static   ingest.Fetcher
	rendered ingest.Fetcher
	promoter Promoter
	limiter  Waiter
	gate     Gate
}

// RouterOption customizes a Router.
type RouterOption func(*Router)

// WithPromoter enables static-to-rendered promotion.
func WithPromoter(p Promoter) RouterOption {
	return func(r *Router) { r.promoter = p }
}

// WithLimiter applies per-domain politeness before every outbound fetch.
func WithLimiter(w Waiter) RouterOption {
	return func(r *Router) { r.limiter = w }
}

// WithGate rejects URLs the gate disallows, typically per robots.txt.
func WithGate(g Gate) RouterOption {
	return func(r *Router) { r.gate = g }
}

// NewRouter builds a Router. rendered may be nil when headless fetching is
// unavailable; rendered requests then use the static fetcher.
func NewRouter(static, rendered ingest.Fetcher, opts ...RouterOption) *Router {
	r := &Router{static: static, rendered: rendered}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch selects the fetcher for the request mode.
func (r *Router) Fetch(ctx context.Context, req ingest.FetchRequest) (ingest.FetchResult, error) {
	if r.gate != nil && !r.gate.Allowed(ctx, req.URL) {
		return ingest.FetchResult{}, fmt.Errorf("robots.txt disallows %s", req.URL)
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, req.URL); err != nil {
			return ingest.FetchResult{}, err
		}
	}

	if req.Mode == ingest.RenderModeRendered && r.rendered != nil {
		return r.rendered.Fetch(ctx, req)
	}

	result, err := r.static.Fetch(ctx, req)
	if err != nil {
		return result, err
	}
	if r.promoter != nil && r.rendered != nil && r.promoter.ShouldPromote(result) {
		return r.rendered.Fetch(ctx, req)
	}
	return result, nil
}
