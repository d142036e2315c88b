package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnforcerHonorsDisallow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var robotsHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			fmt.Fprintln(w, "User-agent: *\nDisallow: /private")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	enforcer := New(true, "eventlens-bot/0.1", zap.NewNop())
	require.True(t, enforcer.Allowed(ctx, srv.URL+"/events"))
	require.False(t, enforcer.Allowed(ctx, srv.URL+"/private/page"))

	// Rules are cached per host.
	require.True(t, enforcer.Allowed(ctx, srv.URL+"/other"))
	require.Equal(t, int64(1), robotsHits.Load())
}

func TestEnforcerAllowsWhenRobotsUnreachable(t *testing.T) {
	t.Parallel()

	enforcer := New(true, "eventlens-bot/0.1", zap.NewNop())
	require.True(t, enforcer.Allowed(context.Background(), "http://127.0.0.1:1/anything"))
}

func TestDisabledPolicyAllowsEverything(t *testing.T) {
	t.Parallel()

	policy := New(false, "eventlens-bot/0.1", nil)
	require.True(t, policy.Allowed(context.Background(), "https://example.com/private"))
}
