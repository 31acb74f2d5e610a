package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signal-research/internal/resilience"
	"github.com/sells-group/signal-research/pkg/exa"
)

func TestExa_ContentRetriesWithRealClient(t *testing.T) {
	var contentCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			_, _ = w.Write([]byte(`{"results":[{"title":"Grid study","url":"https://example.org/article","snippet":"Load grew."}]}`))
		case "/contents":
			contentCalls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := exa.NewClient("test-key",
		exa.WithBaseURL(srv.URL),
		exa.WithRetryPolicy(resilience.FromSettings(3, 1, 1)),
	)
	cfg := testExaConfig()
	cfg.ContentRetries = 2
	e := newTestExa(client, cfg)

	items, err := e.Fetch(context.Background(), "grid load")
	require.NoError(t, err)

	assert.Equal(t, int32(3), contentCalls.Load(), "one request plus content_retries")
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.org/article", items[0].URL)
	assert.True(t, strings.HasPrefix(items[0].Content, "Information available at the source: Load grew."))
}
