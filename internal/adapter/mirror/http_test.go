package mirror_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/adapter/mirror"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMirror(t *testing.T) {
	doc := domain.Document{Products: []domain.Product{
		{ID: "p1", Name: "Cap", Price: 3, Images: []string{}},
	}}

	t.Run("PostsDocument", func(t *testing.T) {
		var got map[string][]map[string]any
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/save-store", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(http.StatusOK)
			}))
		defer srv.Close()

		m, err := mirror.NewHTTPMirror(srv.URL + "/api/save-store")
		require.NoError(t, err)
		require.NoError(t, m.MirrorDocument(t.Context(), doc))

		require.Len(t, got["products"], 1)
		assert.Equal(t, "p1", got["products"][0]["id"])
	})

	t.Run("NoRetryByDefault", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
		defer srv.Close()

		m, err := mirror.NewHTTPMirror(srv.URL)
		require.NoError(t, err)
		assert.Error(t, m.MirrorDocument(t.Context(), doc))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("BoundedRetry", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			}))
		defer srv.Close()

		m, err := mirror.NewHTTPMirror(srv.URL, mirror.RetryOpt(3, time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, m.MirrorDocument(t.Context(), doc))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("ClientErrorIsNotRetried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusBadRequest)
			}))
		defer srv.Close()

		m, err := mirror.NewHTTPMirror(srv.URL, mirror.RetryOpt(5, time.Millisecond))
		require.NoError(t, err)
		err = m.MirrorDocument(t.Context(), doc)
		assert.ErrorIs(t, err, mirror.ErrRejected)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		m, err := mirror.NewHTTPMirror(url)
		require.NoError(t, err)
		assert.Error(t, m.MirrorDocument(t.Context(), doc))
	})

	t.Run("InvalidOpts", func(t *testing.T) {
		_, err := mirror.NewHTTPMirror("")
		assert.Error(t, err)

		_, err = mirror.NewHTTPMirror("http://x", mirror.RetryOpt(0, 0))
		assert.Error(t, err)

		_, err = mirror.NewHTTPMirror("http://x", mirror.RetryOpt(2, 0))
		assert.Error(t, err)

		_, err = mirror.NewHTTPMirror("http://x", mirror.RetryOpt(1, 0))
		assert.NoError(t, err)

		_, err = mirror.NewHTTPMirror("http://x", mirror.ClientOpt(nil))
		assert.Error(t, err)
	})
}
