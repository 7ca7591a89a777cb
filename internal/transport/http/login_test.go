package httptransport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"authgate/pkg/sentinel"
)

func TestHandleLoginPage(t *testing.T) {
	t.Run("renders a link per provider", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().ValidateRedirect("").Return(nil)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet, "/login", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), `href="/login/google"`)
		assert.Contains(t, rec.Body.String(), "Continue with Google")
	})

	t.Run("propagates redirect_uri into provider links", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().ValidateRedirect("https://app.example.com/dash").Return(nil)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet,
			"/login?redirect_uri=https%3A%2F%2Fapp.example.com%2Fdash", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "/login/google?redirect_uri=https%3A%2F%2Fapp.example.com%2Fdash")
	})

	t.Run("rejects a bad redirect_uri before rendering", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().ValidateRedirect("https://evil.example.com").Return(sentinel.ErrInvalidRedirect)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet,
			"/login?redirect_uri=https%3A%2F%2Fevil.example.com", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"invalid redirect_uri"}`, rec.Body.String())
	})
}

func TestHandleLoginProvider(t *testing.T) {
	t.Run("redirects to the authorize URL", func(t *testing.T) {
		hm, router := newTestRouter(t)
		authorizeURL := "https://tenant.auth.example.com/authorize?state=abc"
		hm.flow.EXPECT().
			Begin(gomock.Any(), "google", "https://app.example.com/dash").
			Return(authorizeURL, nil)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet,
			"/login/google?redirect_uri=https%3A%2F%2Fapp.example.com%2Fdash", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, authorizeURL, rec.Header().Get("Location"))
	})

	t.Run("bad redirect_uri is a 400", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().
			Begin(gomock.Any(), "google", gomock.Any()).
			Return("", sentinel.ErrInvalidRedirect)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet,
			"/login/google?redirect_uri=nope", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"invalid redirect_uri"}`, rec.Body.String())
	})

	t.Run("unknown provider is a 400", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().
			Begin(gomock.Any(), "myspace", "").
			Return("", sentinel.ErrUnsupportedProvider)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet, "/login/myspace", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unsupported provider")
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().
			Begin(gomock.Any(), "google", "").
			Return("", errors.New("redis down"))

		rec := doRequest(router, httptest.NewRequest(http.MethodGet, "/login/google", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	})

}
