package httptransport

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/cookies"
	"authgate/pkg/sentinel"
)

func TestHandleLogout(t *testing.T) {
	t.Run("clears cookies and bounces through the IdP", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().ValidateRedirect("https://app.example.com/bye").Return(nil)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet,
			"/logout?return_to=https%3A%2F%2Fapp.example.com%2Fbye", nil))

		require.Equal(t, http.StatusFound, rec.Code)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "tenant.auth.example.com", location.Host)
		assert.Equal(t, "/v2/logout", location.Path)
		assert.Equal(t, "client-id", location.Query().Get("client_id"))
		assert.Equal(t,
			testPublicURL+"/logout/callback?return_to=https%3A%2F%2Fapp.example.com%2Fbye",
			location.Query().Get("returnTo"))

		access := cookieByName(t, rec, cookies.AccessTokenName)
		assert.Empty(t, access.Value)
		assert.Equal(t, -1, access.MaxAge)

		refresh := cookieByName(t, rec, cookies.RefreshTokenName)
		assert.Empty(t, refresh.Value)
		assert.Equal(t, -1, refresh.MaxAge)
	})

	t.Run("POST works the same as GET", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().ValidateRedirect("").Return(nil)

		rec := doRequest(router, httptest.NewRequest(http.MethodPost, "/logout", nil))

		require.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("off-list return_to is a 400", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().ValidateRedirect("https://evil.example.com").Return(sentinel.ErrInvalidRedirect)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet,
			"/logout?return_to=https%3A%2F%2Fevil.example.com", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"invalid return_to"}`, rec.Body.String())
		assert.Empty(t, rec.Result().Cookies(), "cookies untouched on rejection")
	})
}

func TestHandleLogoutCallback(t *testing.T) {
	t.Run("forwards a valid return_to", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().ValidateRedirect("https://app.example.com/bye").Return(nil)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet,
			"/logout/callback?return_to=https%3A%2F%2Fapp.example.com%2Fbye", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://app.example.com/bye", rec.Header().Get("Location"))
	})

	t.Run("round-tripped value is re-validated", func(t *testing.T) {
		hm, router := newTestRouter(t)
		hm.flow.EXPECT().ValidateRedirect("https://tampered.example.com").Return(sentinel.ErrInvalidRedirect)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet,
			"/logout/callback?return_to=https%3A%2F%2Ftampered.example.com", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("missing return_to falls back to root", func(t *testing.T) {
		_, router := newTestRouter(t)

		rec := doRequest(router, httptest.NewRequest(http.MethodGet, "/logout/callback", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})
}
