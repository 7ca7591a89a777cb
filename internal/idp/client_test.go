package idp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/platform/config"
)

var testCfg = config.IdP{
	Domain:       "tenant.auth.example.com",
	ClientID:     "client-id",
	ClientSecret: "client-secret",
}

// fakeTokenEndpoint records the request body and replies with the canned
// status and JSON body.
func fakeTokenEndpoint(t *testing.T, status int, respBody string, gotBody *map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth/token", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeCode(t *testing.T) {
	t.Run("sends the authorization_code grant and decodes tokens", func(t *testing.T) {
		var got map[string]string
		srv := fakeTokenEndpoint(t, http.StatusOK,
			`{"access_token":"at","refresh_token":"rt","id_token":"idt","token_type":"Bearer","expires_in":3600}`,
			&got)
		client := New(testCfg, WithBaseURL(srv.URL))

		tokens, err := client.ExchangeCode(context.Background(), "the-code", "the-verifier", "https://gw.example.com/callback")
		require.NoError(t, err)

		assert.Equal(t, "authorization_code", got["grant_type"])
		assert.Equal(t, "client-id", got["client_id"])
		assert.Equal(t, "client-secret", got["client_secret"])
		assert.Equal(t, "the-code", got["code"])
		assert.Equal(t, "the-verifier", got["code_verifier"])
		assert.Equal(t, "https://gw.example.com/callback", got["redirect_uri"])

		assert.Equal(t, "at", tokens.AccessToken)
		assert.Equal(t, "rt", tokens.RefreshToken)
		assert.Equal(t, "idt", tokens.IDToken)
		assert.Equal(t, 3600, tokens.ExpiresIn)
	})

	t.Run("surfaces the IdP's structured error", func(t *testing.T) {
		var got map[string]string
		srv := fakeTokenEndpoint(t, http.StatusForbidden,
			`{"error":"invalid_grant","error_description":"Invalid authorization code"}`,
			&got)
		client := New(testCfg, WithBaseURL(srv.URL))

		_, err := client.ExchangeCode(context.Background(), "bad-code", "v", "https://gw.example.com/callback")
		require.Error(t, err)

		var idpErr *Error
		require.ErrorAs(t, err, &idpErr)
		assert.Equal(t, http.StatusForbidden, idpErr.Status)
		assert.Equal(t, "invalid_grant", idpErr.Code)
		assert.Equal(t, "Invalid authorization code", idpErr.Description)
		assert.Equal(t, "idp: invalid_grant: Invalid authorization code", idpErr.Error())
	})

	t.Run("non-JSON error body becomes unknown_error", func(t *testing.T) {
		var got map[string]string
		srv := fakeTokenEndpoint(t, http.StatusBadGateway, `upstream timeout`, &got)
		client := New(testCfg, WithBaseURL(srv.URL))

		_, err := client.ExchangeCode(context.Background(), "c", "v", "r")
		var idpErr *Error
		require.ErrorAs(t, err, &idpErr)
		assert.Equal(t, "unknown_error", idpErr.Code)
		assert.Equal(t, http.StatusBadGateway, idpErr.Status)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("sends the refresh_token grant", func(t *testing.T) {
		var got map[string]string
		srv := fakeTokenEndpoint(t, http.StatusOK,
			`{"access_token":"new-at","token_type":"Bearer","expires_in":3600}`,
			&got)
		client := New(testCfg, WithBaseURL(srv.URL))

		tokens, err := client.Refresh(context.Background(), "the-refresh-token")
		require.NoError(t, err)

		assert.Equal(t, "refresh_token", got["grant_type"])
		assert.Equal(t, "the-refresh-token", got["refresh_token"])
		assert.Empty(t, got["code"])

		assert.Equal(t, "new-at", tokens.AccessToken)
		assert.Empty(t, tokens.RefreshToken, "IdP did not rotate")
	})

	t.Run("propagates transport failures", func(t *testing.T) {
		client := New(testCfg, WithBaseURL("http://127.0.0.1:1"))

		_, err := client.Refresh(context.Background(), "rt")
		require.Error(t, err)

		var idpErr *Error
		assert.False(t, errors.As(err, &idpErr), "transport errors are not IdP errors")
	})
}

func TestDefaultBaseURL(t *testing.T) {
	client := New(testCfg)
	assert.Equal(t, "https://tenant.auth.example.com", client.baseURL)
}
