package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/rohits-web03/filepod/internal/config"
)

func TestNewGoogleOAuthConfig(t *testing.T) {
	assert.Nil(t, NewGoogleOAuthConfig(config.GoogleConfig{}))

	cfg := NewGoogleOAuthConfig(config.GoogleConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/api/v1/auth/google/callback",
	})
	require.NotNil(t, cfg)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Len(t, cfg.Scopes, 2)
}

func fakeGoogle(t *testing.T, user map[string]any, userStatus int) *oauth2.Config {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.WriteHeader(userStatus)
		_ = json.NewEncoder(w).Encode(user)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	prev := userInfoURL
	userInfoURL = srv.URL + "/userinfo"
	t.Cleanup(func() { userInfoURL = prev })

	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestFetchGoogleUser(t *testing.T) {
	cfg := fakeGoogle(t, map[string]any{"id": "42", "email": "ada@example.com", "name": "Ada"}, http.StatusOK)

	user, err := FetchGoogleUser(context.Background(), cfg, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)

	_, err = FetchGoogleUser(context.Background(), cfg, "bad-code")
	assert.ErrorContains(t, err, "code exchange")
}

func TestFetchGoogleUserRejectsMissingEmail(t *testing.T) {
	cfg := fakeGoogle(t, map[string]any{"id": "42"}, http.StatusOK)
	_, err := FetchGoogleUser(context.Background(), cfg, "good-code")
	assert.ErrorContains(t, err, "no email")
}

func TestFetchGoogleUserStatus(t *testing.T) {
	cfg := fakeGoogle(t, map[string]any{"error": "nope"}, http.StatusForbidden)
	_, err := FetchGoogleUser(context.Background(), cfg, "good-code")
	assert.ErrorContains(t, err, "status 403")
}
