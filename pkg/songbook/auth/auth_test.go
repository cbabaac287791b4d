package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret"

func setupRouter(t *testing.T) (*chi.Mux, *Authenticator, *int) {
	t.Helper()
	a, err := New(testSecret)
	require.NoError(t, err)

	calls := 0
	router := chi.NewRouter()
	router.With(a.RequireAdmin).Post("/admin", func(w http.ResponseWriter, r *http.Request) {
		calls++
		identity, err := IdentityFromContext(r.Context())
		require.NoError(t, err)
		w.Write([]byte(identity.UserID))
	})
	return router, a, &calls
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestIssueToken_Expiry(t *testing.T) {
	a, err := New(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name      string
		ttl       time.Duration
		wantExp   bool
		expBefore bool
	}{
		{name: "positive", ttl: time.Hour, wantExp: true},
		{name: "negative is already expired", ttl: -time.Minute, wantExp: true, expBefore: true},
		{name: "zero has no expiry", ttl: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := a.IssueToken("user_admin", true, tt.ttl)
			require.NoError(t, err)

			token, err := a.ja.Decode(raw)
			require.NoError(t, err)
			exp := token.Expiration()
			if !tt.wantExp {
				assert.True(t, exp.IsZero())
				return
			}
			require.False(t, exp.IsZero(), "exp claim must be set")
			assert.Equal(t, tt.expBefore, exp.Before(time.Now()))
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	router, a, calls := setupRouter(t)

	adminToken, err := a.IssueToken("user_admin", true, time.Hour)
	require.NoError(t, err)
	userToken, err := a.IssueToken("user_plain", false, time.Hour)
	require.NoError(t, err)
	expiredToken, err := a.IssueToken("user_admin", true, -time.Minute)
	require.NoError(t, err)

	other, err := New("another-secret")
	require.NoError(t, err)
	forgedToken, err := other.IssueToken("user_admin", true, time.Hour)
	require.NoError(t, err)

	stringFlag := jwtauth.New("HS256", []byte(testSecret), nil)
	_, stringFlagToken, err := stringFlag.Encode(map[string]interface{}{"sub": "user_x", "isAdmin": "true"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{name: "admin bearer", header: "Bearer " + adminToken, status: http.StatusOK},
		{name: "admin cookie", cookie: adminToken, status: http.StatusOK},
		{name: "no session", status: http.StatusForbidden},
		{name: "not admin", header: "Bearer " + userToken, status: http.StatusForbidden},
		{name: "expired", header: "Bearer " + expiredToken, status: http.StatusForbidden},
		{name: "wrong secret", header: "Bearer " + forgedToken, status: http.StatusForbidden},
		{name: "admin flag not boolean", header: "Bearer " + stringFlagToken, status: http.StatusForbidden},
		{name: "garbage", header: "Bearer not-a-jwt", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := *calls
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "jwt", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, before, *calls, "handler must not run")
				assert.Contains(t, w.Body.String(), "Admin access required")
			} else {
				assert.Equal(t, "user_admin", w.Body.String())
			}
		})
	}
}

func TestSession_Identity(t *testing.T) {
	a, err := New(testSecret)
	require.NoError(t, err)

	var got Identity
	var gotErr error
	handler := a.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = IdentityFromContext(r.Context())
	}))

	token, err := a.IssueToken("user_1", false, 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NoError(t, gotErr)
	assert.Equal(t, Identity{UserID: "user_1"}, got)

	// anonymous requests pass through without identity
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, gotErr)
}
