package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetUserFromContext(r)
	w.Header().Set("X-Role", claims.Role)
	w.WriteHeader(http.StatusOK)
}

func TestIssueAndParseToken(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")

	token, err := IssueToken(UserClaims{UserID: "u1", Email: "a@b.c", Name: "John Smith", Role: "operator"})
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "John Smith", claims.Name)
	assert.Equal(t, "operator", claims.Role)

	t.Setenv("APP_JWT_SECRET", "other-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenWithoutSecret(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "")
	_, err := ParseToken("anything")
	assert.ErrorIs(t, err, ErrSecretNotConfigured)
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "test-secret")
	token, err := IssueToken(UserClaims{UserID: "u1", Email: "a@b.c", Role: "supervisor"})
	require.NoError(t, err)

	handler := Auth(http.HandlerFunc(okHandler))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"short garbage", "Bearer x", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("supervisor", "admin")(http.HandlerFunc(okHandler))

	req := WithUser(httptest.NewRequest(http.MethodPost, "/api/users", nil), UserClaims{UserID: "u", Role: "operator"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	req = WithUser(httptest.NewRequest(http.MethodPost, "/api/users", nil), UserClaims{UserID: "u", Role: "admin"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Header().Get("X-Role"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
