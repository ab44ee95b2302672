package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func guarded(secrets ...Secret) *gin.Engine {
	r := gin.New()
	r.Use(SecretAuth(secrets...))
	r.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(PrincipalKey)) })
	return r
}

func TestSecretAuth_NoHeader(t *testing.T) {
	r := guarded(Secret{Name: "cron", Value: "s3cret"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSecretAuth_InvalidHeader(t *testing.T) {
	r := guarded(Secret{Name: "cron", Value: "s3cret"})
	for _, h := range []string{"Basic s3cret", "Bearer wrong", "s3cret"} {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		req.Header.Set("Authorization", h)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, h)
	}
}

func TestSecretAuth_MatchesNamedSecret(t *testing.T) {
	r := guarded(Secret{Name: "cron", Value: "s3cret"}, Secret{Name: "admin", Value: "adm1n"})

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer adm1n")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "admin", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set(SecretHeader, "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "cron", w.Body.String())
}

func TestSecretAuth_EmptySecretNeverMatches(t *testing.T) {
	r := guarded(Secret{Name: "cron", Value: ""})
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
