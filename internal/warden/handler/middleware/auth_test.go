package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.Use(BearerAuth(&AuthConfig{Token: token}))
	g.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	g.GET("/v1/tools", func(c *gin.Context) { c.Status(http.StatusOK) })
	return g
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		path   string
		remote string
		header string
		want   int
	}{
		{name: "disabled", path: "/v1/tools", remote: "10.0.0.1:1234", want: http.StatusOK},
		{name: "healthz is public", token: "s3cret", path: "/healthz", remote: "10.0.0.1:1234", want: http.StatusOK},
		{name: "loopback bypass", token: "s3cret", path: "/v1/tools", remote: "127.0.0.1:1234", want: http.StatusOK},
		{name: "missing header", token: "s3cret", path: "/v1/tools", remote: "10.0.0.1:1234", want: http.StatusUnauthorized},
		{name: "wrong scheme", token: "s3cret", path: "/v1/tools", remote: "10.0.0.1:1234", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", path: "/v1/tools", remote: "10.0.0.1:1234", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid token", token: "s3cret", path: "/v1/tools", remote: "10.0.0.1:1234", header: "Bearer s3cret", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(TokenEnv, "")
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.RemoteAddr = tt.remote
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newEngine(tt.token).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestTokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	assert.Equal(t, "from-env", (&AuthConfig{}).ResolveToken())
	assert.Equal(t, "explicit", (&AuthConfig{Token: "explicit"}).ResolveToken())
}
