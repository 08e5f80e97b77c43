package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireAuth(secret))
	r.GET("/me", func(c *gin.Context) {
		id, ok := MustOwner(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"owner": id})
	})
	return r
}

func call(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_SubClaim(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"sub": "42", "exp": time.Now().Add(time.Hour).Unix(),
	})

	w := call(newRouter(), "Bearer "+tok)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"owner":42}`, w.Body.String())
}

func TestRequireAuth_LegacyIDClaim(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"id": 7})

	w := call(newRouter(), "bearer "+tok)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"owner":7}`, w.Body.String())
}

func TestRequireAuth_Rejects(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"sub": "42", "exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "42"})
	hs512 := sign(t, jwt.SigningMethodHS512, secret, jwt.MapClaims{"sub": "42"})
	noOwner := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"name": "x"})
	badSub := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "alice"})

	for name, header := range map[string]string{
		"missing":   "",
		"scheme":    "Basic abc",
		"empty":     "Bearer ",
		"expired":   "Bearer " + expired,
		"wrong key": "Bearer " + wrongKey,
		"alg":       "Bearer " + hs512,
		"no owner":  "Bearer " + noOwner,
		"bad sub":   "Bearer " + badSub,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, call(newRouter(), header).Code)
		})
	}
}
