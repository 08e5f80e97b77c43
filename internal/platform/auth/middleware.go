package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const CtxOwnerIDKey = "owner_id"

// RequireAuth: Authorization: Bearer <token> を検証して context にオーナーIDを詰める。
// トークンの発行はこのサービスの外で行う。
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			// alg 固定（none攻撃とか回避）
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || token == nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		owner, ok := ownerFromClaims(claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing owner"})
			return
		}

		c.Set(CtxOwnerIDKey, owner)
		c.Next()
	}
}

// sub（文字列）を優先。旧トークンは数値の id クレームを持つ
func ownerFromClaims(claims jwt.MapClaims) (int64, bool) {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		id, err := strconv.ParseInt(sub, 10, 64)
		if err == nil && id > 0 {
			return id, true
		}
		return 0, false
	}
	// encoding/json は数値を float64 にする
	if v, ok := claims["id"].(float64); ok && v > 0 && v == float64(int64(v)) {
		return int64(v), true
	}
	return 0, false
}

// OwnerID は RequireAuth が詰めたオーナーIDを返す
func OwnerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxOwnerIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// MustOwner: 取得できなければ 401 を返して中断する
func MustOwner(c *gin.Context) (int64, bool) {
	id, ok := OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return 0, false
	}
	return id, true
}
