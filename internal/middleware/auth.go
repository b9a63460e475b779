package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tillsync/internal/apierror"
	"tillsync/internal/model"
	"tillsync/internal/session"
)

const SessionKey = "session"

// SessionClaims are the custom claims embedded in every session token.
type SessionClaims struct {
	OperatorID string `json:"operator_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Epoch      int64  `json:"epoch"`
	jwt.RegisteredClaims
}

// SessionAuth validates the Bearer token and rebuilds the SessionContext for
// the request, checked against the guard so a token minted before an
// operator switch or logout stops working the moment the switch happens.
func SessionAuth(secret string, guard *session.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		// The guard's live state, not the token, decides shift binding and
		// the current epoch. The token only proves identity.
		sess, err := guard.Current()
		if err != nil || sess.OperatorID != claims.OperatorID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("session is no longer active"))
			return
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

// RequireRole rejects requests whose session role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		sess, ok := c.MustGet(SessionKey).(model.SessionContext)
		if !ok || !allowed[sess.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetSession retrieves the typed session from the Gin context.
func GetSession(c *gin.Context) model.SessionContext {
	sess, _ := c.MustGet(SessionKey).(model.SessionContext)
	return sess
}
