package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type Middlewares struct{}

func New() *Middlewares {
	return &Middlewares{}
}

// Auth requires a bearer token matching the configured bcrypt hash. An empty
// hash locks the protected routes entirely.
func (m *Middlewares) Auth(tokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || tokenHash == "" ||
			bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
