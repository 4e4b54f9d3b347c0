package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids caching of the response anywhere between server and
// client. Applied to assessment content routes so papers and attempt state
// never land in a shared proxy cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
