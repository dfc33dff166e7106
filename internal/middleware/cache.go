package middleware

import "github.com/gin-gonic/gin"

// NoStore keeps browsers and proxies from caching the response. Used on the
// exam paper and on every admin route.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
