package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitdesk/fitdesk-api/pkg/config"
)

// Cookie names shared between the route guard and the session-aware clients.
const (
	CookieAccessToken = "access_token"
	CookieExpiresAt   = "expires_at"
)

// Guard redirects unauthenticated browsers away from protected web pages.
// API routes and the configured public paths pass through untouched; every
// other route requires an access token cookie that has not expired yet.
func Guard(cfg config.GuardConfig, apiPrefix string) gin.HandlerFunc {
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, apiPrefix) || isPublicPath(path, cfg.PublicPaths) {
			c.Next()
			return
		}

		token, err := c.Cookie(CookieAccessToken)
		if err != nil || token == "" {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		// expires_at carries epoch milliseconds, the same value the
		// session manager persists on sync.
		rawExpiry, err := c.Cookie(CookieExpiresAt)
		if err != nil || rawExpiry == "" {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		expiryMillis, err := strconv.ParseInt(rawExpiry, 10, 64)
		if err != nil || !time.Now().Before(time.UnixMilli(expiryMillis)) {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		c.Next()
	}
}

// isPublicPath reports whether path matches a public entry exactly or as a
// path prefix when the entry ends with a slash-free segment boundary.
func isPublicPath(path string, public []string) bool {
	for _, p := range public {
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
