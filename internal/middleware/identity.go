package middleware

import "github.com/labstack/echo/v4"

// userIDKey is the echo context key set by Identity.
const userIDKey = "user_id"

// currentUserID returns the identity set by Identity, or "anon".
func currentUserID(c echo.Context) string {
    if s, ok := c.Get(userIDKey).(string); ok && s != "" {
        return s
    }
    return "anon"
}
