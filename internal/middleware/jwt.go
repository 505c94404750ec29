package middleware

import (
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// Identity returns a middleware that tags the request with the subject of
// a valid HS256 bearer token under "user_id".  It never rejects a request:
// a missing, malformed or expired token simply leaves the request
// anonymous.  The tag only feeds rate-limit keys; the reservation
// endpoints take the acting user from the request body.
//
// An empty secret disables the middleware.
func Identity(secret string) echo.MiddlewareFunc {
    if secret == "" {
        return passthrough
    }
    key := []byte(secret)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return next(c)
            }
            raw := strings.TrimPrefix(auth, "Bearer ")
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                return key, nil
            }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
            if err != nil || !tok.Valid {
                c.Logger().Debugf("identity: ignoring bearer token: %v", err)
                return next(c)
            }
            if sub, err := tok.Claims.GetSubject(); err == nil && sub != "" {
                c.Set(userIDKey, sub)
            }
            return next(c)
        }
    }
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
