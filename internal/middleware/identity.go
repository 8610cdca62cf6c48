package middleware

import "github.com/labstack/echo/v4"

// Subject returns the authenticated token subject, or "anon" on public
// routes.
func Subject(c echo.Context) string {
    if s, ok := c.Get(ctxSubject).(string); ok && s != "" {
        return s
    }
    return "anon"
}

// Role returns the authenticated token role, or "" on public routes.
func Role(c echo.Context) string {
    r, _ := c.Get(ctxRole).(string)
    return r
}
