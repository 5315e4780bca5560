package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// HolderID returns the authenticated holder id stored by JWTAuth.  ok is
// false for anonymous requests or malformed subjects.
func HolderID(c echo.Context) (id uint64, ok bool) {
	return holderIDFrom(c.Get(ContextUserID))
}

func holderIDFrom(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case uint64:
		return t, t > 0
	case int:
		return uint64(t), t > 0
	case int64:
		return uint64(t), t > 0
	case float64:
		// JSON numbers decode as float64
		if t <= 0 || t != float64(uint64(t)) {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

// identity is the rate-limit key component for the caller: the holder id,
// or "anon" when unauthenticated.
func identity(c echo.Context) string {
	if id, ok := HolderID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
