package server

import "net/http"

// OriginChecker restricts websocket upgrades to the configured frontend
// origins. An empty allow list permits any origin, matching the development
// behavior of the main app.
type OriginChecker struct {
	allowedOrigins map[string]struct{}
}

func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &OriginChecker{
		allowedOrigins: allowed,
	}
}

func (c *OriginChecker) Check(r *http.Request) bool {
	if len(c.allowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	_, ok := c.allowedOrigins[origin]

	return ok
}
