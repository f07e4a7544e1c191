package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Observe wraps next with request ids, access logging, metrics and panic recovery.
// Recoverer sits innermost so a recovered panic is logged and counted as the 500 it becomes.
func Observe(next http.Handler) http.Handler {
	return chimw.RequestID(Logger(Metrics(chimw.Recoverer(next))))
}
