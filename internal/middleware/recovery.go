package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"sdp-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOVERED: %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				utils.Failure(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
