package httphandler

import (
	"mime"
	"net/http"
	"time"
)

func AllowJSON(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			http.Error(w, "invalid media type", http.StatusUnsupportedMediaType)
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

// NewRouter serves api behind AllowJSON and a per request timeout.
// Long lived routes, such as event streams, are registered on the
// returned mux directly and bypass the timeout.
func NewRouter(api http.Handler, timeout time.Duration) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", AllowJSON(http.TimeoutHandler(api, timeout, "unavailable")))
	return mux
}
