package middleware

import "net/http"

// PrivateNoStore marks responses as viewer-specific.
//
// The same URL renders differently for a collective admin and for the
// public. A shared cache keyed only on the URL would hand one viewer's
// page to the next, so these responses are never stored and vary on the
// credentials that select the viewer.
func PrivateNoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "private, no-store")
		h.Add("Vary", "Authorization")
		h.Add("Vary", "Cookie")
		next.ServeHTTP(w, r)
	})
}
