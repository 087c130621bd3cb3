package auth

import "net/http"

// Redirect describes the response that sends the user agent elsewhere.
type Redirect struct {
	// Location is the absolute target URL.
	Location string
	// StatusCode is 302, or 301 for permanent redirects.
	StatusCode int
	// State is the state parameter carried by an authorization redirect.
	// Empty for other redirects.
	State string
}

// NewRedirect returns a temporary redirect, or a permanent one if asked.
func NewRedirect(location string, permanent bool) *Redirect {
	status := http.StatusFound
	if permanent {
		status = http.StatusMovedPermanently
	}
	return &Redirect{Location: location, StatusCode: status}
}

// ServeHTTP writes the redirect with an empty body.
func (r *Redirect) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := r.StatusCode
	if status == 0 {
		status = http.StatusFound
	}
	w.Header().Set("Location", r.Location)
	w.WriteHeader(status)
}
