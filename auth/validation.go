package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateEndpointURI checks a provider endpoint is an absolute http(s) URL.
func ValidateEndpointURI(name, uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme", name)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must be absolute", name)
	}
	if u.Fragment != "" {
		return fmt.Errorf("%s must not contain fragments", name)
	}
	return nil
}

// ValidateRedirectURI validates redirect URI format
func ValidateRedirectURI(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return fmt.Errorf("redirect_uri is required")
	}

	// Must start with http:// or https://
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return fmt.Errorf("redirect_uri must use http or https scheme")
	}

	// Should not contain fragments
	if strings.Contains(uri, "#") {
		return fmt.Errorf("redirect_uri must not contain fragments")
	}

	return nil
}
