package utils

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ValidURL reports whether raw is an absolute http(s) URL with a host
// Discord will accept in an embed. Internationalized hostnames are checked
// through their punycode form.
func ValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	if _, err := idna.Lookup.ToASCII(host); err != nil {
		return false
	}
	return true
}
