package urlutil

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"sitesweep/internal/domain"
)

// Normalize validates raw as an absolute http(s) URL and returns its
// canonical string form. A missing scheme defaults to https.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", domain.ErrInvalidInput)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidInput, u.Scheme)
	}
	host := u.Hostname()
	if host == "" || !strings.Contains(host, ".") {
		return "", fmt.Errorf("%w: invalid host %q", domain.ErrInvalidInput, host)
	}
	return u.String(), nil
}

// CanonicalKey reduces a normalized URL to its dedup key: lowercased, with
// any trailing slashes stripped. Two URLs with the same key are the same
// batch member.
func CanonicalKey(normalized string) string {
	return strings.TrimRight(strings.ToLower(normalized), "/")
}

// RegistrableDomain extracts the eTLD+1 of a URL, falling back to the bare
// hostname when the public suffix list has no answer. Used as a display
// label for jobs without an explicit one.
func RegistrableDomain(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if reg, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return reg
	}
	return host
}
