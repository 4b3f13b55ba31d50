package domain

import (
	"net/url"
	"strings"
)

// ParseTarget accepts only absolute http and https URLs with a host.
func ParseTarget(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrTargetMissing
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidTarget
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ErrInvalidTarget
	}

	if u.Host == "" || u.Hostname() == "" {
		return nil, ErrInvalidTarget
	}

	return u, nil
}
