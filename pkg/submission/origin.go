package submission

import (
	"fmt"
	"net/url"
	"strings"
)

const wildcardOrigin = "*"

// OriginError rejects a caller whose page origin is not on the form's allow-list.
type OriginError struct {
	Origin string
}

func (e *OriginError) Error() string {
	return fmt.Sprintf("Origin '%s' not allowed", e.Origin)
}

// ParseAllowList splits a comma-separated allow-list into trimmed entries.
func ParseAllowList(raw string) []string {
	var entries []string
	for _, part := range strings.Split(raw, ",") {
		entry := strings.TrimRight(strings.TrimSpace(part), "/")
		if entry == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// CheckOrigin allows the request when the form has no allow-list, when the
// caller sent no Origin or Referer, when the list holds the wildcard, or when
// the caller's hostname or scheme://host matches an entry.
func CheckOrigin(allowList, origin string) error {
	entries := ParseAllowList(allowList)
	if len(entries) == 0 {
		return nil
	}

	origin = strings.TrimSpace(origin)
	if origin == "" {
		return nil
	}

	for _, entry := range entries {
		if entry == wildcardOrigin {
			return nil
		}
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return &OriginError{Origin: origin}
	}
	hostname := u.Hostname()
	full := u.Scheme + "://" + u.Host

	for _, entry := range entries {
		if strings.EqualFold(entry, hostname) || strings.EqualFold(entry, full) {
			return nil
		}
	}
	return &OriginError{Origin: origin}
}
