// Package privacy scrubs credentials out of service URLs before they reach
// logs, error messages or telemetry.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// any scheme://... token; shoutrrr, redis and bot API urls all embed secrets
	urlPattern = regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://\S+`)

	ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ScrubMessage replaces every URL in message with an anonymized form.
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL converts a URL to a stable hash that keeps the scheme and a
// coarse host category, so identical endpoints still group together.
func AnonymizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	parts := []string{parsedURL.Scheme}
	if host := parsedURL.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := parsedURL.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if parsedURL.User != nil {
		parts = append(parts, "userinfo")
	}

	// the full URL feeds the hash so different tokens stay distinguishable
	hash := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("%s://%s/url-%x", parsedURL.Scheme, strings.Join(parts[1:], ":"), hash[:6])
}

// RedactURL strips credentials, path and query, keeping scheme://host:port.
// Unparseable input is anonymized instead.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return AnonymizeURL(rawURL)
	}
	return u.Scheme + "://" + u.Host
}

// categorizeHost anonymizes hostnames while preserving useful categorization
func categorizeHost(host string) string {
	switch {
	case host == "localhost" || host == "127.0.0.1" || host == "::1":
		return "localhost"
	case isPrivateIP(host):
		return "private-ip"
	case ipv4Pattern.MatchString(host) || strings.Contains(host, ":"):
		return "public-ip"
	}

	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "host"
}

func isPrivateIP(host string) bool {
	privateRanges := []string{
		"10.", "192.168.", "169.254.",
		"fc00:", "fd00:", "fe80:",
	}
	host = strings.ToLower(host)
	for _, prefix := range privateRanges {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	if rest, ok := strings.CutPrefix(host, "172."); ok {
		var second int
		if _, err := fmt.Sscanf(rest, "%d.", &second); err == nil {
			return second >= 16 && second <= 31
		}
	}
	return false
}

// scrubbedError reports a scrubbed message but keeps the original chain for
// errors.Is and errors.As.
type scrubbedError struct {
	err error
	msg string
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

// WrapError returns err with every URL in its message anonymized. Bot tokens
// and shoutrrr credentials travel inside URLs, so errors from those clients
// pass through here before being logged. nil stays nil.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &scrubbedError{err: err, msg: ScrubMessage(err.Error())}
}
