// Package endpoint turns free-form operator input into the base URL of the
// forklift's control API.
package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidEndpoint is returned for text that does not denote a usable
// device address.
var ErrInvalidEndpoint = errors.New("invalid device endpoint")

const (
	maxHostnameLength = 253
	maxLabelLength    = 63
)

var (
	schemePattern = regexp.MustCompile(`(?i)^https?://`)
	ipv4Octet     = regexp.MustCompile(`^(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)
	ipv6Pattern   = regexp.MustCompile(`^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$`)
	labelPattern  = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)
	numericLabel  = regexp.MustCompile(`^[0-9]+$`)
)

// Endpoint is a validated base URL (scheme and host). The zero value is not
// a valid endpoint.
type Endpoint struct {
	scheme string
	host   string
}

// Parse validates raw and returns its canonical endpoint. Port, path, query
// and trailing slashes are dropped; the scheme is kept.
func Parse(raw string) (Endpoint, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return Endpoint{}, fmt.Errorf("%w: empty address", ErrInvalidEndpoint)
	}
	scheme, rest := "http://", input
	if m := schemePattern.FindString(input); m != "" {
		scheme, rest = m, input[len(m):]
	}
	// A bare IPv6 literal is ambiguous with host:port, bracket it first.
	if bare := strings.TrimRight(rest, "/"); isIPv6(bare) {
		rest = "[" + bare + "]"
	}

	u, err := url.Parse(scheme + rest)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host in %q", ErrInvalidEndpoint, raw)
	}
	if !IsValidHost(host) {
		return Endpoint{}, fmt.Errorf("%w: %q is not an IPv4, IPv6 or RFC 1123 host", ErrInvalidEndpoint, host)
	}

	return Endpoint{
		scheme: strings.ToLower(u.Scheme),
		host:   strings.ToLower(host),
	}, nil
}

// IsValid reports whether raw would be accepted by Parse.
func IsValid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// IsValidHost classifies a bare host (no scheme, port or brackets).
func IsValidHost(host string) bool {
	return isIPv4(host) || isIPv6(host) || isHostname(host)
}

func isIPv4(host string) bool {
	octets := strings.Split(host, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if !ipv4Octet.MatchString(o) {
			return false
		}
	}
	return true
}

func isIPv6(host string) bool {
	return ipv6Pattern.MatchString(host)
}

func isHostname(host string) bool {
	if len(host) == 0 || len(host) > maxHostnameLength {
		return false
	}
	name := strings.TrimSuffix(host, ".")
	if name == "" {
		return false
	}

	labels := strings.Split(name, ".")
	allNumeric := true
	for _, label := range labels {
		if len(label) > maxLabelLength || !labelPattern.MatchString(label) {
			return false
		}
		if !numericLabel.MatchString(label) {
			allNumeric = false
		}
	}
	// Dotted numbers are addresses, not names; only isIPv4 may accept them.
	return !allNumeric || len(labels) == 1
}

// Scheme returns "http" or "https".
func (e Endpoint) Scheme() string { return e.scheme }

// Host returns the lower-cased host without brackets.
func (e Endpoint) Host() string { return e.host }

// IsZero reports whether e was never validated.
func (e Endpoint) IsZero() bool { return e.host == "" }

// String returns the canonical base URL, e.g. "http://192.168.1.5".
func (e Endpoint) String() string {
	if e.IsZero() {
		return ""
	}
	host := e.host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return e.scheme + "://" + host
}

// URL joins a control path and query onto the endpoint.
func (e Endpoint) URL(path string, query url.Values) string {
	s := e.String() + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		s += "?" + query.Encode()
	}
	return s
}
