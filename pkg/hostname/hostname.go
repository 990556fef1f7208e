package hostname

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// InvalidError is returned when a target does not contain a usable hostname
type InvalidError struct {
	Input  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid hostname %q: %s", e.Input, e.Reason)
}

func invalid(input, format string, parts ...interface{}) error {
	return &InvalidError{Input: input, Reason: fmt.Sprintf(format, parts...)}
}

// Normalize extracts the bare hostname from a URL or host string, removing
// scheme, userinfo, path, query, fragment, port and IPv6 brackets.
func Normalize(target string) (string, error) {
	s := strings.TrimSpace(target)
	if s == "" {
		return "", invalid(target, "empty input")
	}

	// an unbracketed IPv6 literal would otherwise be read as host:port
	if isIPLiteral(s) {
		return s, nil
	}

	// without a scheme, parse as a network-path reference so that
	// "example.com:8080" is not taken to have the scheme "example.com"
	ref := s
	if !hasScheme(s) {
		ref = "//" + s
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", invalid(target, "%v", unwrapURLError(err))
	}

	host := u.Hostname()
	if host == "" {
		return "", invalid(target, "no host found")
	}

	if isIPLiteral(host) {
		return host, nil
	}

	// a single trailing dot marks a fully qualified name
	host = strings.TrimSuffix(host, ".")

	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", invalid(target, "cannot convert to ascii: %v", err)
		}
		host = ascii
	}

	if err := Validate(host); err != nil {
		return "", invalid(target, "%v", err)
	}
	return host, nil
}

// hasScheme reports whether s starts with "scheme://", ignoring any "://"
// that only appears in the path, query or fragment
func hasScheme(s string) bool {
	i := strings.Index(s, "://")
	return i > 0 && !strings.ContainsAny(s[:i], "/?#")
}

// isIPLiteral accepts IPv4 and IPv6 addresses, including IPv6 with a zone
func isIPLiteral(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// Validate checks that a bare name is usable as a hostname
func Validate(host string) error {
	if host == "" {
		return fmt.Errorf("empty hostname")
	}

	// lengths of the name and of each label, and repeated dots
	if _, ok := dns.IsDomainName(host); !ok {
		return fmt.Errorf("not a valid domain name")
	}

	for _, label := range strings.Split(host, ".") {
		// IsDomainName lets a leading or trailing dot through
		switch {
		case label == "":
			return fmt.Errorf("empty label")
		case label[0] == '-' || label[len(label)-1] == '-':
			return fmt.Errorf("label %q starts or ends with a hyphen", label)
		}
		for _, c := range label {
			if !isHostChar(c) {
				return fmt.Errorf("invalid character %q", c)
			}
		}
	}
	return nil
}

// underscores are not legal in hostnames but do appear in real DNS names,
// and the system resolver accepts them
func isHostChar(c rune) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '_'
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func unwrapURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}
