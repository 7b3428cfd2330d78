package domain

import (
	"fmt"
	"strings"
)

const (
	maxHostnameLen = 253
	maxLabelLen    = 63
)

// NormalizeHostname lowercases a hostname and strips surrounding
// whitespace, a trailing dot, and an accidental scheme or path.
func NormalizeHostname(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return strings.TrimSuffix(host, ".")
}

// ValidateHostname checks a conservative hostname grammar: dot-separated
// labels of letters, digits and hyphens, 1-63 chars each, no leading or
// trailing hyphen, at least one dot, 253 chars total.
func ValidateHostname(host string) error {
	if host == "" {
		return fmt.Errorf("hostname is empty")
	}
	if len(host) > maxHostnameLen {
		return fmt.Errorf("hostname exceeds %d characters", maxHostnameLen)
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return fmt.Errorf("hostname %q must contain at least one dot", host)
	}
	for _, label := range labels {
		if label == "" {
			return fmt.Errorf("hostname %q contains an empty label", host)
		}
		if len(label) > maxLabelLen {
			return fmt.Errorf("hostname %q: label %q exceeds %d characters", host, label, maxLabelLen)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("hostname %q: label %q starts or ends with a hyphen", host, label)
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
				return fmt.Errorf("hostname %q: label %q contains invalid character %q", host, label, c)
			}
		}
	}
	return nil
}

// SplitHostname splits a validated hostname into root domain and optional
// subdomain for DNS-record presentation. The last two labels form the
// root; anything before them is the subdomain.
func SplitHostname(host string) (root, sub string) {
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host, ""
	}
	root = strings.Join(labels[len(labels)-2:], ".")
	sub = strings.Join(labels[:len(labels)-2], ".")
	return root, sub
}
