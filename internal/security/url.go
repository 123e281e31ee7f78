// Package security validates URLs taken from configuration before the
// server fetches them or hands them to a browser.
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// parseHTTPURL accepts absolute http and https URLs with a host.
func parseHTTPURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("URL must have a host")
	}
	return parsed, nil
}

// ValidateHTTPURL checks an endpoint the server posts to for SSRF. It
// rejects localhost, private IP ranges, link-local addresses, and cloud
// metadata endpoints.
func ValidateHTTPURL(rawURL string) error {
	parsed, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}

	host := parsed.Hostname()
	hostLower := strings.ToLower(host)
	if hostLower == "localhost" || hostLower == "localhost.localdomain" {
		return fmt.Errorf("requests to localhost are not allowed")
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Hostnames are not resolved here.
		return nil
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("requests to loopback addresses are not allowed")
	case ip.IsPrivate():
		return fmt.Errorf("requests to private network addresses are not allowed")
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("requests to link-local addresses are not allowed")
	case ip.IsUnspecified():
		return fmt.Errorf("requests to unspecified addresses are not allowed")
	}
	return nil
}

// ValidateScriptURL checks a library URL injected into preview documents.
// Its origin is also written into the Content-Security-Policy header, so
// characters that would end a source expression are rejected. Local hosts
// are allowed for self-hosted copies.
func ValidateScriptURL(rawURL string) error {
	if strings.ContainsAny(rawURL, " \t\r\n;,'\"") {
		return fmt.Errorf("script URL %q contains whitespace, quotes or separators", rawURL)
	}
	parsed, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}
	if parsed.User != nil {
		return fmt.Errorf("script URL must not carry credentials")
	}
	return nil
}
