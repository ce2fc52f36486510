package httputil

import (
	"fmt"
	"net"
	"net/http"
)

// makeRedirectChecker creates a redirect validation function.
func makeRedirectChecker(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to non-HTTPS URL is not allowed: %s", req.URL)
		}

		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects")
		}

		host := req.URL.Hostname()
		if ip := net.ParseIP(host); ip != nil {
			return ValidateIP(ip, host)
		}

		// Resolve and check every address so a public name cannot rebind
		// to an internal one.
		ips, err := net.LookupIP(host)
		if err != nil {
			return fmt.Errorf("failed to resolve redirect host %s: %w", host, err)
		}
		for _, ip := range ips {
			if err := ValidateIP(ip, host); err != nil {
				return fmt.Errorf("refusing redirect: %s resolves to blocked IP %s", host, ip)
			}
		}
		return nil
	}
}

// ValidateIP reports an error when ip is private, loopback, link-local
// (including the 169.254.169.254 metadata service), multicast or
// unspecified. host is only used in the error message.
func ValidateIP(ip net.IP, host string) error {
	switch {
	case ip.IsPrivate():
		return fmt.Errorf("refusing redirect to private IP: %s (%s)", host, ip)
	case ip.IsLoopback():
		return fmt.Errorf("refusing redirect to loopback IP: %s (%s)", host, ip)
	case ip.IsLinkLocalUnicast():
		return fmt.Errorf("refusing redirect to link-local IP: %s (%s)", host, ip)
	case ip.IsLinkLocalMulticast():
		return fmt.Errorf("refusing redirect to link-local multicast: %s (%s)", host, ip)
	case ip.IsMulticast():
		return fmt.Errorf("refusing redirect to multicast IP: %s (%s)", host, ip)
	case ip.IsUnspecified():
		return fmt.Errorf("refusing redirect to unspecified IP: %s (%s)", host, ip)
	}
	return nil
}
