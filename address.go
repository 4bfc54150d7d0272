package scribews

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// DefaultGatewayPrefix is the HTTP gateway path that realtime endpoints must not carry.
const DefaultGatewayPrefix = "/api/"

// ResolveAddress turns a realtime address into the fully-qualified address that is dialed and used
// as registry key.
//
// A fully-qualified address (ws:// or wss://) is returned untouched unless it only names the base
// address. Anything else is treated as a bare path and appended to base. Empty addresses, and
// addresses resolving to the base alone, yield ErrInvalidAddress.
func ResolveAddress(base, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.Wrap(ErrInvalidAddress, "empty address")
	}

	trimmedBase := strings.TrimRight(base, "/")

	if isQualified(address) {
		u, err := url.Parse(address)
		if err != nil {
			return "", errors.Wrap(ErrInvalidAddress, err.Error())
		}
		if u.Host == "" {
			return "", errors.Wrapf(ErrInvalidAddress, "%s has no host", address)
		}
		if strings.TrimRight(address, "/") == trimmedBase {
			return "", errors.Wrapf(ErrInvalidAddress, "%s names the base address only", address)
		}
		return address, nil
	}

	if trimmedBase == "" {
		return "", errors.Wrapf(ErrInvalidAddress, "no base address to resolve %s against", address)
	}

	if !strings.HasPrefix(address, "/") {
		address = "/" + address
	}

	resolved := trimmedBase + address
	if strings.TrimRight(resolved, "/") == trimmedBase {
		return "", errors.Wrapf(ErrInvalidAddress, "%s names the base address only", address)
	}

	return resolved, nil
}

// EndpointFromAddress recovers the bare path of a fully-qualified address: scheme and host are
// dropped, then a leading gatewayPrefix is collapsed to "/". Query strings are kept.
// Bare paths go through the same prefix rule.
func EndpointFromAddress(address, gatewayPrefix string) string {
	endpoint := address

	if isQualified(address) {
		if u, err := url.Parse(address); err == nil {
			endpoint = u.RequestURI()
		}
	}

	prefix := normalizePrefix(gatewayPrefix)
	if prefix != "" && strings.HasPrefix(endpoint, prefix) {
		endpoint = "/" + strings.TrimPrefix(endpoint, prefix)
	}

	return endpoint
}

func isQualified(address string) bool {
	return strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://")
}

func sameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix + "/"
}
