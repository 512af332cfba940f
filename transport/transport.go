package transport

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/kochabx/gmkit/errors"
)

// Server is a long-running listener driven by app.Application. Run blocks
// until the server stops; after Shutdown it returns http.ErrServerClosed.
type Server interface {
	Run() error
	Shutdown(context.Context) error
}

var ErrInvalidAddress = errors.BadRequest("transport: invalid listen address")

// ParseAddress splits a listen address of the form [host]:port. An empty
// host listens on all interfaces; port must be in 1..65535.
func ParseAddress(addr string) (host string, port int, err error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, ErrInvalidAddress.WithMetadata(map[string]string{"addr": addr}).WithCause(err)
	}
	port, err = strconv.Atoi(p)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, ErrInvalidAddress.WithMetadata(map[string]string{"addr": addr, "reason": "port"})
	}
	if host != "" && net.ParseIP(host) == nil && !validHostname(host) {
		return "", 0, ErrInvalidAddress.WithMetadata(map[string]string{"addr": addr, "reason": "host"})
	}
	return host, port, nil
}

// validHostname checks RFC 1123 labels.
func validHostname(host string) bool {
	host = strings.TrimSuffix(host, ".")
	if host == "" || len(host) > 253 {
		return false
	}
	for label := range strings.SplitSeq(host, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '-') {
				return false
			}
		}
	}
	return true
}
