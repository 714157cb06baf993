// Package rewrite substitutes the camera's address for the proxy's
// externally visible address (and back again) in response bodies, so
// that ONVIF clients which read addresses out of XML payloads — rather
// than only trusting the address they connected to — end up pointed back
// at the proxy instead of leaking the camera's real address.
package rewrite

import (
	"fmt"
	"strings"
)

// Addresses is the pair of host:port strings the rewriter substitutes
// between: the camera's real address, and the address ONVIF clients
// should see in its place.
type Addresses struct {
	CameraHost string
	CameraPort int

	ExternalHost string
	ExternalPort int
}

func (a Addresses) cameraAddr() string {
	return fmt.Sprintf("%s:%d", a.CameraHost, a.CameraPort)
}

func (a Addresses) externalAddr() string {
	return fmt.Sprintf("%s:%d", a.ExternalHost, a.ExternalPort)
}

// Outbound rewrites occurrences of the proxy's external address found in
// an inbound request body into the camera's real address, so that any
// self-referential URL a client sent (e.g. in a PullPoint subscription
// request) still resolves once forwarded.
func Outbound(body []byte, a Addresses) []byte {
	return substitute(body, a.externalAddr(), a.cameraAddr())
}

// Inbound rewrites occurrences of the camera's real address found in a
// response body into the proxy's external address, so ONVIF clients
// never see the camera's true network location.
func Inbound(body []byte, a Addresses) []byte {
	return substitute(body, a.cameraAddr(), a.externalAddr())
}

// Missed reports whether the camera's real address is still present in a
// body that has already been through Inbound — i.e. the literal
// substitution didn't catch every occurrence (a differently-formatted
// address, a redirect to a different port, etc). Callers use this to log
// a warning rather than to change behavior; there's no parser-based
// fallback to reach for.
func Missed(inboundBody []byte, a Addresses) bool {
	return strings.Contains(string(inboundBody), a.cameraAddr())
}

// substitute does a literal host:port replacement. It also covers the two
// forms that carry a trailing path separator or closing angle bracket —
// "host:port/" for URLs and "host:port<" for content immediately followed
// by an XML closing tag — since a plain string replacement of "host:port"
// alone already covers both without needing distinct cases. A host that
// appears without its port is not rewritten.
func substitute(body []byte, from, to string) []byte {
	if from == to || from == "" {
		return body
	}
	return []byte(strings.ReplaceAll(string(body), from, to))
}
