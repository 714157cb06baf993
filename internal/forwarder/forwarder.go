// Package forwarder sends SOAP request bodies on to the real camera and
// relays its response back, applying the address rewriter in both
// directions and turning transport failures into SOAP faults.
package forwarder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mooglejp/onvif-ptz-proxy/internal/rewrite"
	"github.com/mooglejp/onvif-ptz-proxy/internal/soap"
	"github.com/mooglejp/onvif-ptz-proxy/pkg/digest"
)

// maxResponseBytes bounds how much of the camera's response body the
// forwarder will buffer, the same defensive limit the teacher's
// camera.Client.SendCommand applied to cmd.cgi error bodies.
const maxResponseBytes = 4 << 20

// userAgent is sent on every outbound request, per the external
// interface contract.
const userAgent = "ONVIF-Proxy/1.0"

// outboundTimeout is the fixed deadline on every outbound POST to the
// camera.
const outboundTimeout = 10 * time.Second

// Catalog maps a normalized service name to the camera URL that serves
// it. The five ONVIF services the proxy knows about get exact paths;
// anything else falls back to the generic "<name>_service" pattern.
type Catalog struct {
	CameraHost string
	CameraPort int
}

var knownServices = map[string]bool{
	"device_service":  true,
	"media_service":   true,
	"ptz_service":     true,
	"imaging_service": true,
	"events_service":  true,
}

// URLFor resolves a normalized service name to the camera's URL for it.
func (c Catalog) URLFor(serviceName string) string {
	return fmt.Sprintf("http://%s:%d/onvif/%s", c.CameraHost, c.CameraPort, serviceName)
}

// Forwarder posts SOAP bodies to the camera over a digest-authenticated
// transport, rewriting addresses on the way in and out.
type Forwarder struct {
	catalog   Catalog
	addresses rewrite.Addresses
	client    *http.Client
	transport *digest.Transport
	logger    *slog.Logger
}

// New builds a Forwarder. cameraUser/cameraPass are the camera's digest
// credentials; addresses is the rewriter's address pair. logger may be
// nil, in which case Forward logs nothing.
func New(cameraUser, cameraPass string, catalog Catalog, addresses rewrite.Addresses, logger *slog.Logger) *Forwarder {
	transport := digest.NewTransport(cameraUser, cameraPass)
	return &Forwarder{
		catalog:   catalog,
		addresses: addresses,
		client: &http.Client{
			Timeout:   outboundTimeout,
			Transport: transport,
		},
		transport: transport,
		logger:    logger,
	}
}

// Close stops the underlying digest transport's challenge-cleanup
// goroutine. Call during shutdown.
func (f *Forwarder) Close() {
	f.transport.Close()
}

// Ping checks camera reachability with a lightweight digest-authenticated
// GET against the device service, for the health checker's background
// loop. It doesn't care about the response body or SOAP semantics, only
// whether the camera answered at all.
func (f *Forwarder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.catalog.URLFor("device_service"), nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}

// Result is what Forward returns: the (already rewritten) response body
// and the HTTP status to relay to the client.
type Result struct {
	Body       []byte
	StatusCode int
}

// Forward resolves serviceName to a camera URL, applies the outbound
// rewrite, POSTs with digest auth, applies the inbound rewrite to
// whatever comes back, and classifies transport failures into SOAP
// faults. On success the camera's own status code is relayed verbatim —
// a non-2xx from the camera is not itself a forwarder failure.
func (f *Forwarder) Forward(serviceName string, rawBody []byte) Result {
	url := f.catalog.URLFor(serviceName)
	start := time.Now()
	if f.logger != nil && !IsKnownService(serviceName) {
		f.logger.Warn("unknown ONVIF service, using generic URL pattern", "service", serviceName, "url", url)
	}

	outbound := rewrite.Outbound(rawBody, f.addresses)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(outbound))
	if err != nil {
		return Result{Body: soap.BuildFault(soap.ReceiverCode, err.Error(), ""), StatusCode: http.StatusInternalServerError}
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if f.logger != nil {
			f.logger.Warn("forward failed", "url", url, "error", err, "duration", time.Since(start))
		}
		return Result{Body: classifyTransportError(err), StatusCode: http.StatusInternalServerError}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{Body: soap.OtherTransportFault(err), StatusCode: http.StatusInternalServerError}
	}

	inbound := rewrite.Inbound(body, f.addresses)

	if f.logger != nil {
		f.logger.Info("forwarded", "url", url, "status", resp.StatusCode, "duration", time.Since(start))
		if rewrite.Missed(inbound, f.addresses) {
			f.logger.Warn("camera address still present after inbound rewrite", "url", url)
		}
	}

	return Result{
		Body:       inbound,
		StatusCode: resp.StatusCode,
	}
}

func classifyTransportError(err error) []byte {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return soap.CameraTimeoutFault()
	}
	if isConnectionError(err) {
		return soap.ConnectionErrorFault(err)
	}
	return soap.OtherTransportFault(err)
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// NormalizeServiceName implements the Router's service-name normalization
// rule: strip a trailing "s", append "_service" if missing, and map the
// handful of irregular plurals the ONVIF service names use.
func NormalizeServiceName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, "_service")

	switch name {
	case "ptz", "ptzs":
		name = "ptz"
	case "event", "events":
		name = "events"
	default:
		name = strings.TrimSuffix(name, "s")
	}

	return name + "_service"
}

// IsKnownService reports whether name (already normalized) is one of the
// five catalogued ONVIF services, purely for logging/diagnostics — an
// unknown name still resolves to a URL via the generic fallback pattern.
func IsKnownService(normalizedName string) bool {
	return knownServices[normalizedName]
}
