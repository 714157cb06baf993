// Package router implements the proxy's single inbound HTTP surface:
// POST /onvif/<service>, dispatching each request to the PTZ interceptor
// or straight through to the camera forwarder.
package router

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mooglejp/onvif-ptz-proxy/internal/forwarder"
	"github.com/mooglejp/onvif-ptz-proxy/internal/interceptor"
	"github.com/mooglejp/onvif-ptz-proxy/internal/soap"
	"github.com/mooglejp/onvif-ptz-proxy/internal/splice"
)

// maxRequestBytes bounds how much of an inbound request body the router
// will read, mirroring the response-side limit the forwarder applies to
// the camera's replies.
const maxRequestBytes = 4 << 20

const soapContentType = "application/soap+xml; charset=utf-8"

// Router dispatches POST /onvif/<service> requests.
type Router struct {
	interceptor *interceptor.Interceptor
	forwarder   *forwarder.Forwarder
	logger      *slog.Logger
}

// New builds a Router.
func New(ic *interceptor.Interceptor, fw *forwarder.Forwarder, logger *slog.Logger) *Router {
	return &Router{interceptor: ic, forwarder: fw, logger: logger}
}

// ServeHTTP implements http.Handler for the /onvif/ prefix.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", soapContentType)

	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write(soap.BuildFault(soap.ReceiverCode, "Method not allowed", ""))
		return
	}

	serviceParam := strings.TrimPrefix(req.URL.Path, "/onvif/")
	normalized := forwarder.NormalizeServiceName(serviceParam)

	body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBytes))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(soap.MalformedRequestFault(err))
		return
	}

	operation, root, parseErr := soap.Parse(body)
	if parseErr != nil && parseErr != soap.ErrNoOperation {
		if r.logger != nil {
			r.logger.Warn("malformed SOAP request", "error", parseErr, "service", serviceParam)
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(soap.MalformedRequestFault(parseErr))
		return
	}

	if r.logger != nil {
		r.logger.Info("onvif request", "operation", operation, "service", normalized)
	}

	if normalized == "ptz_service" && operation != "" {
		if resp := r.interceptor.Handle(normalized, operation, root, body); resp.Handled {
			w.WriteHeader(resp.StatusCode)
			w.Write(resp.Body)
			return
		}
	}

	result := r.forwarder.Forward(normalized, body)
	if normalized == "ptz_service" && operation == "GetConfigurationOptions" {
		result.Body = splice.Apply(r.logger, result.Body)
	}

	w.WriteHeader(result.StatusCode)
	w.Write(result.Body)
}
