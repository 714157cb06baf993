package soap

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

const simpleResponseTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope">
  <SOAP-ENV:Body>
    <{{.Prefix}}:{{.Operation}}Response xmlns:{{.Prefix}}="{{.Namespace}}"></{{.Prefix}}:{{.Operation}}Response>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>
`

var compiledSimpleResponseTemplate = template.Must(template.New("simple").Parse(simpleResponseTemplate))

// Known ONVIF namespace URIs, reused across response builders below.
const (
	NamespacePTZ    = "http://www.onvif.org/ver20/ptz/wsdl"
	NamespaceSchema = "http://www.onvif.org/ver10/schema"
)

// BuildSimpleResponse renders a bodiless "<op>Response" element for
// operations that carry no return payload (ContinuousMove, RelativeMove,
// AbsoluteMove, Stop). Parsing the output with Parse recovers an
// operation name of op+"Response", which is what a synthesized response
// must satisfy to round-trip like a real camera reply would.
func BuildSimpleResponse(operation, prefix, namespace string) []byte {
	var buf bytes.Buffer
	_ = compiledSimpleResponseTemplate.Execute(&buf, struct {
		Operation, Prefix, Namespace string
	}{Operation: operation, Prefix: prefix, Namespace: namespace})
	return buf.Bytes()
}

const statusResponseTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope">
  <SOAP-ENV:Body>
    <tptz:GetStatusResponse xmlns:tptz="{{.PTZNamespace}}" xmlns:tt="{{.SchemaNamespace}}">
      <tptz:PTZStatus>
        <tt:Position>
          <tt:PanTilt x="{{.PanX}}" y="{{.PanY}}" space="{{.PanSpace}}"/>
          <tt:Zoom x="{{.ZoomX}}" space="{{.ZoomSpace}}"/>
        </tt:Position>
        <tt:MoveStatus>
          <tt:PanTilt>{{.PanTiltMoveStatus}}</tt:PanTilt>
          <tt:Zoom>{{.ZoomMoveStatus}}</tt:Zoom>
        </tt:MoveStatus>
        <tt:UTCTime>{{.UTCTime}}</tt:UTCTime>
      </tptz:PTZStatus>
    </tptz:GetStatusResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>
`

var compiledStatusResponseTemplate = template.Must(template.New("status").Parse(statusResponseTemplate))

// MoveStatus mirrors the ONVIF MoveStatus enumeration used per-axis.
type MoveStatus string

const (
	MoveStatusIdle    MoveStatus = "IDLE"
	MoveStatusMoving  MoveStatus = "MOVING"
	MoveStatusUnknown MoveStatus = "UNKNOWN"
)

// StatusFields is the set of values the status tracker's snapshot must
// supply to render a GetStatusResponse. It is defined here, rather than
// accepting the tracker package's snapshot type directly, so this codec
// package stays free of a dependency on the tracker.
type StatusFields struct {
	PanX, PanY float64
	PanSpace   string
	ZoomX      float64
	ZoomSpace  string

	PanTiltMoveStatus MoveStatus
	ZoomMoveStatus    MoveStatus

	UTCTime time.Time
}

// BuildStatusResponse renders a GetStatusResponse reflecting the status
// tracker's current estimate, in the exact element order and casing
// (UTCTime, not UtcTime) ONVIF clients expect.
func BuildStatusResponse(s StatusFields) []byte {
	var buf bytes.Buffer
	_ = compiledStatusResponseTemplate.Execute(&buf, struct {
		PTZNamespace, SchemaNamespace     string
		PanX, PanY                        string
		PanSpace                          string
		ZoomX                             string
		ZoomSpace                         string
		PanTiltMoveStatus, ZoomMoveStatus MoveStatus
		UTCTime                           string
	}{
		PTZNamespace:      NamespacePTZ,
		SchemaNamespace:   NamespaceSchema,
		PanX:              formatFloat(s.PanX),
		PanY:              formatFloat(s.PanY),
		PanSpace:          s.PanSpace,
		ZoomX:             formatFloat(s.ZoomX),
		ZoomSpace:         s.ZoomSpace,
		PanTiltMoveStatus: s.PanTiltMoveStatus,
		ZoomMoveStatus:    s.ZoomMoveStatus,
		UTCTime:           s.UTCTime.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	return buf.Bytes()
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}

const serviceCapabilitiesTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope">
  <SOAP-ENV:Body>
    <tptz:GetServiceCapabilitiesResponse xmlns:tptz="{{.PTZNamespace}}">
      <tptz:Capabilities EFlip="false" Reverse="false" GetCompatibleConfigurations="true" MoveStatus="true" StatusPosition="true"/>
    </tptz:GetServiceCapabilitiesResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>
`

var compiledServiceCapabilitiesTemplate = template.Must(template.New("capabilities").Parse(serviceCapabilitiesTemplate))

// BuildServiceCapabilitiesResponse renders the synthesized
// GetServiceCapabilitiesResponse the interceptor returns for the PTZ
// service without forwarding to the camera.
func BuildServiceCapabilitiesResponse() []byte {
	var buf bytes.Buffer
	_ = compiledServiceCapabilitiesTemplate.Execute(&buf, struct{ PTZNamespace string }{PTZNamespace: NamespacePTZ})
	return buf.Bytes()
}
