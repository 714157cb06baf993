package soap

import (
	"bytes"
	"fmt"
	"text/template"
)

// Fault codes the proxy emits. The wire value for Code/Value is fixed by
// the ONVIF/SOAP 1.2 fault contract; Receiver covers every failure this
// proxy originates itself (camera unreachable, camera timeout, malformed
// request) since none of them are the sender's fault in the SOAP sense.
const ReceiverCode = "SOAP-ENV:Receiver"

const faultTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <SOAP-ENV:Code>
        <SOAP-ENV:Value>{{.Code}}</SOAP-ENV:Value>
      </SOAP-ENV:Code>
      <SOAP-ENV:Reason>
        <SOAP-ENV:Text xml:lang="en">{{.Reason}}</SOAP-ENV:Text>
      </SOAP-ENV:Reason>
      {{if .Detail}}<SOAP-ENV:Detail>{{.Detail}}</SOAP-ENV:Detail>{{end}}
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>
`

var compiledFaultTemplate = template.Must(template.New("fault").Parse(faultTemplate))

// BuildFault renders a SOAP 1.2 fault envelope with the given reason text
// and an optional detail string. code is normally ReceiverCode; it is a
// parameter rather than a constant so tests can exercise other codes.
func BuildFault(code, reason, detail string) []byte {
	var buf bytes.Buffer
	_ = compiledFaultTemplate.Execute(&buf, struct {
		Code, Reason, Detail string
	}{Code: code, Reason: reason, Detail: detail})
	return buf.Bytes()
}

// CameraTimeoutFault is the fault returned when the camera accepted the
// connection but did not respond within the forwarder's deadline.
func CameraTimeoutFault() []byte {
	return BuildFault(ReceiverCode, "Request timeout", "")
}

// ConnectionErrorFault is the fault returned when the forwarder could not
// open a connection to the camera at all.
func ConnectionErrorFault(err error) []byte {
	return BuildFault(ReceiverCode, "Connection error to camera", fmt.Sprintf("%v", err))
}

// OtherTransportFault covers any other forwarding failure not classified
// as a timeout or connection error; the exception's own message becomes
// the fault Reason.
func OtherTransportFault(err error) []byte {
	return BuildFault(ReceiverCode, err.Error(), "")
}

// MalformedRequestFault is the fault returned when the inbound body isn't
// a parseable SOAP envelope.
func MalformedRequestFault(err error) []byte {
	return BuildFault(ReceiverCode, "Malformed SOAP", fmt.Sprintf("%v", err))
}
