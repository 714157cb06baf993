package soap

import (
	"bytes"
	"text/template"
)

const continuousMoveTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope">
  <SOAP-ENV:Body>
    <tptz:ContinuousMove xmlns:tptz="{{.PTZNamespace}}" xmlns:tt="{{.SchemaNamespace}}">
      <tptz:ProfileToken>{{.ProfileToken}}</tptz:ProfileToken>
      <tptz:Velocity>
        <tt:PanTilt x="{{.VX}}" y="{{.VY}}" space="http://www.onvif.org/ver10/tptz/PanTiltSpaces/VelocityGenericSpace"/>
        <tt:Zoom x="{{.VZ}}" space="http://www.onvif.org/ver10/tptz/ZoomSpaces/VelocityGenericSpace"/>
      </tptz:Velocity>
      {{if .Timeout}}<tptz:Timeout>PT{{.Timeout}}S</tptz:Timeout>{{end}}
    </tptz:ContinuousMove>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>
`

var compiledContinuousMoveTemplate = template.Must(template.New("continuous_move").Parse(continuousMoveTemplate))

// BuildContinuousMove renders a ContinuousMove request the proxy issues
// to the camera itself — used to carry out synthesized RelativeMove and
// Stop operations, which this camera class doesn't implement natively.
// durationSeconds, when positive, is emitted as the Timeout element.
func BuildContinuousMove(profileToken string, vx, vy, vz, durationSeconds float64) []byte {
	var buf bytes.Buffer
	timeout := ""
	if durationSeconds > 0 {
		timeout = formatFloat(durationSeconds)
	}
	_ = compiledContinuousMoveTemplate.Execute(&buf, struct {
		PTZNamespace, SchemaNamespace, ProfileToken string
		VX, VY, VZ                                  string
		Timeout                                     string
	}{
		PTZNamespace:    NamespacePTZ,
		SchemaNamespace: NamespaceSchema,
		ProfileToken:    profileToken,
		VX:              formatFloat(vx),
		VY:              formatFloat(vy),
		VZ:              formatFloat(vz),
		Timeout:         timeout,
	})
	return buf.Bytes()
}

const relativeMoveZoomOnlyTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope">
  <SOAP-ENV:Body>
    <tptz:RelativeMove xmlns:tptz="{{.PTZNamespace}}" xmlns:tt="{{.SchemaNamespace}}">
      <tptz:ProfileToken>{{.ProfileToken}}</tptz:ProfileToken>
      <tptz:Translation>
        <tt:Zoom x="{{.Zoom}}" space="http://www.onvif.org/ver10/tptz/ZoomSpaces/TranslationGenericSpace"/>
      </tptz:Translation>
    </tptz:RelativeMove>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>
`

var compiledRelativeMoveZoomOnlyTemplate = template.Must(template.New("relative_move_zoom").Parse(relativeMoveZoomOnlyTemplate))

// BuildRelativeMoveZoomOnly renders a zoom-only RelativeMove carrying only
// the profile token and a Zoom translation in the generic translation
// space; it has no Speed element.
func BuildRelativeMoveZoomOnly(profileToken string, zoom float64) []byte {
	var buf bytes.Buffer
	_ = compiledRelativeMoveZoomOnlyTemplate.Execute(&buf, struct {
		PTZNamespace, SchemaNamespace, ProfileToken string
		Zoom                                        string
	}{
		PTZNamespace:    NamespacePTZ,
		SchemaNamespace: NamespaceSchema,
		ProfileToken:    profileToken,
		Zoom:            formatFloat(zoom),
	})
	return buf.Bytes()
}
