// Package splice post-processes a GetConfigurationOptionsResponse to
// advertise an FOV-based relative pan/tilt translation space the camera
// itself doesn't report, without disturbing the rest of the document's
// byte-for-byte formatting.
package splice

import (
	"bytes"
	"encoding/xml"
	"io"
	"log/slog"
)

const fovURI = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/TranslationSpaceFov"

const injectedSpaceTemplate = `<tt:RelativePanTiltTranslationSpace><tt:URI>` + fovURI + `</tt:URI><tt:XRange><tt:Min>-1</tt:Min><tt:Max>1</tt:Max></tt:XRange><tt:YRange><tt:Min>-1</tt:Min><tt:Max>1</tt:Max></tt:YRange></tt:RelativePanTiltTranslationSpace>`

// Apply locates the Spaces element's RelativePanTiltTranslationSpace
// children and inserts a synthesized FOV space immediately after the
// last one, preserving document order and all surrounding bytes
// untouched. If Spaces is absent, or a TranslationSpaceFov URI is
// already present (idempotence), the input is returned unchanged. Any
// XML error also returns the input unchanged — this must never fail the
// client's call, only skip the enrichment.
func Apply(logger *slog.Logger, body []byte) []byte {
	if bytes.Contains(body, []byte(fovURI)) {
		return body
	}

	insertAt, found, err := lastTranslationSpaceEnd(body)
	if err != nil {
		if logger != nil {
			logger.Warn("capability splicer: failed to scan response, passing through unchanged", "error", err)
		}
		return body
	}
	if !found {
		return body
	}

	out := make([]byte, 0, len(body)+len(injectedSpaceTemplate))
	out = append(out, body[:insertAt]...)
	out = append(out, []byte(injectedSpaceTemplate)...)
	out = append(out, body[insertAt:]...)
	return out
}

// lastTranslationSpaceEnd scans the document for the byte offset
// immediately following the close of the last
// RelativePanTiltTranslationSpace element inside Spaces, using
// xml.Decoder.InputOffset to locate it without building a full DOM.
func lastTranslationSpaceEnd(body []byte) (offset int, found bool, err error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))

	inSpaces := false
	depthInElement := 0

	for {
		tok, tokErr := decoder.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			return 0, false, tokErr
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "Spaces" {
				inSpaces = true
			}
			if inSpaces && el.Name.Local == "RelativePanTiltTranslationSpace" {
				depthInElement++
			}
		case xml.EndElement:
			if inSpaces && el.Name.Local == "RelativePanTiltTranslationSpace" {
				depthInElement--
				if depthInElement == 0 {
					offset = int(decoder.InputOffset())
					found = true
				}
			}
			if el.Name.Local == "Spaces" {
				return offset, found, nil
			}
		}
	}

	return offset, found, nil
}
