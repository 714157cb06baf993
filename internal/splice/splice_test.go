package splice

import (
	"strings"
	"testing"
)

const sampleConfigOptions = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope">
  <SOAP-ENV:Body>
    <tptz:GetConfigurationOptionsResponse xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl" xmlns:tt="http://www.onvif.org/ver10/schema">
      <tptz:PTZConfigurationOptions>
        <tt:Spaces>
          <tt:RelativePanTiltTranslationSpace>
            <tt:URI>http://www.onvif.org/ver10/tptz/PanTiltSpaces/TranslationGenericSpace</tt:URI>
            <tt:XRange><tt:Min>-1</tt:Min><tt:Max>1</tt:Max></tt:XRange>
            <tt:YRange><tt:Min>-1</tt:Min><tt:Max>1</tt:Max></tt:YRange>
          </tt:RelativePanTiltTranslationSpace>
        </tt:Spaces>
      </tptz:PTZConfigurationOptions>
    </tptz:GetConfigurationOptionsResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func TestApplyInsertsFOVSpaceAfterLastExisting(t *testing.T) {
	out := Apply(nil, []byte(sampleConfigOptions))

	count := strings.Count(string(out), "RelativePanTiltTranslationSpace>")
	// Each element contributes one open and one close tag ending in
	// "RelativePanTiltTranslationSpace>"; two elements means 4 such
	// substrings (open+close each), so divide by 2 to get element count.
	if count/2 != 2 {
		t.Fatalf("expected 2 RelativePanTiltTranslationSpace elements, counted %d tag fragments in: %s", count, out)
	}

	genericIdx := strings.Index(string(out), "TranslationGenericSpace")
	fovIdx := strings.Index(string(out), "TranslationSpaceFov")
	if genericIdx == -1 || fovIdx == -1 || genericIdx > fovIdx {
		t.Errorf("expected Generic space before FOV space, got generic=%d fov=%d", genericIdx, fovIdx)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	once := Apply(nil, []byte(sampleConfigOptions))
	twice := Apply(nil, once)

	if string(once) != string(twice) {
		t.Errorf("splice is not idempotent:\nonce:  %s\ntwice: %s", once, twice)
	}
	if strings.Count(string(twice), "TranslationSpaceFov") != 1 {
		t.Errorf("expected exactly one FOV space after second splice, got: %s", twice)
	}
}

func TestApplyPassesThroughWhenNoSpacesElement(t *testing.T) {
	const noSpaces = `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope"><SOAP-ENV:Body><tptz:GetConfigurationOptionsResponse xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl"/></SOAP-ENV:Body></SOAP-ENV:Envelope>`
	out := Apply(nil, []byte(noSpaces))
	if string(out) != noSpaces {
		t.Errorf("expected unchanged passthrough, got: %s", out)
	}
}

func TestApplyPassesThroughOnMalformedXML(t *testing.T) {
	const malformed = `<SOAP-ENV:Envelope><SOAP-ENV:Body><unterminated`
	out := Apply(nil, []byte(malformed))
	if string(out) != malformed {
		t.Errorf("expected malformed input returned unchanged, got: %s", out)
	}
}
