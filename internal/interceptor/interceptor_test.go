package interceptor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mooglejp/onvif-ptz-proxy/internal/forwarder"
	"github.com/mooglejp/onvif-ptz-proxy/internal/rewrite"
	"github.com/mooglejp/onvif-ptz-proxy/internal/soap"
	"github.com/mooglejp/onvif-ptz-proxy/internal/tracker"
)

func newTestInterceptor(t *testing.T, handler http.HandlerFunc) (*Interceptor, *tracker.Tracker, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("invalid port: %v", err)
	}

	tr := tracker.New()
	fw := forwarder.New("user", "pass", forwarder.Catalog{CameraHost: u.Hostname(), CameraPort: port}, rewrite.Addresses{
		CameraHost: u.Hostname(), CameraPort: port, ExternalHost: "proxy", ExternalPort: 9000,
	}, nil)

	ic := New(tr, fw, nil)
	return ic, tr, func() {
		fw.Close()
		srv.Close()
	}
}

func echoOK(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<ok/>`))
}

func TestGetServiceCapabilitiesDoesNotForward(t *testing.T) {
	called := false
	ic, _, cleanup := newTestInterceptor(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		echoOK(w, r)
	})
	defer cleanup()

	resp := ic.Handle("ptz_service", "GetServiceCapabilities", &soap.Node{}, nil)
	if !resp.Handled {
		t.Fatal("expected Handled = true")
	}
	if called {
		t.Error("GetServiceCapabilities should not forward to camera")
	}
	if !strings.Contains(string(resp.Body), `MoveStatus="true"`) {
		t.Errorf("response missing MoveStatus=true: %s", resp.Body)
	}
}

func TestGetStatusReturnsTrackerSnapshot(t *testing.T) {
	ic, tr, cleanup := newTestInterceptor(t, echoOK)
	defer cleanup()

	tr.SetPanTilt(tracker.StateMoving, 5)

	resp := ic.Handle("ptz_service", "GetStatus", &soap.Node{}, nil)
	if !resp.Handled {
		t.Fatal("expected Handled = true")
	}
	op, root, err := soap.Parse(resp.Body)
	if err != nil || op != "GetStatusResponse" {
		t.Fatalf("Parse() = %q, %v", op, err)
	}
	if !strings.Contains(string(resp.Body), "MOVING") {
		t.Errorf("response missing MOVING state: %s", resp.Body)
	}
	_ = root
}

func TestStopIssuesZeroVelocityContinuousMoveAndIdlesBothAxes(t *testing.T) {
	var capturedOp string
	ic, tr, cleanup := newTestInterceptor(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		op, _, _ := soap.Parse(body)
		capturedOp = op
		echoOK(w, r)
	})
	defer cleanup()

	tr.SetPanTilt(tracker.StateMoving, 5)
	tr.SetZoom(tracker.StateMoving, 5)

	_, root, _ := soap.Parse([]byte(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><tptz:Stop xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl"><tptz:ProfileToken>P1</tptz:ProfileToken><tptz:PanTilt>true</tptz:PanTilt><tptz:Zoom>true</tptz:Zoom></tptz:Stop></s:Body></s:Envelope>`))

	resp := ic.Handle("ptz_service", "Stop", root, nil)
	if !resp.Handled {
		t.Fatal("expected Handled = true")
	}
	if capturedOp != "ContinuousMove" {
		t.Errorf("camera received operation %q, want ContinuousMove", capturedOp)
	}

	snap := tr.Snapshot()
	if snap.PanTilt != tracker.StateIdle || snap.Zoom != tracker.StateIdle {
		t.Errorf("tracker state = %+v, want both IDLE", snap)
	}

	op, _, err := soap.Parse(resp.Body)
	if err != nil || op != "StopResponse" {
		t.Fatalf("response operation = %q, %v, want StopResponse", op, err)
	}
}

func TestRelativeMoveSynthesizesContinuousMoveThenFollowUp(t *testing.T) {
	ic, tr, cleanup := newTestInterceptor(t, echoOK)
	defer cleanup()

	_, root, _ := soap.Parse([]byte(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><tptz:RelativeMove xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl" xmlns:tt="http://www.onvif.org/ver10/schema"><tptz:ProfileToken>P1</tptz:ProfileToken><tptz:Translation><tt:PanTilt x="0.2" y="0.0"/></tptz:Translation></tptz:RelativeMove></s:Body></s:Envelope>`))

	resp := ic.Handle("ptz_service", "RelativeMove", root, nil)
	if !resp.Handled {
		t.Fatal("expected Handled = true")
	}

	snap := tr.Snapshot()
	if snap.PanTilt != tracker.StateMoving {
		t.Fatalf("PanTilt = %v, want MOVING immediately after RelativeMove", snap.PanTilt)
	}

	time.Sleep(2500 * time.Millisecond)

	snap = tr.Snapshot()
	if snap.PanTilt != tracker.StateIdle {
		t.Errorf("PanTilt = %v, want IDLE after follow-up fires (duration ~2.0s)", snap.PanTilt)
	}
}

func TestContinuousMoveZeroVelocitySetsBothAxesIdle(t *testing.T) {
	ic, tr, cleanup := newTestInterceptor(t, echoOK)
	defer cleanup()

	tr.SetPanTilt(tracker.StateMoving, 10)
	tr.SetZoom(tracker.StateMoving, 10)

	rawBody := []byte(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl" xmlns:tt="http://www.onvif.org/ver10/schema"><s:Body><tptz:ContinuousMove><tptz:ProfileToken>P1</tptz:ProfileToken><tptz:Velocity><tt:PanTilt x="0" y="0"/><tt:Zoom x="0"/></tptz:Velocity></tptz:ContinuousMove></s:Body></s:Envelope>`)
	_, root, _ := soap.Parse(rawBody)

	resp := ic.Handle("ptz_service", "ContinuousMove", root, rawBody)
	if !resp.Handled {
		t.Fatal("expected Handled = true")
	}

	snap := tr.Snapshot()
	if snap.PanTilt != tracker.StateIdle || snap.Zoom != tracker.StateIdle {
		t.Errorf("tracker state = %+v, want both IDLE regardless of prior MOVING state", snap)
	}
}

func TestAbsoluteMoveSetsPositionAndBothAxesMoving(t *testing.T) {
	ic, tr, cleanup := newTestInterceptor(t, echoOK)
	defer cleanup()

	rawBody := []byte(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl" xmlns:tt="http://www.onvif.org/ver10/schema"><s:Body><tptz:AbsoluteMove><tptz:ProfileToken>P1</tptz:ProfileToken><tptz:Position><tt:PanTilt x="0.4" y="0.2"/><tt:Zoom x="0.6"/></tptz:Position></tptz:AbsoluteMove></s:Body></s:Envelope>`)
	_, root, _ := soap.Parse(rawBody)

	resp := ic.Handle("ptz_service", "AbsoluteMove", root, rawBody)
	if !resp.Handled {
		t.Fatal("expected Handled = true")
	}

	snap := tr.Snapshot()
	if snap.PanTilt != tracker.StateMoving || snap.Zoom != tracker.StateMoving {
		t.Errorf("tracker state = %+v, want both MOVING", snap)
	}
	if snap.Position.PanX != 0.4 || snap.Position.PanY != 0.2 || snap.Position.Zoom != 0.6 {
		t.Errorf("Position = %+v, want (0.4, 0.2, 0.6)", snap.Position)
	}
}

func TestAbsoluteMoveZoomOnlyPreservesPanTiltPosition(t *testing.T) {
	ic, tr, cleanup := newTestInterceptor(t, echoOK)
	defer cleanup()

	tr.SetAbsolutePosition(tracker.Position{PanX: 0.4, PanY: 0.2, Zoom: 0.1})

	rawBody := []byte(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl" xmlns:tt="http://www.onvif.org/ver10/schema"><s:Body><tptz:AbsoluteMove><tptz:ProfileToken>P1</tptz:ProfileToken><tptz:Position><tt:Zoom x="0.9"/></tptz:Position></tptz:AbsoluteMove></s:Body></s:Envelope>`)
	_, root, _ := soap.Parse(rawBody)

	resp := ic.Handle("ptz_service", "AbsoluteMove", root, rawBody)
	if !resp.Handled {
		t.Fatal("expected Handled = true")
	}

	snap := tr.Snapshot()
	if snap.Zoom != tracker.StateMoving {
		t.Errorf("Zoom state = %v, want MOVING", snap.Zoom)
	}
	if snap.PanTilt != tracker.StateMoving {
		t.Errorf("PanTilt state = %v, want MOVING: every AbsoluteMove marks both axes moving", snap.PanTilt)
	}
	if snap.Position.PanX != 0.4 || snap.Position.PanY != 0.2 {
		t.Errorf("Position.PanTilt = (%v, %v), want preserved (0.4, 0.2)", snap.Position.PanX, snap.Position.PanY)
	}
	if snap.Position.Zoom != 0.9 {
		t.Errorf("Position.Zoom = %v, want 0.9", snap.Position.Zoom)
	}
}

func TestRelativeMoveZoomOnlyUpdatesTracker(t *testing.T) {
	ic, tr, cleanup := newTestInterceptor(t, echoOK)
	defer cleanup()

	rawBody := []byte(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><tptz:RelativeMove xmlns:tptz="http://www.onvif.org/ver20/ptz/wsdl" xmlns:tt="http://www.onvif.org/ver10/schema"><tptz:ProfileToken>P1</tptz:ProfileToken><tptz:Translation><tt:Zoom x="0.3"/></tptz:Translation></tptz:RelativeMove></s:Body></s:Envelope>`)
	_, root, _ := soap.Parse(rawBody)

	resp := ic.Handle("ptz_service", "RelativeMove", root, rawBody)
	if !resp.Handled {
		t.Fatal("expected Handled = true")
	}

	snap := tr.Snapshot()
	if snap.Zoom != tracker.StateMoving {
		t.Fatalf("Zoom = %v, want MOVING immediately after a zoom-only RelativeMove", snap.Zoom)
	}
	if snap.Position.Zoom != 0.3 {
		t.Errorf("Position.Zoom = %v, want 0.3 after the delta is applied", snap.Position.Zoom)
	}
}
