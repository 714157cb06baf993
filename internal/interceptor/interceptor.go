// Package interceptor implements the PTZ service's per-operation
// dispatch table: some operations are answered locally from the status
// tracker, some are forwarded and then used to update it, and some are
// synthesized into one or more ContinuousMove calls the camera actually
// understands.
package interceptor

import (
	"log/slog"
	"math"
	"time"

	"github.com/mooglejp/onvif-ptz-proxy/internal/forwarder"
	"github.com/mooglejp/onvif-ptz-proxy/internal/soap"
	"github.com/mooglejp/onvif-ptz-proxy/internal/tracker"
)

// relativeMoveVelocityMagnitude is the fixed speed used for a
// RelativeMove's synthesized ContinuousMove; only its sign is derived
// from the requested translation.
const relativeMoveVelocityMagnitude = 0.5

// relativeMoveDurationPerUnit converts translation magnitude to seconds;
// duration is clamped to [minRelativeMoveDuration, maxRelativeMoveDuration].
const relativeMoveDurationPerUnit = 10.0

const (
	minRelativeMoveDuration = 0.3
	maxRelativeMoveDuration = 5.0
)

// Response is what the interceptor hands back to the router: either a
// response to send directly to the client (Handled == true), or a
// signal that the router should fall through to the forwarder.
type Response struct {
	Handled    bool
	Body       []byte
	StatusCode int
}

// Interceptor owns a Tracker reference and a Forwarder used both for
// pass-through forwarding and for synthesized follow-up calls.
type Interceptor struct {
	tracker   *tracker.Tracker
	forwarder *forwarder.Forwarder
	logger    *slog.Logger
}

// New builds an Interceptor.
func New(t *tracker.Tracker, f *forwarder.Forwarder, logger *slog.Logger) *Interceptor {
	return &Interceptor{tracker: t, forwarder: f, logger: logger}
}

// Handle dispatches operation against the PTZ handler table. serviceName
// is always "ptz_service" by the time the router calls this, but is
// threaded through so the forwarder sees the same name a direct
// pass-through would have used.
func (i *Interceptor) Handle(serviceName, operation string, root *soap.Node, rawBody []byte) Response {
	switch operation {
	case "GetServiceCapabilities":
		return Response{Handled: true, Body: soap.BuildServiceCapabilitiesResponse(), StatusCode: 200}
	case "GetStatus":
		return Response{Handled: true, Body: soap.BuildStatusResponse(i.statusFields()), StatusCode: 200}
	case "GetConfigurationOptions":
		// Forwarded by the router, which applies the capability splicer
		// afterward; the interceptor has nothing local to contribute.
		return Response{Handled: false}
	case "ContinuousMove":
		result := i.forwarder.Forward(serviceName, rawBody)
		i.trackContinuousMove(root)
		return Response{Handled: true, Body: result.Body, StatusCode: result.StatusCode}
	case "AbsoluteMove":
		result := i.forwarder.Forward(serviceName, rawBody)
		i.trackAbsoluteMove(root)
		return Response{Handled: true, Body: result.Body, StatusCode: result.StatusCode}
	case "RelativeMove":
		return i.handleRelativeMove(serviceName, root, rawBody)
	case "Stop":
		return i.handleStop(serviceName, root)
	default:
		return Response{Handled: false}
	}
}

func (i *Interceptor) statusFields() soap.StatusFields {
	snap := i.tracker.Snapshot()
	return soap.StatusFields{
		PanX:              snap.Position.PanX,
		PanY:              snap.Position.PanY,
		PanSpace:          "http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace",
		ZoomX:             snap.Position.Zoom,
		ZoomSpace:         "http://www.onvif.org/ver10/tptz/ZoomSpaces/PositionGenericSpace",
		PanTiltMoveStatus: toMoveStatus(snap.PanTilt),
		ZoomMoveStatus:    toMoveStatus(snap.Zoom),
		UTCTime:           snap.UTCTime,
	}
}

func toMoveStatus(s tracker.AxisState) soap.MoveStatus {
	if s == tracker.StateMoving {
		return soap.MoveStatusMoving
	}
	return soap.MoveStatusIdle
}

// trackContinuousMove applies the tracker update that follows a
// client-issued ContinuousMove. Synthesized RelativeMove moves go through
// applySyntheticContinuousMove instead, and Stop sets both axes IDLE
// directly.
func (i *Interceptor) trackContinuousMove(root *soap.Node) {
	vec := soap.ExtractVector(root, "Velocity")
	duration := tracker.DefaultContinuousMoveTimeout()
	if d := soap.ExtractDuration(root); d != nil {
		duration = *d
	}

	panTiltZero := vec.PanTilt == nil || (vec.PanTilt.X == 0 && vec.PanTilt.Y == 0)
	zoomZero := vec.Zoom == nil || vec.Zoom.X == 0

	if panTiltZero && zoomZero {
		i.tracker.SetPanTilt(tracker.StateIdle, 0)
		i.tracker.SetZoom(tracker.StateIdle, 0)
		return
	}

	if !panTiltZero {
		i.tracker.SetPanTilt(tracker.StateMoving, duration)
		i.tracker.UpdatePositionVelocity(&tracker.Vector2D{X: vec.PanTilt.X, Y: vec.PanTilt.Y}, nil, duration)
	}
	if !zoomZero {
		i.tracker.SetZoom(tracker.StateMoving, duration)
		i.tracker.UpdatePositionVelocity(nil, &tracker.Vector1D{X: vec.Zoom.X}, duration)
	}
}

// trackAbsoluteMove marks both axes MOVING for AbsoluteMoveTimeout, and
// only overwrites the position of the axes actually present in the
// request, leaving the other axis's estimated position untouched —
// an AbsoluteMove naming only Zoom, say, must not reset PanTilt to 0,0.
func (i *Interceptor) trackAbsoluteMove(root *soap.Node) {
	vec := soap.ExtractVector(root, "Position")

	pos := i.tracker.Snapshot().Position
	i.tracker.SetPanTilt(tracker.StateMoving, tracker.AbsoluteMoveTimeout())
	i.tracker.SetZoom(tracker.StateMoving, tracker.AbsoluteMoveTimeout())
	if vec.PanTilt != nil {
		pos.PanX, pos.PanY = vec.PanTilt.X, vec.PanTilt.Y
	}
	if vec.Zoom != nil {
		pos.Zoom = vec.Zoom.X
	}
	i.tracker.SetAbsolutePosition(pos)
}

// handleRelativeMove synthesizes a ContinuousMove for a PanTilt
// translation, firing a zero-velocity follow-up on a detached goroutine
// after the derived duration. A zoom-only (no PanTilt component)
// RelativeMove is forwarded unchanged instead — the camera's own
// RelativeMove is atomic and self-terminating, so there's no follow-up
// stop to synthesize, but the tracker still needs to know the zoom axis
// is moving and by how much its estimated position shifted, exactly as
// the pan/tilt case does.
func (i *Interceptor) handleRelativeMove(serviceName string, root *soap.Node, rawBody []byte) Response {
	token := soap.ExtractProfileToken(root)
	vec := soap.ExtractVector(root, "Translation")
	if vec.PanTilt == nil {
		zoom := 0.0
		if vec.Zoom != nil {
			zoom = vec.Zoom.X
		}
		result := i.forwarder.Forward(serviceName, rawBody)
		if vec.Zoom != nil {
			duration := clampDuration(math.Abs(zoom) * relativeMoveDurationPerUnit)
			i.tracker.SetZoom(tracker.StateMoving, duration)
			i.tracker.UpdatePositionDelta(tracker.PositionDelta{Zoom: &tracker.Vector1D{X: zoom}})
		}
		return Response{Handled: true, Body: result.Body, StatusCode: result.StatusCode}
	}

	tx, ty := vec.PanTilt.X, vec.PanTilt.Y
	vx := signedVelocity(tx)
	vy := signedVelocity(ty)
	duration := clampDuration(math.Abs(tx)*relativeMoveDurationPerUnit + math.Abs(ty)*relativeMoveDurationPerUnit)

	moveBody := soap.BuildContinuousMove(token, vx, vy, 0, duration)
	result := i.forwarder.Forward(serviceName, moveBody)
	i.applySyntheticContinuousMove(vx, vy, 0, duration)

	go func() {
		time.Sleep(time.Duration(duration * float64(time.Second)))
		stopBody := soap.BuildContinuousMove(token, 0, 0, 0, 0)
		stopResult := i.forwarder.Forward(serviceName, stopBody)
		if i.logger != nil && stopResult.StatusCode >= 400 {
			i.logger.Warn("RelativeMove follow-up stop failed", "status", stopResult.StatusCode)
		}
		i.applySyntheticContinuousMove(0, 0, 0, 0)
	}()

	return Response{Handled: true, Body: result.Body, StatusCode: result.StatusCode}
}

func signedVelocity(component float64) float64 {
	switch {
	case component > 0:
		return relativeMoveVelocityMagnitude
	case component < 0:
		return -relativeMoveVelocityMagnitude
	default:
		return 0
	}
}

func clampDuration(seconds float64) float64 {
	if seconds < minRelativeMoveDuration {
		return minRelativeMoveDuration
	}
	if seconds > maxRelativeMoveDuration {
		return maxRelativeMoveDuration
	}
	return seconds
}

// applySyntheticContinuousMove updates the tracker exactly as
// trackContinuousMove would for a real ContinuousMove with this
// velocity, without re-parsing a body — the interceptor already knows
// the values because it built the request itself.
func (i *Interceptor) applySyntheticContinuousMove(vx, vy, vz, duration float64) {
	if vx == 0 && vy == 0 && vz == 0 {
		i.tracker.SetPanTilt(tracker.StateIdle, 0)
		i.tracker.SetZoom(tracker.StateIdle, 0)
		return
	}
	if vx != 0 || vy != 0 {
		i.tracker.SetPanTilt(tracker.StateMoving, duration)
		i.tracker.UpdatePositionVelocity(&tracker.Vector2D{X: vx, Y: vy}, nil, duration)
	}
	if vz != 0 {
		i.tracker.SetZoom(tracker.StateMoving, duration)
		i.tracker.UpdatePositionVelocity(nil, &tracker.Vector1D{X: vz}, duration)
	}
}

// handleStop never calls the camera's own Stop (it doesn't implement
// one meaningfully); it issues a zero-velocity ContinuousMove instead,
// which halts motion on both axes regardless of which Stop flags were
// requested, then marks both axes IDLE and replies with an empty
// StopResponse.
func (i *Interceptor) handleStop(serviceName string, root *soap.Node) Response {
	token := soap.ExtractProfileToken(root)
	_ = soap.ExtractStopFlags(root) // accepted, but doesn't change which axis is stopped; see design notes

	stopBody := soap.BuildContinuousMove(token, 0, 0, 0, 0)
	i.forwarder.Forward(serviceName, stopBody)

	i.tracker.SetPanTilt(tracker.StateIdle, 0)
	i.tracker.SetZoom(tracker.StateIdle, 0)

	return Response{Handled: true, Body: soap.BuildSimpleResponse("Stop", "tptz", soap.NamespacePTZ), StatusCode: 200}
}

// rebuildZoomOnlyRelativeMove re-serializes a zoom-only RelativeMove from
// its ProfileToken and Zoom x alone; any Speed element and the client's
// space attribute are not carried over.
func rebuildZoomOnlyRelativeMove(root *soap.Node) []byte {
	token := soap.ExtractProfileToken(root)
	vec := soap.ExtractVector(root, "Translation")
	zoom := 0.0
	if vec.Zoom != nil {
		zoom = vec.Zoom.X
	}
	return soap.BuildRelativeMoveZoomOnly(token, zoom)
}
