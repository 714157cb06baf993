// Package soap implements the namespace-oblivious SOAP envelope codec the
// proxy uses to parse inbound ONVIF requests and emit responses and faults.
package soap

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Node is a generic, namespace-oblivious XML tree. Inbound ONVIF clients
// vary in which prefixes they bind to which namespaces, so parameter
// extraction throughout this package walks Node trees by local name only,
// the same tolerance the teacher's soap.GetAction applied to the single
// top-level Body child, generalized to arbitrary depth.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []Node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

// Attr returns the value of the attribute with the given local name, or
// "" if absent.
func (n *Node) Attr(localName string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == localName {
			return a.Value
		}
	}
	return ""
}

// Find performs a depth-first search for the first descendant (including
// itself) whose local name matches, returning nil if none is found.
func (n *Node) Find(localName string) *Node {
	if n == nil {
		return nil
	}
	if n.XMLName.Local == localName {
		return n
	}
	for i := range n.Children {
		if found := n.Children[i].Find(localName); found != nil {
			return found
		}
	}
	return nil
}

// Child returns the direct child with the given local name, or nil.
func (n *Node) Child(localName string) *Node {
	if n == nil {
		return nil
	}
	for i := range n.Children {
		if n.Children[i].XMLName.Local == localName {
			return &n.Children[i]
		}
	}
	return nil
}

type envelopeDoc struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		XMLName  xml.Name
		Children []Node `xml:",any"`
	} `xml:"Body"`
}

// ErrNoOperation is returned by Parse when the envelope has no Body, or an
// empty one. The caller may still use the (possibly empty) returned root.
var ErrNoOperation = fmt.Errorf("soap: envelope has no operation")

// ErrMalformed is returned by Parse when the input is not a well-formed
// SOAP envelope at all.
var ErrMalformed = fmt.Errorf("soap: malformed envelope")

// Parse accepts a SOAP 1.1 or 1.2 envelope (the two differ only in the
// Envelope namespace URI, and Go's encoding/xml matches unprefixed tag
// names by local name regardless of namespace, so both decode with the
// same struct) and returns the operation's local name plus its element
// tree, rooted at the first child of Body.
//
// If Body is missing or empty, operation is "" and ErrNoOperation is
// returned together with an empty root, per the "operation = none" case
// the codec must preserve rather than fail outright.
func Parse(data []byte) (operation string, root *Node, err error) {
	var doc envelopeDoc
	if decErr := xml.Unmarshal(data, &doc); decErr != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, decErr)
	}

	if len(doc.Body.Children) == 0 {
		return "", &Node{}, ErrNoOperation
	}

	first := doc.Body.Children[0]
	return first.XMLName.Local, &first, nil
}

// ExtractProfileToken returns the text of a ProfileToken element found
// anywhere in the tree.
func ExtractProfileToken(root *Node) string {
	if n := root.Find("ProfileToken"); n != nil {
		return strings.TrimSpace(n.Text)
	}
	return ""
}

// Vector1D is a one-dimensional PTZ component (zoom).
type Vector1D struct {
	X     float64
	Space string
}

// Vector2D is a two-dimensional PTZ component (pan/tilt).
type Vector2D struct {
	X, Y  float64
	Space string
}

// PTZVector is the decoded contents of a Velocity/Translation/Position
// container: an optional PanTilt component and an optional Zoom component.
type PTZVector struct {
	PanTilt *Vector2D
	Zoom    *Vector1D
}

// ExtractVector descends into the named container element (Velocity,
// Translation, or Position) and reads its PanTilt and Zoom children.
// Missing x/y attributes default to 0.0, and a missing space attribute
// defaults to "". A container that itself is absent yields a PTZVector
// with both fields nil.
func ExtractVector(root *Node, containerName string) PTZVector {
	var out PTZVector

	container := root.Find(containerName)
	if container == nil {
		return out
	}

	if pt := container.Child("PanTilt"); pt != nil {
		out.PanTilt = &Vector2D{
			X:     parseFloatAttr(pt, "x"),
			Y:     parseFloatAttr(pt, "y"),
			Space: pt.Attr("space"),
		}
	}
	if z := container.Child("Zoom"); z != nil {
		out.Zoom = &Vector1D{
			X:     parseFloatAttr(z, "x"),
			Space: z.Attr("space"),
		}
	}

	return out
}

func parseFloatAttr(n *Node, name string) float64 {
	v := n.Attr(name)
	if v == "" {
		return 0.0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0.0
	}
	return f
}

// ExtractDuration parses an ISO-8601 duration of the restricted form
// "PT<seconds>S" (optionally with a fractional seconds part), returning
// the number of seconds. It returns nil if no Timeout-shaped element is
// present, or if its text doesn't match that restricted form — the proxy
// never needs to support the full ISO-8601 duration grammar because the
// only producer of this value is itself, or ONVIF clients sending PTZ
// timeouts, which are always plain seconds.
func ExtractDuration(root *Node) *float64 {
	n := root.Find("Timeout")
	if n == nil {
		return nil
	}
	return parseSecondsDuration(n.Text)
}

func parseSecondsDuration(text string) *float64 {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "PT") || !strings.HasSuffix(text, "S") {
		return nil
	}
	secondsPart := text[2 : len(text)-1]
	if secondsPart == "" {
		return nil
	}
	seconds, err := strconv.ParseFloat(secondsPart, 64)
	if err != nil {
		return nil
	}
	return &seconds
}

// StopFlags is the decoded PanTilt/Zoom flag pair from a Stop request.
type StopFlags struct {
	PanTilt bool
	Zoom    bool
}

// ExtractStopFlags reads the PanTilt and Zoom boolean flags from a Stop
// request, each defaulting to true when absent, per ONVIF semantics.
func ExtractStopFlags(root *Node) StopFlags {
	flags := StopFlags{PanTilt: true, Zoom: true}

	if n := root.Child("PanTilt"); n != nil {
		flags.PanTilt = parseBool(n.Text, true)
	}
	if n := root.Child("Zoom"); n != nil {
		flags.Zoom = parseBool(n.Text, true)
	}

	return flags
}

func parseBool(text string, fallback bool) bool {
	text = strings.TrimSpace(text)
	switch text {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return fallback
	}
}
