// Package mailauth defines the shared vocabulary of the authentication
// engine: the per-connection authentication state and the minimal
// server-reply shape the driver consumes.
//
// Mechanisms live in the sasl package; the per-connection command flow
// lives in the authclient package. This package deliberately holds no
// behavior so that transport implementations can depend on it without
// pulling in any mechanism code.
package mailauth

// A connection authentication state.
type ConnState int

const (
	// No transport is attached. This is the zero value; a driver is
	// never usable in this state.
	DisconnectedState ConnState = iota

	// A transport is attached and the server greeted us, but no
	// credentials have been accepted yet. Authentication attempts may
	// only start from this state, and failed attempts return here.
	ConnectedState

	// An authentication exchange is in flight. The connection must not
	// issue unrelated commands until the exchange settles.
	AuthenticatingState

	// The server accepted credentials. Terminal for this package; what
	// the connection may do next is the protocol's business.
	AuthenticatedState
)

func (s ConnState) String() string {
	switch s {
	case DisconnectedState:
		return "disconnected"
	case ConnectedState:
		return "connected"
	case AuthenticatingState:
		return "authenticating"
	case AuthenticatedState:
		return "authenticated"
	default:
		return "unknown"
	}
}

// ReplyType classifies one decoded server reply line.
type ReplyType int

const (
	// ReplyContinuation is a server request for more authentication
	// data ("+ <base64>" in SMTP and IMAP, "+ " in POP3).
	ReplyContinuation ReplyType = iota

	// ReplyOK is a final success status.
	ReplyOK

	// ReplyError is a final failure status. The text carries the
	// server's diagnostic.
	ReplyError
)

// Reply is one decoded server reply line, as produced by the
// protocol-specific framing layer. Text holds the payload after the
// status marker: the base64 challenge for continuations, the
// human-readable message otherwise.
type Reply struct {
	Type ReplyType
	Text string
}
