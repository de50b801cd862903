// Package sasl implements the client side of the Simple Authentication
// and Security Layer (RFC 4422) for mail protocols.
//
// Mechanisms are exposed through a single Client interface; a protocol
// connection drives whichever Client it is handed through the
// command/challenge/response cycle without knowing the mechanism.
// Stateless mechanisms (PLAIN, LOGIN, CRAM-MD5, XOAUTH2, EXTERNAL)
// close over credentials only; NTLM, SCRAM and GSSAPI clients carry
// per-exchange state and are single-use.
package sasl

import "errors"

// Client interface to perform challenge-response authentication.
type Client interface {
	// Start begins SASL authentication with the server. It returns the
	// authentication mechanism name and "initial response" data (if required by
	// the selected mechanism). A non-nil error causes the client to abort the
	// authentication attempt.
	//
	// A nil ir value is different from a zero-length value. The nil value
	// indicates that the selected mechanism does not use an initial response,
	// while a zero-length value indicates an empty initial response, which must
	// be sent to the server.
	Start() (mech string, ir []byte, err error)

	// Next continues challenge-response authentication. A non-nil error causes
	// the client to abort the authentication attempt.
	Next(challenge []byte) (response []byte, err error)
}

// ErrUnexpectedServerChallenge is returned by mechanisms that receive a
// continuation challenge after their exchange already completed.
var ErrUnexpectedServerChallenge = errors.New("sasl: unexpected server challenge")

// ChannelBinding carries the channel binding material for the -PLUS
// mechanism variants: the binding type name (e.g. "tls-unique" or
// "tls-server-end-point") and the raw binding data of the underlying
// TLS channel.
type ChannelBinding struct {
	Name string
	Data []byte
}
