package authclient

import (
	"encoding/base64"
	"fmt"

	"github.com/migueldeicaza/MailFoundation-sub004"
	"github.com/migueldeicaza/MailFoundation-sub004/sasl"
)

// encodeSASL encodes a mechanism response for the wire. An empty
// response is sent as "=" so the server can tell it apart from a
// missing one.
func encodeSASL(b []byte) string {
	if len(b) == 0 {
		return "="
	}
	return base64.StdEncoding.EncodeToString(b)
}

// decodeSASL decodes a continuation challenge. Servers denote an empty
// challenge as an empty line, a bare "+", or "="; mechanisms expect a
// non-nil empty slice in that case.
func decodeSASL(s string) ([]byte, error) {
	switch s {
	case "", "+", "=":
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// Exchange is the caller-pumped form of a SASL exchange, for
// connections that multiplex I/O themselves instead of blocking. The
// caller sends Command(), then feeds every server reply to Feed and
// sends whatever line it returns, until done.
//
// Client.Authenticate is this same loop run to completion; both
// variants emit identical bytes.
type Exchange struct {
	client      sasl.Client
	command     string
	initialResp []byte
	done        bool
}

// NewExchange starts a SASL exchange. The mechanism's Start is called
// here; its initial response, if any, is carried on the AUTH command.
func NewExchange(saslClient sasl.Client) (*Exchange, error) {
	mech, ir, err := saslClient.Start()
	if err != nil {
		return nil, err
	}
	command := "AUTH " + mech
	if ir != nil {
		command += " " + encodeSASL(ir)
	}
	return &Exchange{
		client:  saslClient,
		command: command,
	}, nil
}

// Command returns the AUTH command line opening the exchange, without
// the line terminator.
func (e *Exchange) Command() string {
	return e.command
}

// Feed consumes one server reply. For a continuation reply it returns
// the next line to send. A final status settles the exchange: done is
// true on success, and a failure status is returned as an error
// wrapping ErrCredentialsRejected. Feeding a settled exchange is an
// error.
func (e *Exchange) Feed(reply *mailauth.Reply) (line string, done bool, err error) {
	if e.done {
		return "", false, fmt.Errorf("authclient: exchange already settled")
	}
	switch reply.Type {
	case mailauth.ReplyOK:
		e.done = true
		return "", true, nil
	case mailauth.ReplyError:
		e.done = true
		return "", false, fmt.Errorf("%w: %v", ErrCredentialsRejected, reply.Text)
	}

	challenge, err := decodeSASL(reply.Text)
	if err != nil {
		e.done = true
		return "", false, fmt.Errorf("authclient: malformed challenge: %v", err)
	}
	resp, err := e.client.Next(challenge)
	if err != nil {
		e.done = true
		return "", false, err
	}
	return encodeSASL(resp), false, nil
}
