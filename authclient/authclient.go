// Package authclient drives a SASL mechanism through the AUTH command
// flow of a mail-protocol connection, and implements the legacy
// USER/PASS exchange over the same state machine.
//
// The transport is an external collaborator: the driver only needs to
// send one line and read one decoded reply at a time. Both the blocking
// Client methods and the caller-pumped Exchange produce identical wire
// output; Client is a thin loop over Exchange.
package authclient

import (
	"errors"
	"fmt"
	"io"

	"github.com/migueldeicaza/MailFoundation-sub004"
	"github.com/migueldeicaza/MailFoundation-sub004/sasl"
)

// Conn is the line-oriented transport the driver talks through. The
// protocol layer owns framing and CRLF handling; SendLine takes a bare
// line without the terminator, ReadReply returns the next decoded
// server reply.
type Conn interface {
	SendLine(line string) error
	ReadReply() (*mailauth.Reply, error)
}

// Options contains options for Client.
type Options struct {
	// Sent lines and received replies will be written to this writer,
	// if any. Lines carry credentials base64-encoded, not encrypted;
	// attach a debug writer accordingly.
	DebugWriter io.Writer
}

var (
	// ErrNotConnected is returned when an authentication attempt is
	// started from any state other than connected.
	ErrNotConnected = errors.New("authclient: not in the connected state")

	// ErrCredentialsRejected is returned when the server answers an
	// authentication attempt with a failure status. The connection
	// reverts to the connected state and may retry with different
	// credentials.
	ErrCredentialsRejected = errors.New("authclient: credentials rejected")
)

// loginStep tracks progress through the two-field USER/PASS exchange.
type loginStep int

const (
	loginNone loginStep = iota
	loginUserSent
	loginPassSent
)

// Client is a per-connection authentication driver.
//
// A Client is single-owner: its methods must not be called concurrently
// and an in-flight exchange must settle before the next one starts.
type Client struct {
	conn    Conn
	options Options

	state mailauth.ConnState
	step  loginStep
}

// New creates a driver over an established, greeted connection.
//
// This function doesn't perform I/O.
//
// A nil options pointer is equivalent to a zero options value.
func New(conn Conn, options *Options) *Client {
	if options == nil {
		options = &Options{}
	}
	return &Client{
		conn:    conn,
		options: *options,
		state:   mailauth.ConnectedState,
	}
}

// State returns the current authentication state of the connection.
func (c *Client) State() mailauth.ConnState {
	return c.state
}

func (c *Client) sendLine(line string) error {
	if w := c.options.DebugWriter; w != nil {
		fmt.Fprintf(w, "C: %s\r\n", line)
	}
	return c.conn.SendLine(line)
}

func (c *Client) readReply() (*mailauth.Reply, error) {
	reply, err := c.conn.ReadReply()
	if err != nil {
		return nil, err
	}
	if w := c.options.DebugWriter; w != nil {
		var marker string
		switch reply.Type {
		case mailauth.ReplyContinuation:
			marker = "+"
		case mailauth.ReplyOK:
			marker = "OK"
		case mailauth.ReplyError:
			marker = "ERR"
		}
		fmt.Fprintf(w, "S: %s %s\r\n", marker, reply.Text)
	}
	return reply, nil
}

// Authenticate runs a full SASL exchange with the given mechanism.
//
// Unlike the caller-pumped Exchange, this method blocks until the
// exchange settles. On success the connection is authenticated; on a
// server failure status it reverts to connected and the error wraps
// ErrCredentialsRejected. Mechanism state is discarded either way.
func (c *Client) Authenticate(saslClient sasl.Client) error {
	if c.state != mailauth.ConnectedState {
		return ErrNotConnected
	}

	ex, err := NewExchange(saslClient)
	if err != nil {
		return err
	}
	c.state = mailauth.AuthenticatingState

	if err := c.sendLine(ex.Command()); err != nil {
		c.state = mailauth.ConnectedState
		return err
	}
	for {
		reply, err := c.readReply()
		if err != nil {
			c.state = mailauth.ConnectedState
			return err
		}
		line, done, err := ex.Feed(reply)
		if err != nil {
			c.state = mailauth.ConnectedState
			return err
		}
		if done {
			c.state = mailauth.AuthenticatedState
			return nil
		}
		if err := c.sendLine(line); err != nil {
			c.state = mailauth.ConnectedState
			return err
		}
	}
}

// Login runs the legacy USER/PASS exchange.
//
// A failure at either step reverts the connection to connected and
// clears the sub-step; the error wraps ErrCredentialsRejected when the
// server rejected the credentials.
func (c *Client) Login(username, password string) error {
	if c.state != mailauth.ConnectedState {
		return ErrNotConnected
	}
	c.state = mailauth.AuthenticatingState

	fail := func(err error) error {
		c.state = mailauth.ConnectedState
		c.step = loginNone
		return err
	}

	if err := c.sendLine("USER " + username); err != nil {
		return fail(err)
	}
	c.step = loginUserSent
	reply, err := c.readReply()
	if err != nil {
		return fail(err)
	}
	if reply.Type == mailauth.ReplyError {
		return fail(fmt.Errorf("%w: %v", ErrCredentialsRejected, reply.Text))
	}

	if err := c.sendLine("PASS " + password); err != nil {
		return fail(err)
	}
	c.step = loginPassSent
	reply, err = c.readReply()
	if err != nil {
		return fail(err)
	}
	if reply.Type != mailauth.ReplyOK {
		return fail(fmt.Errorf("%w: %v", ErrCredentialsRejected, reply.Text))
	}

	c.state = mailauth.AuthenticatedState
	c.step = loginNone
	return nil
}
