package sasl

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/migueldeicaza/MailFoundation-sub004/internal/saslprep"
)

// ErrAlreadyAuthenticated is returned when a step of a SCRAM exchange
// is requested after the exchange already completed.
var ErrAlreadyAuthenticated = errors.New("sasl: already authenticated")

// ErrInvalidServerSignature is returned when the server's closing
// signature does not verify. The server must not be trusted: it never
// proved knowledge of the credentials.
var ErrInvalidServerSignature = errors.New("sasl: invalid server signature")

// A SCRAM exchange walks exactly one way through these states. Any
// out-of-order transition is a protocol violation, not a retry case.
type scramState int

const (
	scramInitial scramState = iota
	scramFinal
	scramValidate
	scramComplete
)

type scramClient struct {
	mech     string
	newHash  func() hash.Hash
	username string
	password string
	identity string
	binding  *ChannelBinding

	state scramState

	// nonce is generated lazily and then fixed for the exchange.
	nonce           string
	gs2Header       string
	clientFirstBare string

	// Derived during final->validate and kept only long enough to check
	// the server's closing signature.
	saltedPassword []byte
	authMessage    string

	authenticated bool
}

func newScramClient(mech string, newHash func() hash.Hash, username, password, identity string, binding *ChannelBinding) *scramClient {
	return &scramClient{
		mech:     mech,
		newHash:  newHash,
		username: username,
		password: password,
		identity: identity,
		binding:  binding,
	}
}

// NewScramSHA1Client implements the SCRAM-SHA-1 authentication
// mechanism, as described in RFC 5802.
func NewScramSHA1Client(username, password, identity string) Client {
	return newScramClient("SCRAM-SHA-1", sha1.New, username, password, identity, nil)
}

// NewScramSHA1PlusClient implements SCRAM-SHA-1-PLUS, binding the
// exchange to the TLS channel described by binding.
func NewScramSHA1PlusClient(username, password, identity string, binding ChannelBinding) Client {
	return newScramClient("SCRAM-SHA-1-PLUS", sha1.New, username, password, identity, &binding)
}

// NewScramSHA256Client implements the SCRAM-SHA-256 authentication
// mechanism, as described in RFC 7677.
func NewScramSHA256Client(username, password, identity string) Client {
	return newScramClient("SCRAM-SHA-256", sha256.New, username, password, identity, nil)
}

// NewScramSHA256PlusClient implements SCRAM-SHA-256-PLUS, binding the
// exchange to the TLS channel described by binding.
func NewScramSHA256PlusClient(username, password, identity string, binding ChannelBinding) Client {
	return newScramClient("SCRAM-SHA-256-PLUS", sha256.New, username, password, identity, &binding)
}

// NewScramSHA512Client implements the SCRAM-SHA-512 authentication
// mechanism, as described in draft-melnikov-scram-sha-512.
func NewScramSHA512Client(username, password, identity string) Client {
	return newScramClient("SCRAM-SHA-512", sha512.New, username, password, identity, nil)
}

// NewScramSHA512PlusClient implements SCRAM-SHA-512-PLUS, binding the
// exchange to the TLS channel described by binding.
func NewScramSHA512PlusClient(username, password, identity string, binding ChannelBinding) Client {
	return newScramClient("SCRAM-SHA-512-PLUS", sha512.New, username, password, identity, &binding)
}

func (a *scramClient) Start() (mech string, ir []byte, err error) {
	ir, err = a.initialMessage()
	return a.mech, ir, err
}

func (a *scramClient) Next(challenge []byte) (response []byte, err error) {
	switch a.state {
	case scramFinal:
		return a.processChallenge(challenge)
	case scramValidate:
		if err := a.verifyServerFinal(challenge); err != nil {
			return nil, err
		}
		return []byte{}, nil
	default:
		return nil, ErrAlreadyAuthenticated
	}
}

// escapeName escapes "=" and "," in SCRAM attribute names, per RFC 5802
// section 5.1.
func escapeName(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	return strings.ReplaceAll(s, ",", "=2C")
}

func (a *scramClient) initialMessage() ([]byte, error) {
	if a.state != scramInitial {
		return nil, ErrAlreadyAuthenticated
	}

	username, err := saslprep.String(a.username)
	if err != nil {
		return nil, fmt.Errorf("sasl: preparing username: %w", err)
	}
	if a.nonce == "" {
		raw := make([]byte, 18)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("sasl: generating nonce: %v", err)
		}
		a.nonce = base64.StdEncoding.EncodeToString(raw)
	}

	gs2 := "n"
	if a.binding != nil {
		gs2 = "p=" + a.binding.Name
	}
	gs2 += ","
	if a.identity != "" {
		identity, err := saslprep.String(a.identity)
		if err != nil {
			return nil, fmt.Errorf("sasl: preparing authorization identity: %w", err)
		}
		gs2 += "a=" + escapeName(identity)
	}
	gs2 += ","
	a.gs2Header = gs2

	a.clientFirstBare = "n=" + escapeName(username) + ",r=" + a.nonce
	a.state = scramFinal
	return []byte(a.gs2Header + a.clientFirstBare), nil
}

func (a *scramClient) processChallenge(challenge []byte) ([]byte, error) {
	if a.state != scramFinal {
		return nil, ErrAlreadyAuthenticated
	}

	serverFirst := string(challenge)
	attrs, err := parseScramAttrs(serverFirst)
	if err != nil {
		return nil, err
	}
	serverNonce, ok := attrs['r']
	if !ok {
		return nil, errors.New("sasl: server first message without nonce")
	}
	if !strings.HasPrefix(serverNonce, a.nonce) {
		return nil, errors.New("sasl: server nonce does not extend client nonce")
	}
	saltB64, ok := attrs['s']
	if !ok {
		return nil, errors.New("sasl: server first message without salt")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("sasl: bad salt: %v", err)
	}
	iterStr, ok := attrs['i']
	if !ok {
		return nil, errors.New("sasl: server first message without iteration count")
	}
	iterations, err := strconv.Atoi(iterStr)
	if err != nil || iterations <= 0 {
		return nil, fmt.Errorf("sasl: bad iteration count %q", iterStr)
	}

	password, err := saslprep.String(a.password)
	if err != nil {
		return nil, fmt.Errorf("sasl: preparing password: %w", err)
	}
	// Hi(password, salt, i) of RFC 5802 is PBKDF2 with HMAC as the PRF.
	a.saltedPassword = pbkdf2.Key([]byte(password), salt, iterations, a.newHash().Size(), a.newHash)

	cbInput := []byte(a.gs2Header)
	if a.binding != nil {
		cbInput = append(cbInput, a.binding.Data...)
	}
	withoutProof := "c=" + base64.StdEncoding.EncodeToString(cbInput) + ",r=" + serverNonce
	a.authMessage = a.clientFirstBare + "," + serverFirst + "," + withoutProof

	clientKey := a.hmac(a.saltedPassword, "Client Key")
	storedKey := a.hash(clientKey)
	clientSignature := a.hmac(storedKey, a.authMessage)
	proof := make([]byte, len(clientKey))
	for i := range proof {
		proof[i] = clientKey[i] ^ clientSignature[i]
	}

	a.state = scramValidate
	return []byte(withoutProof + ",p=" + base64.StdEncoding.EncodeToString(proof)), nil
}

func (a *scramClient) verifyServerFinal(challenge []byte) error {
	if a.state != scramValidate {
		return ErrAlreadyAuthenticated
	}

	attrs, err := parseScramAttrs(string(challenge))
	if err != nil {
		return err
	}
	if msg, ok := attrs['e']; ok {
		return fmt.Errorf("sasl: server rejected authentication: %s", msg)
	}
	sigB64, ok := attrs['v']
	if !ok {
		return errors.New("sasl: server final message without signature")
	}
	signature, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("sasl: bad server signature: %v", err)
	}

	serverKey := a.hmac(a.saltedPassword, "Server Key")
	expected := a.hmac(serverKey, a.authMessage)
	if !hmac.Equal(signature, expected) {
		return ErrInvalidServerSignature
	}

	// Key material is single-use; drop it as soon as the server proved
	// itself.
	for i := range a.saltedPassword {
		a.saltedPassword[i] = 0
	}
	a.saltedPassword = nil
	a.authMessage = ""
	a.authenticated = true
	a.state = scramComplete
	return nil
}

func (a *scramClient) hmac(key []byte, data string) []byte {
	mac := hmac.New(a.newHash, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func (a *scramClient) hash(b []byte) []byte {
	h := a.newHash()
	h.Write(b)
	return h.Sum(nil)
}

// parseScramAttrs splits a comma-separated list of single-letter
// key=value attributes.
func parseScramAttrs(s string) (map[byte]string, error) {
	attrs := make(map[byte]string)
	if s == "" {
		return nil, errors.New("sasl: empty SCRAM message")
	}
	for _, part := range strings.Split(s, ",") {
		if len(part) < 2 || part[1] != '=' {
			return nil, fmt.Errorf("sasl: malformed SCRAM attribute %q", part)
		}
		key := part[0]
		if _, dup := attrs[key]; dup {
			return nil, fmt.Errorf("sasl: duplicate SCRAM attribute %q", key)
		}
		attrs[key] = part[2:]
	}
	return attrs, nil
}
