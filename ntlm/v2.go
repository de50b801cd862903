package ntlm

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/migueldeicaza/MailFoundation-sub004/internal/md4"
	"github.com/migueldeicaza/MailFoundation-sub004/internal/rc4"
)

// Seconds between the Windows epoch (1601-01-01) and the Unix epoch.
const windowsEpochOffset = 11644473600

// Filetime converts t to a Windows FILETIME: 100 ns ticks since 1601-01-01.
func Filetime(t time.Time) uint64 {
	return uint64(t.Unix()+windowsEpochOffset)*10_000_000 + uint64(t.Nanosecond()/100)
}

func hmacMD5(key []byte, data ...[]byte) []byte {
	mac := hmac.New(md5.New, key)
	for _, d := range data {
		mac.Write(d)
	}
	return mac.Sum(nil)
}

// ntowfV2 derives ResponseKeyNT:
// HMAC-MD5(MD4(UTF16LE(password)), UTF16LE(UPPER(username) + domain)).
func ntowfV2(username, password, domain string) ([]byte, error) {
	pw, err := encodeUTF16(password)
	if err != nil {
		return nil, err
	}
	ntHash := md4.Sum(pw)
	ident, err := encodeUTF16(strings.ToUpper(username) + domain)
	if err != nil {
		return nil, err
	}
	return hmacMD5(ntHash[:], ident), nil
}

// computeResponseV2 builds the NTLMv2 "temp" blob and returns
// NTChallengeResponse (NTProofStr || temp) and the session base key.
func computeResponseV2(responseKeyNT, serverChallenge, clientChallenge []byte, timestamp uint64, targetInfo []byte) (ntResponse, sessionBaseKey []byte) {
	temp := make([]byte, 0, 28+len(targetInfo)+4)
	temp = append(temp, 1, 1, 0, 0, 0, 0, 0, 0) // resp version, hi resp version, 6 reserved
	temp = binary.LittleEndian.AppendUint64(temp, timestamp)
	temp = append(temp, clientChallenge...)
	temp = append(temp, 0, 0, 0, 0)
	temp = append(temp, targetInfo...)
	temp = append(temp, 0, 0, 0, 0)

	proof := hmacMD5(responseKeyNT, serverChallenge, temp)
	sessionBaseKey = hmacMD5(responseKeyNT, proof)
	return append(proof, temp...), sessionBaseKey
}

func lmV2Response(responseKeyNT, serverChallenge, clientChallenge []byte) []byte {
	return append(hmacMD5(responseKeyNT, serverChallenge, clientChallenge), clientChallenge...)
}

const clientDefaultFlags = FlagNegotiateUnicode |
	FlagNegotiateOEM |
	FlagRequestTarget |
	FlagNegotiateSign |
	FlagNegotiateNTLM |
	FlagNegotiateAlwaysSign |
	FlagExtendedSessionSecurity |
	FlagNegotiateTargetInfo |
	FlagNegotiate128 |
	FlagNegotiateKeyExchange |
	FlagNegotiate56

// Client performs the client side of one NTLMv2 exchange:
// Negotiate, ProcessChallenge, Authenticate, strictly in that order.
// A Client is single-use; its key material dies with the exchange.
type Client struct {
	Username    string
	Password    string
	Domain      string
	Workstation string

	// Version, if set, is sent in the Negotiate message. Mutually
	// exclusive with Domain/Workstation there.
	Version *Version

	// ChannelBinding is the 16-byte MD5 hash of the GSS channel binding
	// structure, echoed into the target info when present.
	ChannelBinding []byte

	// TimeNow overrides the clock used when the server supplies no
	// timestamp. Nil means time.Now.
	TimeNow func() time.Time

	// randRead is swapped out by tests for deterministic challenges.
	randRead func([]byte) error

	requested Flags
	flags     Flags
	challenge *Challenge
	sent      bool

	sessionKey []byte
}

var errExchangeOrder = errors.New("ntlm: exchange messages out of order")

func (c *Client) random(n int) ([]byte, error) {
	b := make([]byte, n)
	read := c.randRead
	if read == nil {
		read = func(b []byte) error {
			_, err := rand.Read(b)
			return err
		}
	}
	if err := read(b); err != nil {
		return nil, fmt.Errorf("ntlm: generating random bytes: %v", err)
	}
	return b, nil
}

// Negotiate produces the opening message.
func (c *Client) Negotiate() (*Negotiate, error) {
	if c.sent {
		return nil, errExchangeOrder
	}
	c.sent = true
	c.requested = clientDefaultFlags
	m := &Negotiate{Flags: c.requested}
	if c.Version != nil {
		m.Version = c.Version
	} else {
		m.Domain = c.Domain
		m.Workstation = c.Workstation
	}
	return m, nil
}

// ProcessChallenge consumes the server's Challenge message.
func (c *Client) ProcessChallenge(ch *Challenge) error {
	if !c.sent || c.challenge != nil {
		return errExchangeOrder
	}
	c.challenge = ch

	// Intersect what we asked for with what the server granted, then
	// resolve the mutually exclusive bits: Unicode wins over OEM, LM key
	// is dead under extended session security, and key exchange only
	// makes sense when signing or sealing was negotiated.
	flags := c.requested & ch.Flags
	if flags.Has(FlagNegotiateUnicode) {
		flags &^= FlagNegotiateOEM
	}
	if flags.Has(FlagExtendedSessionSecurity) {
		flags &^= FlagNegotiateLMKey
	}
	if !flags.Has(FlagNegotiateSign) && !flags.Has(FlagNegotiateSeal) {
		flags &^= FlagNegotiateKeyExchange
	}
	if c.requested.Has(FlagRequestTarget) {
		flags |= FlagRequestTarget
	}
	c.flags = flags
	return nil
}

// Authenticate computes the NTLMv2 response and builds the closing
// message. Empty username and password produce an anonymous message.
func (c *Client) Authenticate() (*Authenticate, error) {
	if c.challenge == nil {
		return nil, errExchangeOrder
	}

	m := &Authenticate{
		Flags:       c.flags,
		Domain:      c.Domain,
		Username:    c.Username,
		Workstation: c.Workstation,
	}

	if c.Username == "" && c.Password == "" {
		m.Flags |= FlagAnonymous
		m.NTResponse = nil
		m.LMResponse = []byte{0}
		return m, nil
	}

	responseKeyNT, err := ntowfV2(c.Username, c.Password, c.Domain)
	if err != nil {
		return nil, err
	}
	clientChallenge, err := c.random(8)
	if err != nil {
		return nil, err
	}

	info := c.challenge.TargetInfo.Clone()
	var timestamp uint64
	var haveServerTime bool
	if info != nil {
		timestamp, haveServerTime = info.Timestamp()
	}
	if !haveServerTime {
		now := time.Now
		if c.TimeNow != nil {
			now = c.TimeNow
		}
		timestamp = Filetime(now())
	}

	var encodedInfo []byte
	if info != nil {
		if haveServerTime {
			// A server timestamp means the server expects a MIC: flag it
			// in the echoed target info and reserve the MIC field.
			info.SetFlags(AVFlagMICPresent)
			if _, ok := info.Get(AVChannelBindings); !ok {
				cb := c.ChannelBinding
				if cb == nil {
					cb = make([]byte, 16)
				}
				info.Set(AVChannelBindings, cb)
			}
			if _, ok := info.Get(AVTargetName); !ok {
				if err := info.SetString(AVTargetName, ""); err != nil {
					return nil, err
				}
			}
		} else if c.ChannelBinding != nil {
			info.Set(AVChannelBindings, c.ChannelBinding)
		}
		encodedInfo = info.Encode()
	}

	ntResponse, sessionBaseKey := computeResponseV2(
		responseKeyNT, c.challenge.ServerChallenge[:], clientChallenge, timestamp, encodedInfo)
	m.NTResponse = ntResponse

	if haveServerTime {
		// The LM response is irrelevant once the server proves freshness.
		m.LMResponse = make([]byte, 24)
		// The MIC over the three raw messages is reserved but left zero:
		// computing it would require retaining the exact Negotiate and
		// Challenge buffers, which this client does not keep.
		m.MIC = new([16]byte)
	} else {
		m.LMResponse = lmV2Response(responseKeyNT, c.challenge.ServerChallenge[:], clientChallenge)
	}

	// For NTLMv2 the key exchange key is the session base key.
	keyExchangeKey := sessionBaseKey
	if m.Flags.Has(FlagNegotiateKeyExchange) {
		exported, err := c.random(16)
		if err != nil {
			return nil, err
		}
		if m.EncryptedSessionKey, err = rc4.Sum(keyExchangeKey, exported); err != nil {
			return nil, err
		}
		c.sessionKey = exported
	} else {
		c.sessionKey = keyExchangeKey
	}
	return m, nil
}

// SessionKey returns the exported session key after a successful
// Authenticate, for callers that go on to sign or seal.
func (c *Client) SessionKey() []byte {
	return c.sessionKey
}
