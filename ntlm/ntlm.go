// Package ntlm implements the NTLMSSP message codec and the NTLMv2
// challenge-response computation used by the NTLM SASL mechanism.
//
// The three message types (Negotiate, Challenge, Authenticate) are
// immutable value records with an Encode/Decode pair over the fixed
// little-endian layout described in MS-NLMP. All multi-byte integers are
// little-endian; protocol strings are UTF-16LE when the Unicode flag is
// negotiated and raw single-byte text otherwise.
package ntlm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Every NTLMSSP message starts with this signature.
const signature = "NTLMSSP\x00"

const (
	typeNegotiate    uint32 = 1
	typeChallenge    uint32 = 2
	typeAuthenticate uint32 = 3
)

// ErrInvalidMessage is wrapped by all decode errors caused by malformed
// wire data (bad signature, wrong type tag, truncated buffers).
var ErrInvalidMessage = errors.New("ntlm: invalid message")

// Flags is the NTLMSSP NEGOTIATE flag set.
type Flags uint32

const (
	FlagNegotiateUnicode        Flags = 1 << 0
	FlagNegotiateOEM            Flags = 1 << 1
	FlagRequestTarget           Flags = 1 << 2
	FlagNegotiateSign           Flags = 1 << 4
	FlagNegotiateSeal           Flags = 1 << 5
	FlagNegotiateDatagram       Flags = 1 << 6
	FlagNegotiateLMKey          Flags = 1 << 7
	FlagNegotiateNTLM           Flags = 1 << 9
	FlagAnonymous               Flags = 1 << 11
	FlagOEMDomainSupplied       Flags = 1 << 12
	FlagOEMWorkstationSupplied  Flags = 1 << 13
	FlagNegotiateAlwaysSign     Flags = 1 << 15
	FlagTargetTypeDomain        Flags = 1 << 16
	FlagTargetTypeServer        Flags = 1 << 17
	FlagExtendedSessionSecurity Flags = 1 << 19
	FlagNegotiateIdentify       Flags = 1 << 20
	FlagRequestNonNTSessionKey  Flags = 1 << 22
	FlagNegotiateTargetInfo     Flags = 1 << 23
	FlagNegotiateVersion        Flags = 1 << 25
	FlagNegotiate128            Flags = 1 << 29
	FlagNegotiateKeyExchange    Flags = 1 << 30
	FlagNegotiate56             Flags = 1 << 31
)

// Has reports whether all bits of other are set in f.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func encodeUTF16(s string) ([]byte, error) {
	b, _, err := transform.Bytes(utf16le.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("ntlm: encoding UTF-16LE: %v", err)
	}
	return b, nil
}

func decodeUTF16(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: odd UTF-16 payload length %d", ErrInvalidMessage, len(b))
	}
	out, _, err := transform.Bytes(utf16le.NewDecoder(), b)
	if err != nil {
		return "", fmt.Errorf("%w: bad UTF-16 payload", ErrInvalidMessage)
	}
	return string(out), nil
}

// encodeString encodes a protocol string for the negotiated charset.
func encodeString(s string, unicodeFlag bool) ([]byte, error) {
	if unicodeFlag {
		return encodeUTF16(s)
	}
	return []byte(s), nil
}

func decodeString(b []byte, unicodeFlag bool) (string, error) {
	if unicodeFlag {
		return decodeUTF16(b)
	}
	return string(b), nil
}

// A security buffer: 2-byte length, 2-byte allocated length and a 4-byte
// offset from the start of the message.
const fieldSize = 8

func putField(hdr []byte, data []byte, offset *uint32, payload *[]byte) {
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(data)))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(data)))
	binary.LittleEndian.PutUint32(hdr[4:8], *offset)
	*payload = append(*payload, data...)
	*offset += uint32(len(data))
}

func getField(msg, hdr []byte) ([]byte, error) {
	n := binary.LittleEndian.Uint16(hdr[0:2])
	off := binary.LittleEndian.Uint32(hdr[4:8])
	if n == 0 {
		return nil, nil
	}
	end := uint64(off) + uint64(n)
	if end > uint64(len(msg)) {
		return nil, fmt.Errorf("%w: field [%d:%d] outside %d-byte message", ErrInvalidMessage, off, end, len(msg))
	}
	return msg[off:end], nil
}

// fieldOffset returns the payload offset of a security buffer, or zero
// for an empty field.
func fieldOffset(hdr []byte) uint32 {
	if binary.LittleEndian.Uint16(hdr[0:2]) == 0 {
		return 0
	}
	return binary.LittleEndian.Uint32(hdr[4:8])
}

func checkHeader(b []byte, wantType uint32) error {
	if len(b) < 12 {
		return fmt.Errorf("%w: %d bytes is shorter than the common header", ErrInvalidMessage, len(b))
	}
	if string(b[:8]) != signature {
		return fmt.Errorf("%w: bad signature %q", ErrInvalidMessage, b[:8])
	}
	if typ := binary.LittleEndian.Uint32(b[8:12]); typ != wantType {
		return fmt.Errorf("%w: message type %d, want %d", ErrInvalidMessage, typ, wantType)
	}
	return nil
}

func putHeader(b []byte, typ uint32) {
	copy(b[:8], signature)
	binary.LittleEndian.PutUint32(b[8:12], typ)
}
