package ntlm

import (
	"encoding/binary"
	"fmt"
)

const authenticateHeaderSize = 64

const micSize = 16

// Authenticate is the AUTHENTICATE_MESSAGE (type 3) closing an NTLM
// exchange. NTResponse may be nil for anonymous authentication. MIC, when
// set, is serialized right after the fixed header (and version, if any).
type Authenticate struct {
	Flags               Flags
	Domain              string
	Username            string
	Workstation         string
	LMResponse          []byte
	NTResponse          []byte
	EncryptedSessionKey []byte
	Version             *Version
	MIC                 *[16]byte
}

// Encode serializes the message.
func (m *Authenticate) Encode() ([]byte, error) {
	flags := m.Flags
	hdrSize := authenticateHeaderSize
	if m.Version != nil {
		flags |= FlagNegotiateVersion
		hdrSize += versionSize
	}
	micOffset := hdrSize
	if m.MIC != nil {
		hdrSize += micSize
	}

	unicodeFlag := flags.Has(FlagNegotiateUnicode)
	domain, err := encodeString(m.Domain, unicodeFlag)
	if err != nil {
		return nil, err
	}
	username, err := encodeString(m.Username, unicodeFlag)
	if err != nil {
		return nil, err
	}
	workstation, err := encodeString(m.Workstation, unicodeFlag)
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, hdrSize)
	putHeader(hdr, typeAuthenticate)

	offset := uint32(hdrSize)
	var payload []byte
	putField(hdr[12:20], m.LMResponse, &offset, &payload)
	putField(hdr[20:28], m.NTResponse, &offset, &payload)
	putField(hdr[28:36], domain, &offset, &payload)
	putField(hdr[36:44], username, &offset, &payload)
	putField(hdr[44:52], workstation, &offset, &payload)
	putField(hdr[52:60], m.EncryptedSessionKey, &offset, &payload)
	binary.LittleEndian.PutUint32(hdr[60:64], uint32(flags))
	if m.Version != nil {
		m.Version.encode(hdr[64:72])
	}
	if m.MIC != nil {
		copy(hdr[micOffset:micOffset+micSize], m.MIC[:])
	}

	return append(hdr, payload...), nil
}

// DecodeAuthenticate parses an AUTHENTICATE_MESSAGE.
//
// The MIC field has no presence flag of its own on the wire; it is
// detected by a gap between the fixed header and the first payload byte.
func DecodeAuthenticate(b []byte) (*Authenticate, error) {
	if err := checkHeader(b, typeAuthenticate); err != nil {
		return nil, err
	}
	if len(b) < authenticateHeaderSize {
		return nil, fmt.Errorf("%w: authenticate message of %d bytes", ErrInvalidMessage, len(b))
	}

	m := &Authenticate{Flags: Flags(binary.LittleEndian.Uint32(b[60:64]))}

	var err error
	if m.LMResponse, err = getField(b, b[12:20]); err != nil {
		return nil, err
	}
	if m.NTResponse, err = getField(b, b[20:28]); err != nil {
		return nil, err
	}
	unicodeFlag := m.Flags.Has(FlagNegotiateUnicode)
	domain, err := getField(b, b[28:36])
	if err != nil {
		return nil, err
	}
	if m.Domain, err = decodeString(domain, unicodeFlag); err != nil {
		return nil, err
	}
	username, err := getField(b, b[36:44])
	if err != nil {
		return nil, err
	}
	if m.Username, err = decodeString(username, unicodeFlag); err != nil {
		return nil, err
	}
	workstation, err := getField(b, b[44:52])
	if err != nil {
		return nil, err
	}
	if m.Workstation, err = decodeString(workstation, unicodeFlag); err != nil {
		return nil, err
	}
	if m.EncryptedSessionKey, err = getField(b, b[52:60]); err != nil {
		return nil, err
	}

	base := authenticateHeaderSize
	if m.Flags.Has(FlagNegotiateVersion) {
		if len(b) < base+versionSize {
			return nil, fmt.Errorf("%w: version flag set on %d-byte authenticate message", ErrInvalidMessage, len(b))
		}
		if m.Version, err = decodeVersion(b[64:72]); err != nil {
			return nil, err
		}
		base += versionSize
	}

	if micPresent(b, base) {
		m.MIC = new([16]byte)
		copy(m.MIC[:], b[base:base+micSize])
	}
	return m, nil
}

func micPresent(b []byte, base int) bool {
	if len(b) < base+micSize {
		return false
	}
	min := uint32(0)
	for _, off := range []int{12, 20, 28, 36, 44, 52} {
		o := fieldOffset(b[off : off+fieldSize])
		if o != 0 && (min == 0 || o < min) {
			min = o
		}
	}
	if min == 0 {
		// No payload at all: a MIC is whatever trails the header.
		return len(b) >= base+micSize
	}
	return min >= uint32(base+micSize)
}
