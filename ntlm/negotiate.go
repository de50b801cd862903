package ntlm

import (
	"encoding/binary"
	"fmt"
)

const negotiateHeaderSize = 32

// Negotiate is the NEGOTIATE_MESSAGE (type 1) opening an NTLM exchange.
//
// Domain and workstation are hints for the server and always use the
// single-byte OEM charset. Supplying an OS version excludes supplying
// names: FlagNegotiateVersion and the two name-supplied flags are
// mutually exclusive.
type Negotiate struct {
	Flags       Flags
	Domain      string
	Workstation string
	Version     *Version
}

// Encode serializes the message.
func (m *Negotiate) Encode() ([]byte, error) {
	if m.Version != nil && (m.Domain != "" || m.Workstation != "") {
		return nil, fmt.Errorf("ntlm: negotiate message cannot carry both a version and domain/workstation names")
	}

	flags := m.Flags
	if m.Domain != "" {
		flags |= FlagOEMDomainSupplied
	}
	if m.Workstation != "" {
		flags |= FlagOEMWorkstationSupplied
	}
	hdrSize := negotiateHeaderSize
	if m.Version != nil {
		flags |= FlagNegotiateVersion
		hdrSize += versionSize
	}

	hdr := make([]byte, hdrSize)
	putHeader(hdr, typeNegotiate)

	offset := uint32(hdrSize)
	var payload []byte
	putField(hdr[16:24], []byte(m.Domain), &offset, &payload)
	putField(hdr[24:32], []byte(m.Workstation), &offset, &payload)
	if m.Version != nil {
		m.Version.encode(hdr[32:40])
	}
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(flags))

	return append(hdr, payload...), nil
}

// DecodeNegotiate parses a NEGOTIATE_MESSAGE.
func DecodeNegotiate(b []byte) (*Negotiate, error) {
	if err := checkHeader(b, typeNegotiate); err != nil {
		return nil, err
	}
	if len(b) < negotiateHeaderSize {
		return nil, fmt.Errorf("%w: negotiate message of %d bytes", ErrInvalidMessage, len(b))
	}

	m := &Negotiate{Flags: Flags(binary.LittleEndian.Uint32(b[12:16]))}

	domain, err := getField(b, b[16:24])
	if err != nil {
		return nil, err
	}
	m.Domain = string(domain)

	workstation, err := getField(b, b[24:32])
	if err != nil {
		return nil, err
	}
	m.Workstation = string(workstation)

	if m.Flags.Has(FlagNegotiateVersion) {
		if len(b) < negotiateHeaderSize+versionSize {
			return nil, fmt.Errorf("%w: version flag set on %d-byte negotiate message", ErrInvalidMessage, len(b))
		}
		if m.Version, err = decodeVersion(b[32:40]); err != nil {
			return nil, err
		}
	}
	return m, nil
}
