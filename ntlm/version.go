package ntlm

import (
	"encoding/binary"
	"fmt"
)

const versionSize = 8

// ntlmRevisionCurrent, the only revision MS-NLMP defines.
const ntlmRevision = 0x0F

// Version is the OS version triple optionally carried by Negotiate and
// Authenticate messages when FlagNegotiateVersion is set.
type Version struct {
	Major uint8
	Minor uint8
	Build uint16
}

func (v *Version) encode(b []byte) {
	b[0] = v.Major
	b[1] = v.Minor
	binary.LittleEndian.PutUint16(b[2:4], v.Build)
	// bytes 4-6 reserved
	b[7] = ntlmRevision
}

func decodeVersion(b []byte) (*Version, error) {
	if len(b) < versionSize {
		return nil, fmt.Errorf("%w: truncated version field", ErrInvalidMessage)
	}
	return &Version{
		Major: b[0],
		Minor: b[1],
		Build: binary.LittleEndian.Uint16(b[2:4]),
	}, nil
}
