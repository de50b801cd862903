package ntlm

import (
	"encoding/binary"
	"fmt"
)

const challengeHeaderSize = 48

// Challenge is the CHALLENGE_MESSAGE (type 2) carrying the server nonce.
type Challenge struct {
	Flags           Flags
	ServerChallenge [8]byte
	TargetName      string
	TargetInfo      *TargetInfo
	Version         *Version
}

// Encode serializes the message.
func (m *Challenge) Encode() ([]byte, error) {
	flags := m.Flags
	if m.TargetName != "" {
		flags |= FlagRequestTarget
	}
	if m.TargetInfo != nil {
		flags |= FlagNegotiateTargetInfo
	}
	hdrSize := challengeHeaderSize
	if m.Version != nil {
		flags |= FlagNegotiateVersion
		hdrSize += versionSize
	}

	targetName, err := encodeString(m.TargetName, flags.Has(FlagNegotiateUnicode))
	if err != nil {
		return nil, err
	}
	var targetInfo []byte
	if m.TargetInfo != nil {
		targetInfo = m.TargetInfo.Encode()
	}

	hdr := make([]byte, hdrSize)
	putHeader(hdr, typeChallenge)

	offset := uint32(hdrSize)
	var payload []byte
	putField(hdr[12:20], targetName, &offset, &payload)
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(flags))
	copy(hdr[24:32], m.ServerChallenge[:])
	// bytes 32-40 reserved
	putField(hdr[40:48], targetInfo, &offset, &payload)
	if m.Version != nil {
		m.Version.encode(hdr[48:56])
	}

	return append(hdr, payload...), nil
}

// DecodeChallenge parses a CHALLENGE_MESSAGE.
func DecodeChallenge(b []byte) (*Challenge, error) {
	if err := checkHeader(b, typeChallenge); err != nil {
		return nil, err
	}
	if len(b) < challengeHeaderSize {
		return nil, fmt.Errorf("%w: challenge message of %d bytes", ErrInvalidMessage, len(b))
	}

	m := &Challenge{Flags: Flags(binary.LittleEndian.Uint32(b[20:24]))}
	copy(m.ServerChallenge[:], b[24:32])

	targetName, err := getField(b, b[12:20])
	if err != nil {
		return nil, err
	}
	if m.TargetName, err = decodeString(targetName, m.Flags.Has(FlagNegotiateUnicode)); err != nil {
		return nil, err
	}

	targetInfo, err := getField(b, b[40:48])
	if err != nil {
		return nil, err
	}
	if len(targetInfo) > 0 {
		if m.TargetInfo, err = DecodeTargetInfo(targetInfo); err != nil {
			return nil, err
		}
	}

	if m.Flags.Has(FlagNegotiateVersion) {
		if len(b) < challengeHeaderSize+versionSize {
			return nil, fmt.Errorf("%w: version flag set on %d-byte challenge message", ErrInvalidMessage, len(b))
		}
		if m.Version, err = decodeVersion(b[48:56]); err != nil {
			return nil, err
		}
	}
	return m, nil
}
