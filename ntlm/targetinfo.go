package ntlm

import (
	"encoding/binary"
	"fmt"
)

// AVID identifies an attribute/value pair in a target info block.
type AVID uint16

const (
	AVEOL AVID = iota
	AVNbComputerName
	AVNbDomainName
	AVDNSComputerName
	AVDNSDomainName
	AVDNSTreeName
	AVFlags
	AVTimestamp
	AVSingleHost
	AVTargetName
	AVChannelBindings
)

// Bits of the AVFlags attribute value.
const (
	// AVFlagConstrained indicates the account is constrained.
	AVFlagConstrained uint32 = 1 << 0
	// AVFlagMICPresent indicates the Authenticate message carries a MIC.
	AVFlagMICPresent uint32 = 1 << 1
	// AVFlagUntrustedSPN indicates an untrusted SPN source.
	AVFlagUntrustedSPN uint32 = 1 << 2
)

// AVPair is a single typed attribute. Values with unknown IDs are
// preserved verbatim across decode/encode.
type AVPair struct {
	ID    AVID
	Value []byte
}

// TargetInfo is the ordered AV_PAIR list carried by Challenge messages
// and echoed (possibly amended) in the Authenticate message. The
// terminating zero-length AVEOL marker is implicit and not stored.
type TargetInfo struct {
	Pairs []AVPair
}

// DecodeTargetInfo parses an AV_PAIR list terminated by an AVEOL marker.
func DecodeTargetInfo(b []byte) (*TargetInfo, error) {
	info := &TargetInfo{}
	for {
		if len(b) < 4 {
			return nil, fmt.Errorf("%w: target info without EOL marker", ErrInvalidMessage)
		}
		id := AVID(binary.LittleEndian.Uint16(b[0:2]))
		n := int(binary.LittleEndian.Uint16(b[2:4]))
		b = b[4:]
		if id == AVEOL {
			return info, nil
		}
		if len(b) < n {
			return nil, fmt.Errorf("%w: truncated %d-byte attribute %d", ErrInvalidMessage, n, id)
		}
		v := make([]byte, n)
		copy(v, b[:n])
		info.Pairs = append(info.Pairs, AVPair{ID: id, Value: v})
		b = b[n:]
	}
}

// Encode serializes the list, appending the AVEOL terminator.
func (info *TargetInfo) Encode() []byte {
	var b []byte
	for _, av := range info.Pairs {
		b = binary.LittleEndian.AppendUint16(b, uint16(av.ID))
		b = binary.LittleEndian.AppendUint16(b, uint16(len(av.Value)))
		b = append(b, av.Value...)
	}
	return append(b, 0, 0, 0, 0)
}

// Clone returns a deep copy, used when building the echoed copy inside
// an Authenticate message without mutating the server's challenge.
func (info *TargetInfo) Clone() *TargetInfo {
	if info == nil {
		return nil
	}
	c := &TargetInfo{Pairs: make([]AVPair, len(info.Pairs))}
	for i, av := range info.Pairs {
		v := make([]byte, len(av.Value))
		copy(v, av.Value)
		c.Pairs[i] = AVPair{ID: av.ID, Value: v}
	}
	return c
}

// Get returns the raw value of the first attribute with the given ID.
func (info *TargetInfo) Get(id AVID) ([]byte, bool) {
	for _, av := range info.Pairs {
		if av.ID == id {
			return av.Value, true
		}
	}
	return nil, false
}

// Set replaces the first attribute with the given ID, or appends it.
func (info *TargetInfo) Set(id AVID, value []byte) {
	for i, av := range info.Pairs {
		if av.ID == id {
			info.Pairs[i].Value = value
			return
		}
	}
	info.Pairs = append(info.Pairs, AVPair{ID: id, Value: value})
}

// String returns the UTF-16LE string value of an attribute. Attribute
// values are always Unicode regardless of the negotiated charset.
func (info *TargetInfo) String(id AVID) (string, bool, error) {
	v, ok := info.Get(id)
	if !ok {
		return "", false, nil
	}
	s, err := decodeUTF16(v)
	return s, true, err
}

// SetString sets an attribute to the UTF-16LE encoding of s.
func (info *TargetInfo) SetString(id AVID, s string) error {
	v, err := encodeUTF16(s)
	if err != nil {
		return err
	}
	info.Set(id, v)
	return nil
}

// Timestamp returns the AVTimestamp value (a Windows FILETIME), if present.
func (info *TargetInfo) Timestamp() (uint64, bool) {
	v, ok := info.Get(AVTimestamp)
	if !ok || len(v) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(v), true
}

// Flags returns the AVFlags value, if present.
func (info *TargetInfo) Flags() (uint32, bool) {
	v, ok := info.Get(AVFlags)
	if !ok || len(v) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v), true
}

// SetFlags ORs bits into the AVFlags attribute, creating it if needed.
func (info *TargetInfo) SetFlags(bits uint32) {
	cur, _ := info.Flags()
	v := make([]byte, 4)
	binary.LittleEndian.PutUint32(v, cur|bits)
	info.Set(AVFlags, v)
}
