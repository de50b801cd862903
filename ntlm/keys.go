package ntlm

import "crypto/md5"

// MS-NLMP 3.4.5.2/3.4.5.3 key derivation magic constants.
const (
	clientSigningMagic = "session key to client-to-server signing key magic constant\x00"
	serverSigningMagic = "session key to server-to-client signing key magic constant\x00"
	clientSealingMagic = "session key to client-to-server sealing key magic constant\x00"
	serverSealingMagic = "session key to server-to-client sealing key magic constant\x00"
)

func deriveKey(key []byte, magic string) []byte {
	h := md5.New()
	h.Write(key)
	h.Write([]byte(magic))
	return h.Sum(nil)
}

// SignKey derives the message signing key from the exported session
// key. fromClient selects the client-to-server direction.
func SignKey(exportedSessionKey []byte, fromClient bool) []byte {
	magic := serverSigningMagic
	if fromClient {
		magic = clientSigningMagic
	}
	return deriveKey(exportedSessionKey, magic)
}

// SealKey derives the message sealing key from the exported session
// key, truncated according to the negotiated key strength: 128 bits
// when Negotiate128 was granted, 56 with Negotiate56, else 40.
func SealKey(exportedSessionKey []byte, flags Flags, fromClient bool) []byte {
	key := exportedSessionKey
	switch {
	case flags.Has(FlagNegotiate128):
	case flags.Has(FlagNegotiate56):
		key = key[:7]
	default:
		key = key[:5]
	}
	magic := serverSealingMagic
	if fromClient {
		magic = clientSealingMagic
	}
	return deriveKey(key, magic)
}
