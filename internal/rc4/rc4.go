// Package rc4 implements the RC4 stream cipher.
//
// RC4 is cryptographically broken. It is kept here because NTLM's key
// exchange (RC4K) and session sealing are defined over it.
package rc4

import (
	"errors"
	"strconv"
)

// A Cipher is an instance of RC4 keyed with a particular key.
type Cipher struct {
	s    [256]byte
	i, j uint8
}

// NewCipher creates and returns a new Cipher. The key argument must be
// between 1 and 256 bytes.
func NewCipher(key []byte) (*Cipher, error) {
	k := len(key)
	if k < 1 || k > 256 {
		return nil, errors.New("rc4: invalid key size " + strconv.Itoa(k))
	}
	var c Cipher
	for i := 0; i < 256; i++ {
		c.s[i] = byte(i)
	}
	var j uint8
	for i := 0; i < 256; i++ {
		j += c.s[i] + key[i%k]
		c.s[i], c.s[j] = c.s[j], c.s[i]
	}
	return &c, nil
}

// XORKeyStream sets dst to the result of XORing src with the key stream.
// Dst and src must overlap entirely or not at all.
func (c *Cipher) XORKeyStream(dst, src []byte) {
	i, j := c.i, c.j
	for k, v := range src {
		i++
		j += c.s[i]
		c.s[i], c.s[j] = c.s[j], c.s[i]
		dst[k] = v ^ c.s[c.s[i]+c.s[j]]
	}
	c.i, c.j = i, j
}

// Sum applies the key stream for key to src in one shot, as used by the
// NTLM RC4K operation.
func Sum(key, src []byte) ([]byte, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	c.XORKeyStream(out, src)
	return out, nil
}
