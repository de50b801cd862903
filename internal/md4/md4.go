// Package md4 implements the MD4 hash algorithm as defined in RFC 1320.
//
// MD4 is cryptographically broken and is only provided here because the
// NTLM one-way function (NTOWF) is defined over it and the standard
// library does not ship it.
package md4

import (
	"encoding/binary"
	"hash"
	"math/bits"
)

// Size is the size of an MD4 checksum in bytes.
const Size = 16

// BlockSize is the block size of MD4 in bytes.
const BlockSize = 64

const (
	init0 = 0x67452301
	init1 = 0xEFCDAB89
	init2 = 0x98BADCFE
	init3 = 0x10325476
)

type digest struct {
	s   [4]uint32
	buf [BlockSize]byte
	n   int
	len uint64
}

// New returns a new hash.Hash computing the MD4 checksum.
func New() hash.Hash {
	d := new(digest)
	d.Reset()
	return d
}

// Sum returns the MD4 checksum of data.
func Sum(data []byte) [Size]byte {
	h := New()
	h.Write(data)
	var sum [Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func (d *digest) Reset() {
	d.s = [4]uint32{init0, init1, init2, init3}
	d.n = 0
	d.len = 0
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return BlockSize }

func (d *digest) Write(p []byte) (n int, err error) {
	n = len(p)
	d.len += uint64(n)
	if d.n > 0 {
		c := copy(d.buf[d.n:], p)
		d.n += c
		p = p[c:]
		if d.n == BlockSize {
			d.block(d.buf[:])
			d.n = 0
		}
	}
	for len(p) >= BlockSize {
		d.block(p[:BlockSize])
		p = p[BlockSize:]
	}
	d.n = copy(d.buf[:], p)
	return n, nil
}

func (d *digest) Sum(in []byte) []byte {
	// Padding and length trailer must not disturb the running state.
	dd := *d

	var tmp [BlockSize + 8]byte
	tmp[0] = 0x80
	pad := (55 - dd.len) % 64
	binary.LittleEndian.PutUint64(tmp[1+pad:], dd.len<<3)
	dd.Write(tmp[:1+pad+8])

	var out [Size]byte
	for i, v := range dd.s {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return append(in, out[:]...)
}

var shift1 = []int{3, 7, 11, 19}
var shift2 = []int{3, 5, 9, 13}
var shift3 = []int{3, 9, 11, 15}

var xIndex2 = []uint{0, 4, 8, 12, 1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15}
var xIndex3 = []uint{0, 8, 4, 12, 2, 10, 6, 14, 1, 9, 5, 13, 3, 11, 7, 15}

func (d *digest) block(p []byte) {
	a, b, c, dd := d.s[0], d.s[1], d.s[2], d.s[3]

	var x [16]uint32
	for i := 0; i < 16; i++ {
		x[i] = binary.LittleEndian.Uint32(p[i*4:])
	}

	// Round 1: F(x,y,z) = (x & y) | (^x & z)
	for i := uint(0); i < 16; i++ {
		f := (b & c) | (^b & dd)
		a += f + x[i]
		a = bits.RotateLeft32(a, shift1[i%4])
		a, b, c, dd = dd, a, b, c
	}

	// Round 2: G(x,y,z) = (x & y) | (x & z) | (y & z)
	for i := uint(0); i < 16; i++ {
		g := (b & c) | (b & dd) | (c & dd)
		a += g + x[xIndex2[i]] + 0x5A827999
		a = bits.RotateLeft32(a, shift2[i%4])
		a, b, c, dd = dd, a, b, c
	}

	// Round 3: H(x,y,z) = x ^ y ^ z
	for i := uint(0); i < 16; i++ {
		h := b ^ c ^ dd
		a += h + x[xIndex3[i]] + 0x6ED9EBA1
		a = bits.RotateLeft32(a, shift3[i%4])
		a, b, c, dd = dd, a, b, c
	}

	d.s[0] += a
	d.s[1] += b
	d.s[2] += c
	d.s[3] += dd
}
