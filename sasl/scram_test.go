package sasl

import (
	"crypto/sha1"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

// RFC 5802 section 5 example exchange.
func TestScramSHA1Exchange(t *testing.T) {
	a := newScramClient("SCRAM-SHA-1", sha1.New, "user", "pencil", "", nil)
	a.nonce = "fyko+d2lbbFgONRv9qkxdawL"

	mech, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "SCRAM-SHA-1", mech)
	require.Equal(t, "n,,n=user,r=fyko+d2lbbFgONRv9qkxdawL", string(ir))

	resp, err := a.Next([]byte("r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=4096"))
	require.NoError(t, err)
	require.Equal(t, "c=biws,r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,p=v0X8v3Bz2T0CJGbJQyF0X+HI4Ts=", string(resp))

	resp, err = a.Next([]byte("v=rmF9pqV8S7suAoZWja4dJRkFsKQ="))
	require.NoError(t, err)
	require.Empty(t, resp)
	require.True(t, a.authenticated)
	require.Equal(t, scramComplete, a.state)
	require.Nil(t, a.saltedPassword)
}

// RFC 7677 section 3 example exchange.
func TestScramSHA256Exchange(t *testing.T) {
	a := newScramClient("SCRAM-SHA-256", sha256.New, "user", "pencil", "", nil)
	a.nonce = "rOprNGfwEbeRWgbNEkqO"

	_, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "n,,n=user,r=rOprNGfwEbeRWgbNEkqO", string(ir))

	resp, err := a.Next([]byte("r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096"))
	require.NoError(t, err)
	require.Equal(t, "c=biws,r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,p=dHzbZapWIk4jUhN+Ute9ytag9zjfMHgsqmmiz7AndVQ=", string(resp))

	_, err = a.Next([]byte("v=6rriTRBi23WpRR/wtup+mMhUZUn/dB5nLTJRsjl95G4="))
	require.NoError(t, err)
	require.True(t, a.authenticated)
}

func TestScramServerSignatureMismatch(t *testing.T) {
	a := newScramClient("SCRAM-SHA-1", sha1.New, "user", "pencil", "", nil)
	a.nonce = "fyko+d2lbbFgONRv9qkxdawL"

	_, _, err := a.Start()
	require.NoError(t, err)
	_, err = a.Next([]byte("r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=4096"))
	require.NoError(t, err)

	_, err = a.Next([]byte("v=AAAAAAAAAAAAAAAAAAAAAAAAAAA="))
	require.ErrorIs(t, err, ErrInvalidServerSignature)
	require.False(t, a.authenticated)
}

func TestScramStateViolations(t *testing.T) {
	// Challenge before the initial message.
	a := newScramClient("SCRAM-SHA-1", sha1.New, "user", "pencil", "", nil)
	_, err := a.Next([]byte("r=x,s=QSXCR+Q6sek8bf92,i=4096"))
	require.ErrorIs(t, err, ErrAlreadyAuthenticated)

	// Initial message twice.
	_, _, err = a.Start()
	require.NoError(t, err)
	_, err = a.initialMessage()
	require.ErrorIs(t, err, ErrAlreadyAuthenticated)

	// Verifying a signature before any challenge was processed.
	err = a.verifyServerFinal([]byte("v=rmF9pqV8S7suAoZWja4dJRkFsKQ="))
	require.ErrorIs(t, err, ErrAlreadyAuthenticated)
}

func TestScramServerFirstErrors(t *testing.T) {
	tests := []struct {
		name      string
		serverMsg string
	}{
		{"nonce mismatch", "r=WRONGnonce,s=QSXCR+Q6sek8bf92,i=4096"},
		{"missing nonce", "s=QSXCR+Q6sek8bf92,i=4096"},
		{"missing salt", "r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,i=4096"},
		{"missing iterations", "r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92"},
		{"bad salt", "r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=!!!,i=4096"},
		{"bad iterations", "r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=zero"},
		{"malformed attribute", "nonsense"},
		{"empty", ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := newScramClient("SCRAM-SHA-1", sha1.New, "user", "pencil", "", nil)
			a.nonce = "fyko+d2lbbFgONRv9qkxdawL"
			_, _, err := a.Start()
			require.NoError(t, err)
			_, err = a.Next([]byte(test.serverMsg))
			require.Error(t, err)
		})
	}
}

func TestScramChannelBindingHeader(t *testing.T) {
	binding := ChannelBinding{Name: "tls-unique", Data: []byte{0xde, 0xad, 0xbe, 0xef}}
	a := newScramClient("SCRAM-SHA-1-PLUS", sha1.New, "user", "pencil", "", &binding)
	a.nonce = "cnonce"

	_, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "p=tls-unique,,n=user,r=cnonce", string(ir))

	resp, err := a.Next([]byte("r=cnonceXYZ,s=QSXCR+Q6sek8bf92,i=4096"))
	require.NoError(t, err)
	// c= covers the GS2 header plus the raw binding data.
	require.Contains(t, string(resp), "c=cD10bHMtdW5pcXVlLCzerb7v,r=cnonceXYZ,")
}

func TestScramEscaping(t *testing.T) {
	a := newScramClient("SCRAM-SHA-1", sha1.New, "user=,", "pencil", "admin,=", nil)
	a.nonce = "cnonce"
	_, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "n,a=admin=2C=3D,n=user=3D=2C,r=cnonce", string(ir))
}

func TestScramRejectsBadUsername(t *testing.T) {
	a := newScramClient("SCRAM-SHA-1", sha1.New, "user\x07", "pencil", "", nil)
	_, _, err := a.Start()
	require.Error(t, err)
}
