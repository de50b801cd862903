package sasl

import (
	"testing"

	"github.com/migueldeicaza/MailFoundation-sub004/ntlm"
	"github.com/stretchr/testify/require"
)

func TestPlainClient(t *testing.T) {
	a := NewPlainClient("joe", "sesame", "")
	mech, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "PLAIN", mech)
	require.Equal(t, "\x00joe\x00sesame", string(ir))

	_, err = a.Next([]byte("more"))
	require.ErrorIs(t, err, ErrUnexpectedServerChallenge)
}

func TestPlainClientIdentity(t *testing.T) {
	a := NewPlainClient("joe", "sesame", "admin")
	_, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "admin\x00joe\x00sesame", string(ir))
}

func TestLoginClient(t *testing.T) {
	tests := []struct {
		name      string
		challenge string
		want      string
	}{
		{"standard username prompt", "Username:", "joe"},
		{"standard password prompt", "Password:", "sesame"},
		{"verbose prompt", "Please enter your USERNAME", "joe"},
		{"empty challenge", "", "joe"},
		{"unrecognized prompt", "shibboleth?", "sesame"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := NewLoginClient("joe", "sesame")
			mech, ir, err := a.Start()
			require.NoError(t, err)
			require.Equal(t, "LOGIN", mech)
			require.Nil(t, ir)

			resp, err := a.Next([]byte(test.challenge))
			require.NoError(t, err)
			require.Equal(t, test.want, string(resp))
		})
	}
}

// RFC 2195 section 2 example.
func TestCramMD5Client(t *testing.T) {
	a := NewCramMD5Client("tim", "tanstaaftanstaaf")
	mech, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "CRAM-MD5", mech)
	require.Nil(t, ir)

	resp, err := a.Next([]byte("<1896.697170952@postoffice.reston.mci.net>"))
	require.NoError(t, err)
	require.Equal(t, "tim b913a602c7eda7a495b4e6e7334d3890", string(resp))

	_, err = a.Next([]byte("again"))
	require.ErrorIs(t, err, ErrUnexpectedServerChallenge)
}

func TestXoauth2Client(t *testing.T) {
	a := NewXoauth2Client("someuser@example.com", "ya29.vF9dft4qmTc2Nvb3RlckBhdHRhdmlzdGEuY29tCg")
	mech, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "XOAUTH2", mech)
	require.Equal(t, "user=someuser@example.com\x01auth=Bearer ya29.vF9dft4qmTc2Nvb3RlckBhdHRhdmlzdGEuY29tCg\x01\x01", string(ir))

	_, err = a.Next(nil)
	require.ErrorIs(t, err, ErrUnexpectedServerChallenge)
}

func TestExternalClient(t *testing.T) {
	a := NewExternalClient("")
	mech, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "EXTERNAL", mech)
	require.NotNil(t, ir)
	require.Empty(t, ir)
}

func TestNTLMClientExchange(t *testing.T) {
	a := NewNTLMClient("User", "Password", "Domain", "COMPUTER")
	mech, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "NTLM", mech)

	neg, err := ntlm.DecodeNegotiate(ir)
	require.NoError(t, err)
	require.True(t, neg.Flags.Has(ntlm.FlagNegotiateUnicode|ntlm.FlagNegotiateNTLM))

	info := &ntlm.TargetInfo{}
	require.NoError(t, info.SetString(ntlm.AVNbDomainName, "Domain"))
	ch := &ntlm.Challenge{
		Flags:      neg.Flags,
		TargetName: "Domain",
		TargetInfo: info,
	}
	copy(ch.ServerChallenge[:], "\x01\x23\x45\x67\x89\xab\xcd\xef")
	chBytes, err := ch.Encode()
	require.NoError(t, err)

	resp, err := a.Next(chBytes)
	require.NoError(t, err)

	auth, err := ntlm.DecodeAuthenticate(resp)
	require.NoError(t, err)
	require.Equal(t, "User", auth.Username)
	require.Equal(t, "Domain", auth.Domain)
	require.Len(t, auth.NTResponse, 16+28+len(info.Encode())+4)

	// A second challenge is a protocol violation.
	_, err = a.Next(chBytes)
	require.ErrorIs(t, err, ErrUnexpectedServerChallenge)
}

func TestNTLMClientMalformedChallenge(t *testing.T) {
	a := NewNTLMClient("User", "Password", "", "")
	_, _, err := a.Start()
	require.NoError(t, err)
	_, err = a.Next([]byte("NOTNTLM"))
	require.Error(t, err)
}

func TestGSSAPIClient(t *testing.T) {
	provider := &fakeKerberos{available: true}
	a := NewGSSAPIClient(provider)

	mech, ir, err := a.Start()
	require.NoError(t, err)
	require.Equal(t, "GSSAPI", mech)
	require.Equal(t, "token", string(ir))

	_, err = a.Next([]byte("wrap"))
	require.NoError(t, err)
	require.True(t, provider.Established())

	_, err = a.Next([]byte("extra"))
	require.ErrorIs(t, err, ErrUnexpectedServerChallenge)
}
