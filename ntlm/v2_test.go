package ntlm

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"
)

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// MS-NLMP section 4.2.4 test data: user "User" in domain "Domain" with
// password "Password", time zero.
const (
	testServerChallenge = "0123456789abcdef"
	testClientChallenge = "aaaaaaaaaaaaaaaa"
	testTargetInfo      = "02000c0044006f006d00610069006e00" + // NbDomainName "Domain"
		"01000c00530065007200760065007200" + // NbComputerName "Server"
		"00000000"
)

func TestNTOWFv2(t *testing.T) {
	key, err := ntowfV2("User", "Password", "Domain")
	if err != nil {
		t.Fatalf("ntowfV2() = %v", err)
	}
	if got, want := hex.EncodeToString(key), "0c868a403bfd7a93a3001ef22ef02e3f"; got != want {
		t.Errorf("ntowfV2() = %s, want %s", got, want)
	}
}

func TestComputeResponseV2(t *testing.T) {
	key, err := ntowfV2("User", "Password", "Domain")
	if err != nil {
		t.Fatalf("ntowfV2() = %v", err)
	}

	ntResponse, sessionBaseKey := computeResponseV2(key,
		unhex(t, testServerChallenge), unhex(t, testClientChallenge), 0, unhex(t, testTargetInfo))

	if got, want := hex.EncodeToString(ntResponse[:16]), "68cd0ab851e51c96aabc927bebef6a1c"; got != want {
		t.Errorf("NTProofStr = %s, want %s", got, want)
	}
	if got, want := hex.EncodeToString(sessionBaseKey), "8de40ccadbc14a82f15cb0ad0de95ca3"; got != want {
		t.Errorf("SessionBaseKey = %s, want %s", got, want)
	}
}

func TestLMv2Response(t *testing.T) {
	key, err := ntowfV2("User", "Password", "Domain")
	if err != nil {
		t.Fatalf("ntowfV2() = %v", err)
	}
	lm := lmV2Response(key, unhex(t, testServerChallenge), unhex(t, testClientChallenge))
	want := "86c35097ac9cec102554764a57cccc19" + testClientChallenge
	if got := hex.EncodeToString(lm); got != want {
		t.Errorf("LMv2 response = %s, want %s", got, want)
	}
}

func TestClientExchange(t *testing.T) {
	client := &Client{
		Username:    "User",
		Password:    "Password",
		Domain:      "Domain",
		Workstation: "COMPUTER",
		randRead: func(b []byte) error {
			for i := range b {
				b[i] = 0xaa
			}
			return nil
		},
	}

	neg, err := client.Negotiate()
	if err != nil {
		t.Fatalf("Negotiate() = %v", err)
	}
	if !neg.Flags.Has(FlagNegotiateUnicode | FlagRequestTarget | FlagNegotiateNTLM) {
		t.Errorf("negotiate flags %#x missing base flags", neg.Flags)
	}

	info := &TargetInfo{}
	if err := info.SetString(AVNbDomainName, "Domain"); err != nil {
		t.Fatal(err)
	}
	if err := info.SetString(AVNbComputerName, "Server"); err != nil {
		t.Fatal(err)
	}
	ch := &Challenge{
		Flags:      neg.Flags,
		TargetName: "Domain",
		TargetInfo: info,
	}
	copy(ch.ServerChallenge[:], unhex(t, testServerChallenge))

	if err := client.ProcessChallenge(ch); err != nil {
		t.Fatalf("ProcessChallenge() = %v", err)
	}
	auth, err := client.Authenticate()
	if err != nil {
		t.Fatalf("Authenticate() = %v", err)
	}

	if auth.Flags.Has(FlagNegotiateOEM) {
		t.Error("authenticate flags kept OEM next to Unicode")
	}
	if auth.MIC != nil {
		t.Error("MIC reserved without a server timestamp")
	}
	// Proof over the echoed target info, with the deterministic
	// client challenge and the client-chosen timestamp.
	if len(auth.NTResponse) < 16 {
		t.Fatalf("NT response of %d bytes", len(auth.NTResponse))
	}
	if bytes.Equal(auth.LMResponse, make([]byte, 24)) {
		t.Error("LM response zeroed although the server sent no timestamp")
	}
	if len(client.SessionKey()) != 16 {
		t.Errorf("session key of %d bytes", len(client.SessionKey()))
	}

	// A second challenge on the same exchange must fail.
	if err := client.ProcessChallenge(ch); err == nil {
		t.Error("ProcessChallenge() twice succeeded")
	}
}

func TestClientExchangeWithServerTimestamp(t *testing.T) {
	client := &Client{
		Username: "User",
		Password: "Password",
		Domain:   "Domain",
		randRead: func(b []byte) error {
			for i := range b {
				b[i] = 0xaa
			}
			return nil
		},
	}
	if _, err := client.Negotiate(); err != nil {
		t.Fatal(err)
	}

	info := &TargetInfo{}
	info.Set(AVTimestamp, make([]byte, 8))
	ch := &Challenge{Flags: clientDefaultFlags, TargetInfo: info}
	copy(ch.ServerChallenge[:], unhex(t, testServerChallenge))
	if err := client.ProcessChallenge(ch); err != nil {
		t.Fatal(err)
	}

	auth, err := client.Authenticate()
	if err != nil {
		t.Fatalf("Authenticate() = %v", err)
	}
	if !bytes.Equal(auth.LMResponse, make([]byte, 24)) {
		t.Errorf("LM response = %x, want 24 zero bytes", auth.LMResponse)
	}
	if auth.MIC == nil {
		t.Error("no MIC reserved despite server timestamp")
	}

	// The echoed target info inside the NT response must carry the MIC
	// flag, a channel binding block and a target name.
	echoed, err := DecodeTargetInfo(auth.NTResponse[16+28 : len(auth.NTResponse)-4])
	if err != nil {
		t.Fatalf("decoding echoed target info: %v", err)
	}
	if flags, ok := echoed.Flags(); !ok || flags&AVFlagMICPresent == 0 {
		t.Errorf("echoed AVFlags = %#x, %v; want MIC bit set", flags, ok)
	}
	if cb, ok := echoed.Get(AVChannelBindings); !ok || !bytes.Equal(cb, make([]byte, 16)) {
		t.Errorf("echoed channel bindings = %x, %v; want 16 zero bytes", cb, ok)
	}
	if _, ok := echoed.Get(AVTargetName); !ok {
		t.Error("echoed target info missing target name")
	}
}

func TestClientAnonymous(t *testing.T) {
	client := &Client{}
	if _, err := client.Negotiate(); err != nil {
		t.Fatal(err)
	}
	ch := &Challenge{Flags: clientDefaultFlags}
	if err := client.ProcessChallenge(ch); err != nil {
		t.Fatal(err)
	}
	auth, err := client.Authenticate()
	if err != nil {
		t.Fatalf("Authenticate() = %v", err)
	}
	if auth.NTResponse != nil {
		t.Errorf("anonymous NT response = %x, want none", auth.NTResponse)
	}
	if !bytes.Equal(auth.LMResponse, []byte{0}) {
		t.Errorf("anonymous LM response = %x, want a single zero byte", auth.LMResponse)
	}
	if !auth.Flags.Has(FlagAnonymous) {
		t.Error("anonymous flag not set")
	}
}

func TestClientOrder(t *testing.T) {
	client := &Client{Username: "User", Password: "Password"}
	if err := client.ProcessChallenge(&Challenge{}); err == nil {
		t.Error("ProcessChallenge() before Negotiate() succeeded")
	}
	if _, err := client.Authenticate(); err == nil {
		t.Error("Authenticate() before ProcessChallenge() succeeded")
	}
}

func TestFiletime(t *testing.T) {
	// 1601-01-01 is tick zero; the Unix epoch is 11644473600 s later.
	if got := Filetime(time.Unix(0, 0)); got != 11644473600*10_000_000 {
		t.Errorf("Filetime(epoch) = %d", got)
	}
}
