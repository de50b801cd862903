package sasl

import (
	"crypto"
	"strings"
)

// Credentials holds what the caller knows about the account. Password
// material stays in memory only; nothing here is ever serialized.
type Credentials struct {
	Username string
	Password string

	// Identity is the authorization identity, when acting on behalf of
	// another account. Usually empty.
	Identity string

	// Domain and Workstation are NTLM-specific hints.
	Domain      string
	Workstation string
}

// SelectOptions carries the optional capabilities the selection policy
// may take advantage of.
type SelectOptions struct {
	// ChannelBinding enables the -PLUS SCRAM variants.
	ChannelBinding *ChannelBinding

	// Kerberos enables GSSAPI.
	Kerberos KerberosProvider
}

// SelectMechanism picks the strongest mutually supported mechanism from
// a server-advertised mechanism-name list and returns a ready client
// for it. It returns nil when nothing mutual is supported; that is not
// an error, the caller decides whether to fall back to a cleartext
// login or abort.
func SelectMechanism(advertised []string, creds Credentials, opts *SelectOptions) Client {
	if opts == nil {
		opts = &SelectOptions{}
	}
	offered := make(map[string]bool, len(advertised))
	for _, name := range advertised {
		offered[strings.ToUpper(strings.TrimSpace(name))] = true
	}

	cb := opts.ChannelBinding
	switch {
	case cb != nil && offered["SCRAM-SHA-512-PLUS"]:
		return NewScramSHA512PlusClient(creds.Username, creds.Password, creds.Identity, *cb)
	case offered["SCRAM-SHA-512"]:
		return NewScramSHA512Client(creds.Username, creds.Password, creds.Identity)
	case cb != nil && offered["SCRAM-SHA-256-PLUS"]:
		return NewScramSHA256PlusClient(creds.Username, creds.Password, creds.Identity, *cb)
	case offered["SCRAM-SHA-256"]:
		return NewScramSHA256Client(creds.Username, creds.Password, creds.Identity)
	case cb != nil && offered["SCRAM-SHA-1-PLUS"]:
		return NewScramSHA1PlusClient(creds.Username, creds.Password, creds.Identity, *cb)
	case offered["SCRAM-SHA-1"]:
		return NewScramSHA1Client(creds.Username, creds.Password, creds.Identity)
	case offered["GSSAPI"] && opts.Kerberos != nil && opts.Kerberos.Available():
		return NewGSSAPIClient(opts.Kerberos)
	case offered["CRAM-MD5"] && crypto.MD5.Available():
		return NewCramMD5Client(creds.Username, creds.Password)
	case offered["NTLM"]:
		return NewNTLMClient(creds.Username, creds.Password, creds.Domain, creds.Workstation)
	case offered["PLAIN"]:
		return NewPlainClient(creds.Username, creds.Password, creds.Identity)
	case offered["LOGIN"]:
		return NewLoginClient(creds.Username, creds.Password)
	}
	return nil
}
