// Package gssapi provides a Kerberos-backed token source for the GSSAPI
// SASL mechanism (RFC 4752), built on gokrb5. It implements
// sasl.KerberosProvider; the SASL layer owns the command flow, this
// package owns ticket acquisition and the security-layer negotiation
// round.
package gssapi

import (
	"fmt"
	"os"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/gssapi"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/jcmturner/gokrb5/v8/types"
)

// RFC 4752 section 3.3 security layer bitmask. Mail protocols run over
// their own TLS, so only the "no security layer" option is offered.
const secLayerNone = 0x01

// Provider drives a Kerberos context for one SASL exchange. It is
// single-use, like the mechanism clients it feeds.
type Provider struct {
	cl  *client.Client
	spn string

	// Clients built from a ccache already hold a TGT; password and
	// keytab clients need an AS exchange first.
	needLogin bool

	sessionKey  types.EncryptionKey
	haveKey     bool
	established bool
}

// NewWithPassword builds a provider that obtains a TGT with an AS-REQ
// using the given password. spn is the target service principal,
// e.g. "imap/mail.example.com".
func NewWithPassword(username, realm, password, spn string) (*Provider, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cl := client.NewWithPassword(username, realm, password, cfg, client.DisablePAFXFAST(true))
	return &Provider{cl: cl, spn: spn, needLogin: true}, nil
}

// NewWithKeytab builds a provider around a keytab file.
func NewWithKeytab(keytabPath, username, realm, spn string) (*Provider, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	kt, err := keytab.Load(keytabPath)
	if err != nil {
		return nil, fmt.Errorf("gssapi: load keytab: %w", err)
	}
	cl := client.NewWithKeytab(username, realm, kt, cfg, client.DisablePAFXFAST(true))
	return &Provider{cl: cl, spn: spn, needLogin: true}, nil
}

// NewFromCCache builds a provider reusing an existing credential cache
// (e.g. one populated by kinit).
func NewFromCCache(ccachePath, spn string) (*Provider, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cc, err := credentials.LoadCCache(ccachePath)
	if err != nil {
		return nil, fmt.Errorf("gssapi: load ccache: %w", err)
	}
	cl, err := client.NewFromCCache(cc, cfg)
	if err != nil {
		return nil, fmt.Errorf("gssapi: client from ccache: %w", err)
	}
	return &Provider{cl: cl, spn: spn}, nil
}

// Available reports whether the provider holds a usable client.
func (p *Provider) Available() bool {
	return p.cl != nil && p.spn != ""
}

// InitialToken acquires a service ticket for the SPN and wraps it in a
// KRB5 AP-REQ token, the initial response of the GSSAPI exchange.
func (p *Provider) InitialToken() ([]byte, error) {
	if !p.Available() {
		return nil, fmt.Errorf("gssapi: no Kerberos client configured")
	}
	if p.needLogin {
		if err := p.cl.Login(); err != nil {
			return nil, fmt.Errorf("gssapi: login: %w", err)
		}
		p.needLogin = false
	}
	tkt, key, err := p.cl.GetServiceTicket(p.spn)
	if err != nil {
		return nil, fmt.Errorf("gssapi: service ticket for %q: %w", p.spn, err)
	}
	tok, err := spnego.NewKRB5TokenAPREQ(p.cl, tkt, key,
		[]int{gssapi.ContextFlagInteg, gssapi.ContextFlagConf}, nil)
	if err != nil {
		return nil, fmt.Errorf("gssapi: build AP-REQ: %w", err)
	}
	b, err := tok.Marshal()
	if err != nil {
		return nil, fmt.Errorf("gssapi: marshal AP-REQ: %w", err)
	}
	p.sessionKey = key
	p.haveKey = true
	return b, nil
}

// Next consumes one server token. An AP-REP is acknowledged with an
// empty response; the security-layer wrap token is answered with a
// wrapped "no security layer, no size limit" selection, which completes
// the context.
func (p *Provider) Next(challenge []byte) ([]byte, error) {
	if !p.haveKey {
		return nil, fmt.Errorf("gssapi: challenge before initial token")
	}

	var wt gssapi.WrapToken
	if err := wt.Unmarshal(challenge, true); err != nil {
		// Not a wrap token; a mutual-auth AP-REP arrives here when the
		// server sends one before the security-layer round.
		var kt spnego.KRB5Token
		if kerr := kt.Unmarshal(challenge); kerr == nil && kt.IsAPRep() {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("gssapi: unexpected server token: %w", err)
	}
	if _, err := wt.Verify(p.sessionKey, keyusage.GSSAPI_ACCEPTOR_SEAL); err != nil {
		return nil, fmt.Errorf("gssapi: verify wrap token: %w", err)
	}
	if len(wt.Payload) < 4 {
		return nil, fmt.Errorf("gssapi: security layer token too short")
	}
	if wt.Payload[0]&secLayerNone == 0 {
		return nil, fmt.Errorf("gssapi: server requires a security layer")
	}

	reply, err := gssapi.NewInitiatorWrapToken([]byte{secLayerNone, 0, 0, 0}, p.sessionKey)
	if err != nil {
		return nil, fmt.Errorf("gssapi: build reply token: %w", err)
	}
	b, err := reply.Marshal()
	if err != nil {
		return nil, fmt.Errorf("gssapi: marshal reply token: %w", err)
	}
	p.established = true
	return b, nil
}

// Established reports whether the security-layer round completed.
func (p *Provider) Established() bool {
	return p.established
}

// Close destroys the underlying Kerberos sessions.
func (p *Provider) Close() {
	if p.cl != nil {
		p.cl.Destroy()
	}
}

// loadConfig reads krb5.conf from $KRB5_CONFIG or the standard
// locations, falling back to a DNS-discovery config.
func loadConfig() (*config.Config, error) {
	paths := []string{
		os.Getenv("KRB5_CONFIG"),
		"/etc/krb5.conf",
		"/etc/krb5/krb5.conf",
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return config.Load(path)
		}
	}
	return config.NewFromString(`[libdefaults]
dns_lookup_realm = true
dns_lookup_kdc = true
`)
}
