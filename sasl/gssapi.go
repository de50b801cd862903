package sasl

// KerberosProvider is the opaque capability backing the GSSAPI
// mechanism. Token generation is delegated to the platform (or to a
// library such as gokrb5, see the gssapi package); the SASL layer only
// shuttles tokens.
type KerberosProvider interface {
	// Available reports whether the provider can start an exchange at
	// all (credentials reachable, configuration present). The selection
	// policy skips GSSAPI when this is false.
	Available() bool

	// InitialToken produces the context-establishment token sent with
	// the AUTH command.
	InitialToken() ([]byte, error)

	// Next consumes one server challenge token and produces the reply
	// token, if any.
	Next(challenge []byte) ([]byte, error)

	// Established reports whether the security context is complete.
	Established() bool
}

type gssapiClient struct {
	provider KerberosProvider
}

func (a *gssapiClient) Start() (mech string, ir []byte, err error) {
	mech = "GSSAPI"
	ir, err = a.provider.InitialToken()
	return mech, ir, err
}

func (a *gssapiClient) Next(challenge []byte) (response []byte, err error) {
	if a.provider.Established() {
		return nil, ErrUnexpectedServerChallenge
	}
	return a.provider.Next(challenge)
}

// An implementation of the GSSAPI authentication mechanism, as
// described in RFC 4752, over an injected Kerberos capability.
func NewGSSAPIClient(provider KerberosProvider) Client {
	return &gssapiClient{provider}
}
