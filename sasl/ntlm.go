package sasl

import (
	"github.com/migueldeicaza/MailFoundation-sub004/ntlm"
)

type ntlmClient struct {
	session *ntlm.Client
	done    bool
}

func (a *ntlmClient) Start() (mech string, ir []byte, err error) {
	mech = "NTLM"
	neg, err := a.session.Negotiate()
	if err != nil {
		return "", nil, err
	}
	ir, err = neg.Encode()
	return mech, ir, err
}

func (a *ntlmClient) Next(challenge []byte) (response []byte, err error) {
	if a.done {
		return nil, ErrUnexpectedServerChallenge
	}
	a.done = true

	ch, err := ntlm.DecodeChallenge(challenge)
	if err != nil {
		return nil, err
	}
	if err := a.session.ProcessChallenge(ch); err != nil {
		return nil, err
	}
	auth, err := a.session.Authenticate()
	if err != nil {
		return nil, err
	}
	return auth.Encode()
}

// An implementation of the NTLM authentication mechanism: the Negotiate
// message is sent as the initial response, the server's Challenge is
// answered with an NTLMv2 Authenticate message. Domain and workstation
// may be empty.
func NewNTLMClient(username, password, domain, workstation string) Client {
	return &ntlmClient{session: &ntlm.Client{
		Username:    username,
		Password:    password,
		Domain:      domain,
		Workstation: workstation,
	}}
}
