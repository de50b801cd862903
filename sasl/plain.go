package sasl

type plainClient struct {
	Username string
	Password string
	Identity string
}

func (a *plainClient) Start() (mech string, ir []byte, err error) {
	mech = "PLAIN"
	ir = []byte(a.Identity + "\x00" + a.Username + "\x00" + a.Password)
	return
}

func (a *plainClient) Next(challenge []byte) (response []byte, err error) {
	return nil, ErrUnexpectedServerChallenge
}

// An implementation of the PLAIN authentication mechanism, as described
// in RFC 4616. Authorization identity may be left blank to indicate
// that the client is requesting to act as the identity associated with
// the authentication credentials.
func NewPlainClient(username, password, identity string) Client {
	return &plainClient{username, password, identity}
}
