package sasl

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
)

type cramMD5Client struct {
	Username string
	Password string
	done     bool
}

func (a *cramMD5Client) Start() (mech string, ir []byte, err error) {
	mech = "CRAM-MD5"
	return
}

func (a *cramMD5Client) Next(challenge []byte) (response []byte, err error) {
	if a.done {
		return nil, ErrUnexpectedServerChallenge
	}
	a.done = true

	mac := hmac.New(md5.New, []byte(a.Password))
	mac.Write(challenge)
	digest := mac.Sum(nil)

	response = make([]byte, len(a.Username)+1+hex.EncodedLen(len(digest)))
	n := copy(response, a.Username)
	response[n] = ' '
	hex.Encode(response[n+1:], digest)
	return response, nil
}

// An implementation of the CRAM-MD5 authentication mechanism, as
// described in RFC 2195: a single server challenge answered with
// "username hex(HMAC-MD5(password, challenge))".
func NewCramMD5Client(username, password string) Client {
	return &cramMD5Client{Username: username, Password: password}
}
