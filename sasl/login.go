package sasl

import "strings"

type loginClient struct {
	Username string
	Password string
}

func (a *loginClient) Start() (mech string, ir []byte, err error) {
	mech = "LOGIN"
	return
}

func (a *loginClient) Next(challenge []byte) (response []byte, err error) {
	// Servers word their prompts inconsistently ("Username:", "User
	// Name\x00", base64 variants of either); pick the credential by
	// sniffing the prompt text instead of counting rounds.
	prompt := strings.ToLower(string(challenge))
	switch {
	case len(challenge) == 0:
		return []byte(a.Username), nil
	case strings.Contains(prompt, "username"):
		return []byte(a.Username), nil
	case strings.Contains(prompt, "password"):
		return []byte(a.Password), nil
	default:
		return []byte(a.Password), nil
	}
}

// An implementation of the obsolete LOGIN authentication mechanism, as
// described in draft-murchison-sasl-login-00. Still widely deployed by
// Outlook-compatible servers.
func NewLoginClient(username, password string) Client {
	return &loginClient{username, password}
}
