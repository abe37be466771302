package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Login exchanges operator credentials for a bearer token at the backend's
// login endpoint and returns the resulting Session.
func (c *Client) Login(ctx context.Context, login, password string) (Session, error) {
	const op = "auth.login"

	hc := &http.Client{Timeout: c.timeout, Transport: c.transport}
	env, err := c.do(ctx, hc, request{
		op:     op,
		method: http.MethodPost,
		path:   c.loginPath,
		form:   url.Values{"login": {login}, "password": {password}},
	})
	if err != nil {
		return Session{}, err
	}

	token := tokenFrom(env)
	if token == "" {
		return Session{}, &Error{Kind: KindTransport, Op: op, Message: "login response has no token"}
	}
	return Session{Token: token}, nil
}

// tokenFrom looks for the token at the top level and inside data.
func tokenFrom(env envelope) string {
	type tokens struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	pick := func(t tokens) string {
		if s := strings.TrimSpace(t.Token); s != "" {
			return s
		}
		return strings.TrimSpace(t.AccessToken)
	}

	if tok := pick(tokens{Token: env.Token, AccessToken: env.AccessToken}); tok != "" {
		return tok
	}
	if len(env.Data) > 0 {
		var inner tokens
		if err := json.Unmarshal(env.Data, &inner); err == nil {
			return pick(inner)
		}
	}
	return ""
}
