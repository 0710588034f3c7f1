package client

import (
	"context"
	"net/http"
	"time"

	"go.pilab.hu/portal/api"
	"go.pilab.hu/portal/domain"
)

const refreshPath = api.PathToken

// Signup registers a new account. The request is expected to be validated.
func (c *Client) Signup(ctx context.Context, req domain.SignupRequest) error {
	body, err := jsonBody(req)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		op:          "signup",
		method:      http.MethodPost,
		path:        api.PathSignup,
		body:        body,
		contentType: "application/json",
	})
}

// Login authenticates with email and password. On success the service sets
// the refresh cookie; no access token is returned.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := jsonBody(domain.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	var out domain.LoginResponse
	return c.do(ctx, request{
		op:          "login",
		method:      http.MethodPost,
		path:        api.PathLogin,
		body:        body,
		contentType: "application/json",
		out:         &out,
	})
}

// Refresh exchanges the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) (domain.AccessToken, error) {
	var tok domain.AccessToken
	err := c.do(ctx, request{
		op:     "refresh",
		method: http.MethodGet,
		path:   refreshPath,
		out:    &tok,
	})
	return tok, err
}

// Logout ends the remote session and drops the refresh cookie.
func (c *Client) Logout(ctx context.Context) error {
	body, err := jsonBody(struct{}{})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		op:          "logout",
		method:      http.MethodPost,
		path:        api.PathLogout,
		body:        body,
		contentType: "application/json",
	})
}

// Cookies returns the cookies the jar would send to the auth endpoints.
// The CLI persists them between runs.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.endpoint(refreshPath, nil))
}

// SetCookies loads previously persisted cookies into the jar.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	for _, ck := range cookies {
		if ck.Path == "" {
			ck.Path = "/"
		}
	}
	c.jar.SetCookies(c.endpoint(refreshPath, nil), cookies)
}

// ForgetCookies expires every cookie held for the auth endpoints.
func (c *Client) ForgetCookies() {
	held := c.Cookies()
	expired := make([]*http.Cookie, 0, len(held))
	for _, ck := range held {
		expired = append(expired, &http.Cookie{
			Name:    ck.Name,
			Path:    "/",
			Expires: time.Unix(0, 0),
			MaxAge:  -1,
		})
	}
	if len(expired) > 0 {
		c.jar.SetCookies(c.endpoint(refreshPath, nil), expired)
	}
}
