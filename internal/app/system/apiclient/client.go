// Package apiclient is the typed client for the platform's REST API.
//
// A Client holds the shared configuration (base URL, timeout, transport).
// Each dashboard session gets its own Conn bound to that session's bearer
// token; there is no ambient credential lookup.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxBody caps how much of a response body is read.
const maxBody = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	LoginPath  string            // defaults to /api/v1/login
	Transport  http.RoundTripper // nil means http.DefaultTransport
	Categories CategoryCache     // optional
	Logger     *zap.Logger
}

// Client is safe for concurrent use.
type Client struct {
	base       *url.URL
	timeout    time.Duration
	loginPath  string
	transport  http.RoundTripper
	categories CategoryCache
	log        *zap.Logger
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: base url %q must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q has no host", cfg.BaseURL)
	}

	c := &Client{
		base:       base,
		timeout:    cfg.Timeout,
		loginPath:  cfg.LoginPath,
		transport:  cfg.Transport,
		categories: cfg.Categories,
		log:        cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}
	if c.loginPath == "" {
		c.loginPath = "/api/v1/login"
	}
	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base.String() }

// Session is the credential a dashboard session acts with.
type Session struct {
	Token string
}

// Empty reports whether the session has no bearer token.
func (s Session) Empty() bool { return strings.TrimSpace(s.Token) == "" }

// Conn is a Client bound to one session's credential.
type Conn struct {
	c    *Client
	http *http.Client
}

// Conn returns a connection that authenticates every request with the
// session's bearer token. It fails with ErrMissingCredential when the
// session is empty, before anything touches the network.
func (c *Client) Conn(s Session) (*Conn, error) {
	if s.Empty() {
		return nil, ErrMissingCredential
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.Token, TokenType: "Bearer"})
	return &Conn{
		c: c,
		http: &http.Client{
			Timeout:   c.timeout,
			Transport: &oauth2.Transport{Source: src, Base: c.transport},
		},
	}, nil
}

// envelope is the backend's response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Message string          `json:"message"`

	// Only the login endpoint answers with a top-level token.
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// request describes one call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	form   url.Values // sent as multipart/form-data when non-nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.base.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do performs req with hc and decodes the envelope of a 2xx response.
func (c *Client) do(ctx context.Context, hc *http.Client, req request) (envelope, error) {
	var env envelope

	var body io.Reader
	contentType := ""
	if req.form != nil {
		buf, ct, err := encodeMultipart(req.form)
		if err != nil {
			return env, &Error{Kind: KindTransport, Op: req.op, Err: err}
		}
		body, contentType = buf, ct
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return env, &Error{Kind: KindTransport, Op: req.op, Err: err}
	}
	hreq.Header.Set("Accept", "application/json")
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := hc.Do(hreq)
	if err != nil {
		c.log.Warn("backend request failed",
			zap.String("op", req.op), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return env, &Error{Kind: KindTransport, Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return env, &Error{Kind: KindTransport, Status: resp.StatusCode, Op: req.op, Err: err}
	}

	c.log.Debug("backend request",
		zap.String("op", req.op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if kind := classifyStatus(resp.StatusCode); kind != KindNone {
		return env, &Error{Kind: kind, Status: resp.StatusCode, Op: req.op, Message: backendMessage(data)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, &Error{Kind: KindTransport, Status: resp.StatusCode, Op: req.op, Err: fmt.Errorf("decode: %w", err)}
	}
	return env, nil
}

// backendMessage pulls the "message" field out of an error body.
func backendMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}

// encodeMultipart writes form as multipart/form-data with keys in sorted
// order so requests are reproducible.
func encodeMultipart(form url.Values) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range form[k] {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

// methodOverride adds the _method field used to emulate PUT/DELETE over POST.
func methodOverride(form url.Values, method string) url.Values {
	if form == nil {
		form = url.Values{}
	}
	form.Set("_method", method)
	return form
}

// decodeData unmarshals env.Data into out, mapping failures to KindTransport.
func decodeData(op string, env envelope, out any) error {
	if len(env.Data) == 0 {
		return &Error{Kind: KindTransport, Op: op, Err: errors.New("response has no data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

// Ping checks that the backend answers HTTP at its base URL. Any response
// below 500 counts as reachable; no credential is sent.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String(), nil)
	if err != nil {
		return &Error{Kind: KindTransport, Op: "ping", Err: err}
	}
	hc := &http.Client{Timeout: c.timeout, Transport: c.transport}
	resp, err := hc.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: "ping", Err: err}
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return &Error{Kind: KindServerError, Status: resp.StatusCode, Op: "ping"}
	}
	return nil
}
