// Package apiclient is the HTTP client for the game discovery backend. It
// attaches the session token, encodes bodies, parses responses tolerantly
// and tears the session down when the server rejects the token.
//
// Two error channels exist: Do returns an error only when no response was
// obtained (ErrTransport); a response with an error status is returned as a
// *Response whose OK or Err must be checked by the caller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// slogKeyError is the slog attribute key for error values.
	slogKeyError = "error"

	// HeaderRequestID carries a per-request identifier.
	HeaderRequestID = "X-Request-ID"

	// authScheme is the DRF token authentication scheme.
	authScheme = "Token"

	defaultUserAgent = "gamebuddy"
)

// TokenSource supplies the current session token; "" means anonymous.
type TokenSource interface {
	Token() string
}

// UnauthorizedHandler is told about 401 responses to non-anonymous requests.
// token is the one the request carried, "" when it went out without one.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context, token string)
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client issues requests against the backend.
type Client struct {
	base         *url.URL
	http         *http.Client
	userAgent    string
	tokens       TokenSource
	unauthorized UnauthorizedHandler
}

// New creates a client. tokens and onUnauthorized may be nil.
func New(cfg Config, tokens TokenSource, onUnauthorized UnauthorizedHandler) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &Client{
		base:         base,
		http:         hc,
		userAgent:    ua,
		tokens:       tokens,
		unauthorized: onUnauthorized,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// FilePart is one file in a multipart body.
type FilePart struct {
	Field    string
	FileName string
	Content  io.Reader
}

// Request describes one call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// JSON is marshaled as the body when non-nil.
	JSON any

	// Files, with Fields, form a multipart body.
	Files  []FilePart
	Fields map[string]string

	Header http.Header

	// Anonymous requests carry no token and a 401 on them leaves the
	// session alone (bad credentials on login, for instance).
	Anonymous bool
}

// Do sends req. The returned error is non-nil only for transport failures
// and is then wrapped with ErrTransport.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.resolve(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s request: %w", method, req.Path, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", c.userAgent)

	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)

	sentToken := ""
	if !req.Anonymous && c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			httpReq.Header.Set("Authorization", authScheme+" "+tok)
			sentToken = tok
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		slog.Debug("api request failed",
			"method", method, "path", req.Path, "request_id", requestID, slogKeyError, err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, req.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s %s: %w", ErrTransport, method, req.Path, err)
	}

	slog.Debug("api request",
		"method", method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	out := newResponse(resp.StatusCode, resp.Header, raw)

	if resp.StatusCode == http.StatusUnauthorized && !req.Anonymous {
		slog.Warn("token rejected by server",
			"path", req.Path, "had_token", sentToken != "", "request_id", requestID)
		if c.unauthorized != nil {
			c.unauthorized.HandleUnauthorized(ctx, sentToken)
		}
	}

	return out, nil
}

// Get is Do with GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post is Do with POST and a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, JSON: body})
}

// Put is Do with PUT and a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, JSON: body})
}

// Delete is Do with DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(c.base.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case len(req.Files) > 0 || len(req.Fields) > 0:
		return encodeMultipart(req.Files, req.Fields)
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	default:
		return nil, "", nil
	}
}

func encodeMultipart(files []FilePart, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing form field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("copying form file %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
