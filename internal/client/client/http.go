package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/obyektivka/internal/common"
	"github.com/dmitrijs2005/obyektivka/internal/logging"
	"github.com/dmitrijs2005/obyektivka/internal/netx"
)

const (
	DefaultTimeout = 15 * time.Second

	contentTypeJSON = "application/json"
	contentTypePDF  = "application/pdf"

	maxErrorBody = 1 << 20
)

// Session is the part of the session service the client depends on: the
// token it attaches and the forced clear it triggers on 401.
type Session interface {
	Token() string
	Invalidate(ctx context.Context) error
}

// HTTPClient is the configured backend client.
type HTTPClient struct {
	apiURL         *url.URL
	backendURL     string
	http           *http.Client
	session        Session
	loginPath      string
	onUnauthorized func(loginPath string)
	log            logging.Logger
	requestID      func() string
	maxPhotoWidth  int
}

type Option func(*HTTPClient)

func WithSession(s Session) Option {
	return func(c *HTTPClient) { c.session = s }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithBackendURL(u string) Option {
	return func(c *HTTPClient) {
		if u != "" {
			c.backendURL = strings.TrimSuffix(u, "/")
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// WithOnUnauthorized sets the hook called with the login path after a 401
// has cleared the session.
func WithOnUnauthorized(fn func(loginPath string)) Option {
	return func(c *HTTPClient) { c.onUnauthorized = fn }
}

func WithLoginPath(p string) Option {
	return func(c *HTTPClient) { c.loginPath = p }
}

// WithMaxPhotoWidth sets the width photos are downscaled to before upload.
func WithMaxPhotoWidth(w int) Option {
	return func(c *HTTPClient) { c.maxPhotoWidth = w }
}

// NewHTTPClient returns a client for the API rooted at apiURL.
func NewHTTPClient(apiURL string, opts ...Option) (*HTTPClient, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	u, err := url.Parse(strings.TrimSuffix(apiURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", apiURL)
	}

	c := &HTTPClient{
		apiURL:     u,
		backendURL: BackendOrigin(apiURL),
		http:       &http.Client{Timeout: DefaultTimeout},
		loginPath:  common.LoginPath,
		log:        logging.Nop(),
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIURL returns the configured API base URL.
func (c *HTTPClient) APIURL() string {
	return c.apiURL.String()
}

// StorageURL resolves a storage path against the backend origin.
func (c *HTTPClient) StorageURL(path string) string {
	return StorageURL(c.backendURL, path)
}

// request describes one call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	accept      string
}

func (c *HTTPClient) endpoint(path string, query url.Values) string {
	u := *c.apiURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends r and returns the response of a 2xx status. Every other outcome is
// an error; the caller owns the body of the returned response.
func (c *HTTPClient) do(ctx context.Context, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), r.body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	accept := r.accept
	if accept == "" {
		accept = contentTypeJSON
	}
	req.Header.Set("Accept", accept)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	reqID := c.requestID()
	req.Header.Set(common.RequestIDHeaderName, reqID)
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		}
	}

	log := c.log.With("method", r.method, "path", r.path, "request_id", reqID)
	start := time.Now()
	log.Debug(ctx, "api request")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !netx.IsTimeout(ctxErr) {
			return nil, ctxErr
		}
		log.Warn(ctx, "api request got no response", "error", err, "timeout", netx.IsTimeout(err))
		return nil, &NetworkError{APIURL: c.apiURL.String(), Err: err}
	}

	log.Debug(ctx, "api response", "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized(ctx, log)
	}

	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &body)

	apiErr := newAPIError(resp.StatusCode, body)
	log.Warn(ctx, "api error", "status", resp.StatusCode, "message", apiErr.Message)
	return nil, apiErr
}

func (c *HTTPClient) unauthorized(ctx context.Context, log logging.Logger) {
	if c.session != nil {
		if err := c.session.Invalidate(ctx); err != nil {
			log.Error(ctx, "failed to clear session after 401", "error", err)
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(c.loginPath)
	}
}

// doJSON sends in as a JSON body (when non-nil) and decodes the response into out
// (when non-nil).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	r := request{method: method, path: path, query: query}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r.body = bytes.NewReader(b)
		r.contentType = contentTypeJSON
	}
	return c.send(ctx, r, out)
}

func (c *HTTPClient) send(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}
