package transport

import (
	"context"
	"maps"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout is the overall timeout of a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent unless overridden. Many media hosts refuse
	// requests without a browser-like agent.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 mediasniff"

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// HeaderSource supplies extra headers and a cookie for requests to a host.
type HeaderSource interface {
	HeadersFor(host string) (headers map[string]string, cookie string)
}

// settings collects client options.
type settings struct {
	timeout   time.Duration
	userAgent string
	cookie    string
	headers   map[string]string
	source    HeaderSource
	dialer    proxy.Dialer
}

// Option configures NewHTTPClient.
type Option func(*settings)

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithCookie sends cookie with every request.
func WithCookie(cookie string) Option {
	return func(s *settings) {
		s.cookie = cookie
	}
}

// WithHeaders sends headers with every request.
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) {
		s.headers = headers
	}
}

// WithHeaderSource adds per-host headers and cookies. They take precedence
// over WithHeaders and WithCookie.
func WithHeaderSource(src HeaderSource) Option {
	return func(s *settings) {
		s.source = src
	}
}

// WithProxy routes every connection through the given SOCKS5 proxy.
func WithProxy(p *Proxy) Option {
	return func(s *settings) {
		if p != nil {
			s.dialer = p.Dialer()
		}
	}
}

// NewHTTPClient creates the client used for page loads and probes.
// It keeps cookies between requests and follows at most 10 redirects.
func NewHTTPClient(opts ...Option) *http.Client {
	s := &settings{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}

	base, _ := http.DefaultTransport.(*http.Transport) //nolint:errcheck // always *http.Transport
	transport := base.Clone()
	transport.MaxIdleConnsPerHost = 8
	transport.IdleConnTimeout = 30 * time.Second
	if s.dialer != nil {
		transport.Proxy = nil
		transport.DialContext = dialContext(s.dialer)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: &headerInjectingTransport{
			base:      transport,
			userAgent: s.userAgent,
			cookie:    s.cookie,
			headers:   s.headers,
			source:    s.source,
		},
		Timeout: s.timeout,
		Jar:     jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// dialContext adapts a proxy dialer to http.Transport.DialContext.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// the user agent, custom headers and cookies into every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string
	source    HeaderSource
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	headers, cookie := t.headers, t.cookie
	if t.source != nil {
		siteHeaders, siteCookie := t.source.HeadersFor(clone.URL.Hostname())
		if len(siteHeaders) > 0 {
			merged := make(map[string]string, len(headers)+len(siteHeaders))
			maps.Copy(merged, headers)
			maps.Copy(merged, siteHeaders)
			headers = merged
		}
		if siteCookie != "" {
			cookie = siteCookie
		}
	}

	if cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+cookie)
		} else {
			clone.Header.Set("Cookie", cookie)
		}
	}
	for key, value := range headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
