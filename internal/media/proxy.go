package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"hypeflow/internal/httpx"
)

// Placeholder images returned as redirects.
const (
	PlaceholderURL = "https://ui-avatars.com/api/?name=NFT&background=random&color=fff&size=200"
	ErrorImageURL  = "https://ui-avatars.com/api/?name=Error&background=cc0000&color=ffffff&size=200"
)

const (
	// DefaultProxyTimeout bounds one proxied fetch including redirects.
	DefaultProxyTimeout = 10 * time.Second
	// MaxRedirects caps redirects followed while fetching.
	MaxRedirects = 5

	froganaGateway = "https://nftstorage.link/ipfs/bafybeigkfaofxx2nufktskqwrqc77gb3xqskzlqmtbgglfua4g5j6qnw5e/"
)

// DefaultDirectHosts are CDNs browsers can load without the proxy.
var DefaultDirectHosts = []string{
	"cdn.helius-rpc.com",
	"shdw-drive.genesysgo.net",
	"arweave.net",
	"nftstorage.link",
	"ipfs.io",
}

// magicEdenCDN is checked after the scheme test, unlike the other hosts.
const magicEdenCDN = "img-cdn.magiceden.dev"

var errTooManyRedirects = errors.New("too many redirects")

// Plan describes how a proxy request is answered.
type Plan struct {
	// Redirect, when set, is answered with 307 to this URL.
	Redirect string
	// Fetch, when set, is fetched and streamed back.
	Fetch string
}

// Image is a fetched upstream image. Callers must close Body.
type Image struct {
	Body        io.ReadCloser
	ContentType string
}

// Proxy decides between redirecting and fetching, and fetches.
type Proxy struct {
	client      *http.Client
	directHosts []string
	logger      *zap.Logger
}

// ProxyOption configures Proxy.
type ProxyOption func(*Proxy)

// WithProxyClient sets the HTTP client. Its CheckRedirect is replaced.
func WithProxyClient(c *http.Client) ProxyOption {
	return func(p *Proxy) {
		p.client = c
	}
}

// WithDirectHosts replaces the redirect allow-list.
func WithDirectHosts(hosts []string) ProxyOption {
	return func(p *Proxy) {
		p.directHosts = hosts
	}
}

// WithProxyLogger sets the logger.
func WithProxyLogger(l *zap.Logger) ProxyOption {
	return func(p *Proxy) {
		p.logger = l
	}
}

// NewProxy creates a Proxy.
func NewProxy(opts ...ProxyOption) *Proxy {
	p := &Proxy{
		client:      &http.Client{Timeout: DefaultProxyTimeout},
		directHosts: DefaultDirectHosts,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > MaxRedirects {
			return errTooManyRedirects
		}
		return nil
	}
	return p
}

// Plan decides how to answer a request for raw.
func (p *Proxy) Plan(raw string) Plan {
	for _, host := range p.directHosts {
		if strings.Contains(raw, host) {
			return Plan{Redirect: raw}
		}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return Plan{Redirect: PlaceholderURL}
	}

	if strings.Contains(raw, magicEdenCDN) {
		return Plan{Redirect: raw}
	}
	if alt, ok := FroganaAlternative(raw); ok {
		return Plan{Redirect: alt}
	}
	return Plan{Fetch: raw}
}

// FroganaAlternative rewrites a failing Tensor-hosted Frogana image to the
// nftstorage copy named after the file stem.
func FroganaAlternative(raw string) (string, bool) {
	if !strings.Contains(raw, "tensor.trade") || !strings.Contains(raw, "frogana") {
		return "", false
	}
	last := raw[strings.LastIndex(raw, "/")+1:]
	stem, _, _ := strings.Cut(last, ".")
	return froganaGateway + stem + ".png", true
}

// Fetch downloads raw, following at most MaxRedirects redirects. Anything
// other than 200 is an error.
func (p *Proxy) Fetch(ctx context.Context, raw string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", httpx.UserAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &httpx.StatusError{Code: resp.StatusCode, URL: raw}
	}
	if final := resp.Request.URL.String(); final != raw {
		p.logger.Debug("image redirected", zap.String("url", raw), zap.String("final", final))
	}

	return &Image{
		Body:        resp.Body,
		ContentType: ContentType(resp.Header.Get("Content-Type"), raw),
	}, nil
}
