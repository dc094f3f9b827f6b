// Package fetchguard downloads remote resources over HTTP while refusing to
// touch internal infrastructure.
//
// Every hostname is resolved before any dial and each resolved address is
// checked against loopback, link-local, unspecified, and private ranges (both
// IPv4 and IPv6). Redirects are re-validated hop by hop.
package fetchguard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultMaxBytes caps the size of a fetched body.
	DefaultMaxBytes int64 = 25 << 20 // 25 MB
	// DefaultTimeout bounds a single fetch end to end.
	DefaultTimeout = 30 * time.Second

	maxRedirects = 3
)

var (
	// ErrDisallowedURL indicates the URL points at something this fetcher refuses to touch.
	ErrDisallowedURL = errors.New("fetchguard: disallowed url")
	// ErrTooLarge indicates the resource exceeds the configured size cap.
	ErrTooLarge = errors.New("fetchguard: resource too large")
)

// Pseudo-TLDs that never resolve to public hosts.
var blockedTLDs = []string{".localhost", ".local", ".internal", ".home", ".lan"}

// Well-known internal service ports that a public attachment URL has no
// business pointing at.
var blockedPorts = map[string]struct{}{
	"22": {}, "23": {}, "25": {}, "53": {}, "110": {}, "135": {}, "139": {},
	"143": {}, "445": {}, "993": {}, "995": {}, "1433": {}, "1521": {},
	"3306": {}, "3389": {}, "5432": {}, "5900": {}, "6379": {}, "8020": {},
	"9200": {}, "11211": {}, "27017": {}, "27018": {}, "50070": {},
}

// Config holds optional overrides for a Fetcher.
type Config struct {
	// MaxBytes caps the fetched body size; DefaultMaxBytes when zero.
	MaxBytes int64
	// Timeout bounds a single fetch; DefaultTimeout when zero.
	Timeout time.Duration
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
	// Resolver overrides DNS resolution, mainly for tests.
	Resolver Resolver
}

// Resolver resolves hostnames to IP addresses.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Result is a fetched resource.
type Result struct {
	Data        []byte
	ContentType string
}

// Fetcher fetches remote resources with SSRF protection and a size cap.
type Fetcher struct {
	transport http.RoundTripper
	resolver  Resolver
	maxBytes  int64
	timeout   time.Duration
}

// New builds a Fetcher, applying defaults for zero-value config fields.
func New(cfg Config) *Fetcher {
	f := &Fetcher{
		transport: cfg.Transport,
		resolver:  cfg.Resolver,
		maxBytes:  cfg.MaxBytes,
		timeout:   cfg.Timeout,
	}
	if f.transport == nil {
		f.transport = http.DefaultTransport
	}
	if f.resolver == nil {
		f.resolver = net.DefaultResolver
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}

	return f
}

// Fetch downloads rawURL. ownHosts are the names this service answers on,
// usually the Host header of the inbound request plus any configured alias;
// the target must not be one of them or a subdomain of one.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, ownHosts ...string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url", ErrDisallowedURL)
	}

	if err := f.validate(ctx, u, ownHosts); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	client := &http.Client{
		Transport: f.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: too many redirects", ErrDisallowedURL)
			}
			return f.validate(req.Context(), req.URL, ownHosts)
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetchguard: unexpected status %d", resp.StatusCode)
	}

	if resp.ContentLength > f.maxBytes {
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}

	return &Result{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (f *Fetcher) validate(ctx context.Context, u *url.URL, ownHosts []string) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: scheme %q is not allowed (only http and https)", ErrDisallowedURL, u.Scheme)
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrDisallowedURL)
	}

	if host == "localhost" {
		return fmt.Errorf("%w: host %q is not allowed", ErrDisallowedURL, host)
	}
	for _, tld := range blockedTLDs {
		if strings.HasSuffix(host, tld) {
			return fmt.Errorf("%w: host %q is not allowed", ErrDisallowedURL, host)
		}
	}

	for _, ownHost := range ownHosts {
		if own := normalizeOwnHost(ownHost); own != "" {
			if host == own || strings.HasSuffix(host, "."+own) {
				return fmt.Errorf("%w: host %q targets this service", ErrDisallowedURL, host)
			}
		}
	}

	if port := u.Port(); port != "" {
		if _, blocked := blockedPorts[port]; blocked {
			return fmt.Errorf("%w: port %s is not allowed", ErrDisallowedURL, port)
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		return checkIP(ip, host)
	}

	// Resolve before dialing so internal addresses behind public-looking
	// names are rejected.
	addrs, err := f.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("fetchguard: resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: host %q did not resolve", ErrDisallowedURL, host)
	}

	for _, addr := range addrs {
		if err := checkIP(addr.IP, host); err != nil {
			return err
		}
	}

	return nil
}

func checkIP(ip net.IP, host string) error {
	switch {
	case ip.IsLoopback(),
		ip.IsLinkLocalUnicast(),
		ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(),
		ip.IsUnspecified(),
		ip.IsPrivate():
		return fmt.Errorf("%w: host %q resolves to restricted address %s", ErrDisallowedURL, host, ip)
	default:
		return nil
	}
}

func normalizeOwnHost(ownHost string) string {
	own := strings.ToLower(strings.TrimSpace(ownHost))
	if own == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(own); err == nil {
		own = host
	}

	return strings.TrimSuffix(own, ".")
}
