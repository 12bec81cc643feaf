// Package geoip geolocates hosts to a country through an ip-api style
// JSON service.
package geoip

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/logging"
)

// DefaultBaseURL is the free ip-api endpoint. It only serves plain HTTP.
const DefaultBaseURL = "http://ip-api.com"

// LookupFunc resolves a host name to addresses.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

type lookupResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CountryCode string `json:"countryCode"`
}

// Geolocator implements region.Geolocator.
type Geolocator struct {
	client     *transport.Client
	baseURL    string
	lookup     LookupFunc
	clientOpts []transport.Option
}

// Option configures a Geolocator.
type Option func(*Geolocator)

// WithLookup replaces DNS resolution.
func WithLookup(fn LookupFunc) Option {
	return func(g *Geolocator) {
		if fn != nil {
			g.lookup = fn
		}
	}
}

// WithTransport passes options to the HTTP client.
func WithTransport(opts ...transport.Option) Option {
	return func(g *Geolocator) {
		g.clientOpts = append(g.clientOpts, opts...)
	}
}

// New creates a geolocator. A non-empty apiKey is sent as the "key" query
// parameter.
func New(baseURL, apiKey string, opts ...Option) *Geolocator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	g := &Geolocator{
		baseURL: baseURL,
		lookup:  net.DefaultResolver.LookupHost,
	}
	for _, opt := range opts {
		opt(g)
	}
	if apiKey != "" {
		g.clientOpts = append(g.clientOpts, transport.WithAuth(&transport.QueryAuth{Param: "key"}, apiKey))
	}
	g.client = transport.New("geoip", g.clientOpts...)
	return g
}

// CountryForHost implements region.Geolocator. Hosts given as IP literals
// are not resolved.
func (g *Geolocator) CountryForHost(ctx context.Context, host string) (string, bool, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", false, nil
	}
	ip, found, err := g.address(ctx, host)
	if err != nil || !found {
		return "", false, err
	}

	params := url.Values{}
	params.Set("fields", "status,message,countryCode")

	var resp lookupResponse
	found, err = g.client.GetJSON(ctx, transport.BuildURL(g.baseURL, "json/"+url.PathEscape(ip), params), &resp)
	if err != nil || !found {
		return "", false, err
	}
	if resp.Status != "success" || resp.CountryCode == "" {
		logging.FromContext(ctx).Debug().Str("host", host).Str("ip", ip).Str("message", resp.Message).Msg("Host not geolocated")
		return "", false, nil
	}
	return strings.ToUpper(resp.CountryCode), true, nil
}

// address picks the first IPv4 address of host, or the first address when
// there is none.
func (g *Geolocator) address(ctx context.Context, host string) (string, bool, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), true, nil
	}
	addrs, err := g.lookup(ctx, host)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a, true, nil
		}
	}
	if len(addrs) > 0 {
		return addrs[0], true, nil
	}
	return "", false, nil
}
