package geoip

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/internal/transport"
)

func fixedLookup(addrs map[string][]string) LookupFunc {
	return func(_ context.Context, host string) ([]string, error) {
		if a, ok := addrs[host]; ok {
			return a, nil
		}
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
}

func TestCountryForHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		switch r.URL.Path {
		case "/json/192.0.2.10":
			_, _ = w.Write([]byte(`{"status":"success","countryCode":"fr"}`))
		default:
			_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
		}
	}))
	defer srv.Close()

	g := New(srv.URL, "secret",
		WithTransport(transport.WithHTTPClient(srv.Client())),
		WithLookup(fixedLookup(map[string][]string{
			"science.mnhn.fr": {"2001:db8::1", "192.0.2.10"},
			"reserved.test":   {"10.0.0.1"},
		})),
	)
	ctx := context.Background()

	code, found, err := g.CountryForHost(ctx, "science.mnhn.fr")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "FR", code, "first IPv4 address is used")

	code, found, err = g.CountryForHost(ctx, "192.0.2.10")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "FR", code)

	_, found, err = g.CountryForHost(ctx, "reserved.test")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = g.CountryForHost(ctx, "unknown.test")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = g.CountryForHost(ctx, " ")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCountryForHostLookupError(t *testing.T) {
	boom := errors.New("resolver unavailable")
	g := New("http://127.0.0.1:0", "", WithLookup(func(context.Context, string) ([]string, error) {
		return nil, boom
	}))
	_, found, err := g.CountryForHost(context.Background(), "example.org")
	assert.ErrorIs(t, err, boom)
	assert.False(t, found)
}
