package countries

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/internal/transport"
)

func TestLookup(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/alpha/NC":
			_, _ = w.Write([]byte(`{"name":{"common":"New Caledonia"},"cca2":"NC","region":"Oceania"}`))
		case "/alpha/FR":
			_, _ = w.Write([]byte(`[{"name":{"common":"France"},"cca2":"FR","region":"EUROPE"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := New(srv.URL, false, transport.WithHTTPClient(srv.Client()))
	ctx := context.Background()

	name, found, err := r.CountryName(ctx, "nc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "New Caledonia", name)

	region, found, err := r.RegionForCountry(ctx, "NC")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Oceania", region)

	region, _, err = r.RegionForCountry(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, "Europe", region)

	_, found, err = r.CountryName(ctx, "ZZ")
	require.NoError(t, err)
	assert.False(t, found)
	_, _, _ = r.CountryName(ctx, "ZZ")

	assert.Equal(t, int32(3), calls.Load(), "answers including unknown codes are cached")
}

func TestLookupFallsBackOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := New(srv.URL, false, transport.WithHTTPClient(srv.Client()))
	c, found, err := r.Lookup(context.Background(), "DE")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Germany", c.Name)
	assert.Equal(t, "Europe", c.Region)
}

func TestOffline(t *testing.T) {
	tests := []struct {
		code, name, region string
	}{
		{"FR", "France", "Europe"},
		{"BR", "Brazil", "Americas"},
		{"JP", "Japan", "Asia"},
		{"KE", "Kenya", "Africa"},
		{"NZ", "New Zealand", "Oceania"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, found := Offline(tt.code)
			require.True(t, found)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.region, c.Region)
		})
	}

	_, found := Offline("150")
	assert.False(t, found, "continents are not countries")
	_, found = Offline("not-a-code")
	assert.False(t, found)
}

func TestNormalizeRegion(t *testing.T) {
	assert.Equal(t, "Europe", NormalizeRegion(" EUROPE "))
	assert.Equal(t, "Antarctic", NormalizeRegion("Antarctica"))
	assert.Empty(t, NormalizeRegion(""))
}
