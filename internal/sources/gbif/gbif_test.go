package gbif

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/region"
)

const parisKey = "6a6ac6c5-1b8a-48db-91a2-f8661274ff80"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/grscicoll/institution/"+parisKey, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"key":"` + parisKey + `","code":"MNHN","name":"Muséum national d'Histoire naturelle","address":{"country":"FR"}}`))
	})
	mux.HandleFunc("/grscicoll/institution", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MNHN", r.URL.Query().Get("code"))
		_, _ = w.Write([]byte(`{"count":3,"results":[
			{"key":"` + parisKey + `","code":"MNHN","address":{"country":"FR"}},
			{"key":"k2","code":"mnhn","mailingAddress":{"country":"NC"}},
			{"key":"k3","code":"MNHN-X"},
			{"key":"k4","code":"MNHN","deleted":"2020-01-01T00:00:00"}
		]}`))
	})
	mux.HandleFunc("/grscicoll/collection", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("institution") == parisKey && r.URL.Query().Get("code") == "X" {
			_, _ = w.Write([]byte(`{"count":1,"results":[{"key":"c1","code":"X"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	})
	mux.HandleFunc("/parser/name", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Agathis montana de Laub." {
			_, _ = w.Write([]byte(`[{"scientificName":"Agathis montana de Laub.","canonicalName":"Agathis montana","authorship":"de Laub.","rankMarker":"sp.","parsed":true}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"scientificName":"???","parsed":false}]`))
	})
	mux.HandleFunc("/species/2684940", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"key":2684940,"scientificName":"Agathis montana de Laub.","canonicalName":"Agathis montana","kingdom":"Plantae","rank":"SPECIES"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistry(t *testing.T) {
	srv := newServer(t)
	reg := NewRegistry(srv.URL, transport.WithHTTPClient(srv.Client()))
	ctx := context.Background()

	inst, found, err := reg.InstitutionByID(ctx, parisKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, region.Institution{Key: parisKey, Code: "MNHN", Name: "Muséum national d'Histoire naturelle", CountryCode: "FR"}, inst)

	_, found, err = reg.InstitutionByID(ctx, "00000000-0000-4000-8000-000000000000")
	require.NoError(t, err)
	assert.False(t, found)

	all, err := reg.InstitutionsByCode(ctx, "MNHN")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "FR", all[0].CountryCode)
	assert.Equal(t, "NC", all[1].CountryCode)

	ok, err := reg.HasCollection(ctx, parisKey, "X")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.HasCollection(ctx, "k2", "X")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNameParser(t *testing.T) {
	srv := newServer(t)
	p := NewNameParser(srv.URL, transport.WithHTTPClient(srv.Client()))

	got, found, err := p.ParseName(context.Background(), "Agathis montana de Laub.")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Agathis montana", got.CanonicalName)
	assert.Equal(t, "de Laub.", got.Authorship)

	_, found, err = p.ParseName(context.Background(), "???")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTaxonByID(t *testing.T) {
	srv := newServer(t)
	p := NewNameParser(srv.URL, transport.WithHTTPClient(srv.Client()))

	got, found, err := p.TaxonByID(context.Background(), "2684940")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Agathis montana de Laub.", got.ScientificName)
	assert.Equal(t, "Plantae", got.Kingdom)
	assert.Equal(t, "species", got.Rank)

	_, found, err = p.TaxonByID(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = p.TaxonByID(context.Background(), " ")
	require.NoError(t, err)
	assert.False(t, found)
}
