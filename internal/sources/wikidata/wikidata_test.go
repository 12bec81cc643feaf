package wikidata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/internal/transport"
)

func TestQueryEscapes(t *testing.T) {
	q := Query(`Agathis "montana"`, "Plantae")
	assert.Contains(t, q, `wdt:P225 "Agathis \"montana\"" .`)
	assert.Contains(t, q, `?kingdom wdt:P225 "Plantae"`)
}

func TestLookupTaxon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		assert.Contains(t, r.URL.Query().Get("query"), `"Agathis montana"`)
		if r.URL.Query().Get("query") == Query("Agathis montana", "Plantae") {
			_, _ = w.Write([]byte(`{"results":{"bindings":[
				{"item":{"type":"uri","value":"http://www.wikidata.org/entity/Q123456789"}},
				{"item":{"type":"uri","value":"http://www.wikidata.org/entity/Q2715437"},"common":{"type":"literal","value":"Mt Panié kauri"}}
			]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":{"bindings":[]}}`))
	}))
	defer srv.Close()

	kb := New(srv.URL, transport.WithHTTPClient(srv.Client()))

	e, found, err := kb.LookupTaxon(context.Background(), "Agathis montana", "Plantae")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Q2715437", e.ID)
	assert.Equal(t, "Mt Panié kauri", e.CommonName)

	_, found, err = kb.LookupTaxon(context.Background(), "Agathis montana", "Animalia")
	require.NoError(t, err)
	assert.False(t, found)
}
