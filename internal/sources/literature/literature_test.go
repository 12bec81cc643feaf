package literature

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/enricher"
)

func TestQuery(t *testing.T) {
	assert.Equal(t, `MNHN P "P00012"`, Query(enricher.LiteratureQuery{InstitutionCode: "MNHN", CollectionCode: "P", CatalogNumber: "P00012"}))
	assert.Equal(t, `"P00012"`, Query(enricher.LiteratureQuery{CatalogNumber: " P00012 "}))
	assert.Empty(t, Query(enricher.LiteratureQuery{}))
}

func TestSearchLiterature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/literature/search", r.URL.Path)
		assert.Equal(t, `MNHN "P00012"`, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"count":2,"results":[
			{"title":"A revision of Agathis","year":2019,"identifiers":{"doi":"10.1000/xyz"}},
			{"title":"Kauri of New Caledonia","websites":["https://example.org/paper"]}
		]}`))
	}))
	defer srv.Close()

	s := New(srv.URL, transport.WithHTTPClient(srv.Client()))
	refs, err := s.SearchLiterature(context.Background(), enricher.LiteratureQuery{InstitutionCode: "MNHN", CatalogNumber: "P00012"})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "https://doi.org/10.1000/xyz", refs[0].Citation())
	assert.Equal(t, "https://example.org/paper", refs[1].Citation())
}
