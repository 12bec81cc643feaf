package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/pkg/enricher"
)

func TestNewWiresEveryEnricher(t *testing.T) {
	s := New(Defaults(), time.Second)
	require.NotNil(t, s.Regions)

	var names []string
	for _, e := range s.Enrichers() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		enricher.NameCountry,
		enricher.NameTaxonomy,
		enricher.NameLiterature,
		enricher.NameKnowledgeBase,
		enricher.NameRegion,
	}, names)
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "https://api.gbif.org/v1", d.GBIF)
	assert.Equal(t, "3LR", d.CatalogueKey)
	assert.False(t, d.CountryOffline)
	assert.Empty(t, d.GeoIPKey)
}
