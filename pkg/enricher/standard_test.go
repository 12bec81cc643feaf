package enricher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/pkg/region"
	"github.com/agentstation/specimap/pkg/specimen"
)

type fakeSources struct {
	countries map[string]string
	names     map[string]string
	taxa      map[string]Taxon
	byID      map[string]NameRecord
	refs      []Reference
	entities  map[string]Entity
	region    region.Resolution
	queries   []region.Query
}

func (f *fakeSources) CountryName(_ context.Context, code string) (string, bool, error) {
	n, ok := f.countries[code]
	return n, ok, nil
}

func (f *fakeSources) ParseName(_ context.Context, name string) (ParsedName, bool, error) {
	c, ok := f.names[name]
	return ParsedName{CanonicalName: c}, ok, nil
}

func (f *fakeSources) TaxonByID(_ context.Context, id string) (NameRecord, bool, error) {
	n, ok := f.byID[id]
	return n, ok, nil
}

func (f *fakeSources) MatchTaxon(_ context.Context, name, _ string) (Taxon, bool, error) {
	t, ok := f.taxa[name]
	return t, ok, nil
}

func (f *fakeSources) SearchLiterature(context.Context, LiteratureQuery) ([]Reference, error) {
	return f.refs, nil
}

func (f *fakeSources) LookupTaxon(_ context.Context, name, _ string) (Entity, bool, error) {
	e, ok := f.entities[name]
	return e, ok, nil
}

func (f *fakeSources) Resolve(_ context.Context, q region.Query) (region.Resolution, error) {
	f.queries = append(f.queries, q)
	return f.region, nil
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		countries: map[string]string{"NC": "New Caledonia"},
		names:     map[string]string{"Agathis montana de Laub.": "Agathis montana"},
		taxa:      map[string]Taxon{"Agathis montana": {ID: "6QJYY", Kingdom: "Plantae"}},
		byID: map[string]NameRecord{
			"2684940": {ScientificName: "Agathis montana de Laub.", Kingdom: "Plantae"},
		},
		refs: []Reference{
			{Title: "A revision of Agathis", DOI: "10.1000/xyz"},
			{URL: "https://example.org/paper"},
			{},
		},
		entities: map[string]Entity{"Agathis montana": {ID: "Q2715437", CommonName: "Mt Panié kauri"}},
		region:   region.Resolution{Status: region.Resolved, Region: "Oceania"},
	}
}

func TestStandardSetEndToEnd(t *testing.T) {
	src := newFakeSources()
	set := Standard(Sources{
		Countries:  src,
		Names:      src,
		Catalogue:  src,
		Literature: src,
		Knowledge:  src,
		Regions:    src,
	})
	require.Len(t, set, 5)

	orch, err := New(set)
	require.NoError(t, err)

	in := specimen.New(specimen.Fields{
		specimen.FieldScientificName:  "Agathis montana de Laub.",
		specimen.FieldCountryCode:     "nc",
		specimen.FieldInstitutionCode: "P",
		specimen.FieldCatalogNumber:   "P00012",
		specimen.FieldKingdom:         "Plantae",
	}, nil)

	out, err := orch.Enrich(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "New Caledonia", out.String(specimen.FieldCountry))
	assert.Equal(t, "Agathis montana", out.String(specimen.FieldCanonicalName))
	assert.Equal(t, "6QJYY", out.String(specimen.FieldCoLTaxonID))
	assert.Equal(t, "https://doi.org/10.1000/xyz | https://example.org/paper", out.String(specimen.FieldReferences))
	assert.Equal(t, "Q2715437", out.String(specimen.FieldWikidataID))
	assert.Equal(t, "Mt Panié kauri", out.String(specimen.FieldVernacularName))
	assert.Equal(t, "Oceania", out.String(specimen.FieldRegion))
}

func TestKnowledgeBaseGatedOnKingdom(t *testing.T) {
	e := &KnowledgeBaseEnricher{KB: newFakeSources()}

	assert.False(t, e.CanEnrich(specimen.New(specimen.Fields{specimen.FieldCanonicalName: "Agathis montana"}, nil)))
	assert.False(t, e.CanEnrich(specimen.New(specimen.Fields{
		specimen.FieldKingdom:        "Plantae",
		specimen.FieldScientificName: "Agathis montana",
	}, nil)), "no parser, no canonical name")
	assert.True(t, e.CanEnrich(specimen.New(specimen.Fields{
		specimen.FieldKingdom:       "Plantae",
		specimen.FieldCanonicalName: "Agathis montana",
	}, nil)))
}

func TestCountryEnricherRejectsBadCode(t *testing.T) {
	e := &CountryEnricher{Names: newFakeSources()}
	r := specimen.New(specimen.Fields{specimen.FieldCountryCode: "XYZ"}, nil)

	require.True(t, e.CanEnrich(r))
	got, err := e.Enrich(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaxonomyEnricherUnknownName(t *testing.T) {
	e := &TaxonomyEnricher{Parser: newFakeSources(), Catalogue: newFakeSources()}
	got, err := e.Enrich(context.Background(), specimen.New(specimen.Fields{specimen.FieldScientificName: "Nonsense"}, nil))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaxonomyEnricherFromTaxonID(t *testing.T) {
	src := newFakeSources()
	e := &TaxonomyEnricher{Parser: src, Catalogue: src, Lookup: src}

	r := specimen.New(specimen.Fields{specimen.FieldTaxonID: "2684940"}, nil)
	require.True(t, e.CanEnrich(r))
	got, err := e.Enrich(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, specimen.Fields{
		specimen.FieldScientificName: "Agathis montana de Laub.",
		specimen.FieldCanonicalName:  "Agathis montana",
		specimen.FieldKingdom:        "Plantae",
		specimen.FieldCoLTaxonID:     "6QJYY",
	}, got)

	unknown := specimen.New(specimen.Fields{specimen.FieldTaxonID: "1"}, nil)
	got, err = e.Enrich(context.Background(), unknown)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.False(t, (&TaxonomyEnricher{Parser: src}).CanEnrich(r), "no lookup configured")
}

func TestRegionEnricherUnresolved(t *testing.T) {
	src := newFakeSources()
	src.region = region.Resolution{Status: region.Unresolved}
	e := &RegionEnricher{Resolver: src}

	r := specimen.New(specimen.Fields{
		specimen.FieldInstitutionCode: "MNHN",
		specimen.FieldCollectionCode:  "X",
		specimen.FieldIdentifier:      "https://example.org/1",
	}, nil)
	got, err := e.Enrich(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.Len(t, src.queries, 1)
	assert.Equal(t, "MNHN", src.queries[0].InstitutionCode)
	assert.Equal(t, []string{"", "", "https://example.org/1"}, src.queries[0].FallbackURLs)
}
