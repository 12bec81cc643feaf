// Package sources builds the external source clients and wires them into
// the enrichers and the region resolver.
package sources

import (
	"time"

	"github.com/agentstation/specimap/internal/sources/col"
	"github.com/agentstation/specimap/internal/sources/countries"
	"github.com/agentstation/specimap/internal/sources/gbif"
	"github.com/agentstation/specimap/internal/sources/geoip"
	"github.com/agentstation/specimap/internal/sources/literature"
	"github.com/agentstation/specimap/internal/sources/wikidata"
	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/enricher"
	"github.com/agentstation/specimap/pkg/region"
)

// Endpoints holds the base URL of each source. Empty values select the
// public default.
type Endpoints struct {
	GBIF           string `mapstructure:"gbif" yaml:"gbif" json:"gbif"`
	Catalogue      string `mapstructure:"catalogue" yaml:"catalogue" json:"catalogue"`
	CatalogueKey   string `mapstructure:"catalogue_dataset" yaml:"catalogue_dataset" json:"catalogue_dataset"`
	Wikidata       string `mapstructure:"wikidata" yaml:"wikidata" json:"wikidata"`
	Countries      string `mapstructure:"countries" yaml:"countries" json:"countries"`
	CountryOffline bool   `mapstructure:"countries_offline" yaml:"countries_offline" json:"countries_offline"`
	GeoIP          string `mapstructure:"geoip" yaml:"geoip" json:"geoip"`
	GeoIPKey       string `mapstructure:"geoip_key" yaml:"geoip_key" json:"-"`
}

// Defaults returns the public endpoints.
func Defaults() Endpoints {
	return Endpoints{
		GBIF:         gbif.DefaultBaseURL,
		Catalogue:    col.DefaultBaseURL,
		CatalogueKey: col.DefaultDatasetKey,
		Wikidata:     wikidata.DefaultEndpoint,
		Countries:    countries.DefaultBaseURL,
		GeoIP:        geoip.DefaultBaseURL,
	}
}

// Set is one instance of every source client. The clients are shared by
// all records of a run so that their caches are too.
type Set struct {
	Registry   *gbif.Registry
	Names      *gbif.NameParser
	Catalogue  *col.Catalogue
	Literature *literature.Searcher
	Knowledge  *wikidata.KnowledgeBase
	Countries  *countries.Resolver
	Geo        *geoip.Geolocator
	Regions    *region.Resolver
}

// New builds the source set. timeout bounds each HTTP request.
func New(e Endpoints, timeout time.Duration, opts ...transport.Option) *Set {
	opts = append([]transport.Option{transport.WithTimeout(timeout)}, opts...)

	s := &Set{
		Registry:   gbif.NewRegistry(e.GBIF, opts...),
		Names:      gbif.NewNameParser(e.GBIF, opts...),
		Catalogue:  col.New(e.Catalogue, e.CatalogueKey, opts...),
		Literature: literature.New(e.GBIF, opts...),
		Knowledge:  wikidata.New(e.Wikidata, opts...),
		Countries:  countries.New(e.Countries, e.CountryOffline, opts...),
		Geo:        geoip.New(e.GeoIP, e.GeoIPKey, geoip.WithTransport(opts...)),
	}
	s.Regions = region.NewResolver(s.Registry, s.Geo, s.Countries)
	return s
}

// Enrichers returns the standard enrichers backed by this set.
func (s *Set) Enrichers() []enricher.Enricher {
	return enricher.Standard(enricher.Sources{
		Countries:  s.Countries,
		Names:      s.Names,
		Taxa:       s.Names,
		Catalogue:  s.Catalogue,
		Literature: s.Literature,
		Knowledge:  s.Knowledge,
		Regions:    s.Regions,
	})
}
