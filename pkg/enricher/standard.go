package enricher

import (
	"context"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/region"
	"github.com/agentstation/specimap/pkg/specimen"
)

// Collaborators of the standard enrichers. Each is a single idempotent
// query; "not found" is reported through the boolean, never as an error.

// CountryNamer maps an ISO 3166 alpha-2 code to a country name.
type CountryNamer interface {
	CountryName(ctx context.Context, code string) (string, bool, error)
}

// ParsedName is the result of parsing a scientific name.
type ParsedName struct {
	CanonicalName string
	Authorship    string
	Rank          string
}

// NameParser splits a scientific name into its parts.
type NameParser interface {
	ParseName(ctx context.Context, scientificName string) (ParsedName, bool, error)
}

// NameRecord is a name-service taxon fetched by its identifier.
type NameRecord struct {
	ScientificName string
	CanonicalName  string
	Kingdom        string
	Rank           string
}

// TaxonLookup fetches a taxon from the name service by its identifier.
type TaxonLookup interface {
	TaxonByID(ctx context.Context, id string) (NameRecord, bool, error)
}

// Taxon is a catalogue-of-life match.
type Taxon struct {
	ID      string
	Name    string
	Kingdom string
	Status  string
}

// TaxonMatcher looks a canonical name up in the catalogue of life.
type TaxonMatcher interface {
	MatchTaxon(ctx context.Context, canonicalName, kingdom string) (Taxon, bool, error)
}

// LiteratureQuery identifies a specimen in the literature.
type LiteratureQuery struct {
	InstitutionCode string
	CollectionCode  string
	CatalogNumber   string
}

// Reference is a published work citing a specimen.
type Reference struct {
	Title string
	DOI   string
	URL   string
	Year  int
}

// LiteratureSearcher searches the literature database.
type LiteratureSearcher interface {
	SearchLiterature(ctx context.Context, q LiteratureQuery) ([]Reference, error)
}

// Entity is a knowledge-base entry for a taxon.
type Entity struct {
	ID         string
	Label      string
	CommonName string
}

// KnowledgeBase looks a taxon up in the linked-data store.
type KnowledgeBase interface {
	LookupTaxon(ctx context.Context, canonicalName, kingdom string) (Entity, bool, error)
}

// RegionResolver resolves institution regions.
type RegionResolver interface {
	Resolve(ctx context.Context, q region.Query) (region.Resolution, error)
}

// Standard enricher names.
const (
	NameCountry       = "country"
	NameTaxonomy      = "taxonomy"
	NameLiterature    = "literature"
	NameKnowledgeBase = "knowledge-base"
	NameRegion        = "region"
)

// CountryEnricher fills the country name from the country code.
type CountryEnricher struct {
	Names CountryNamer
}

// Name implements Enricher.
func (e *CountryEnricher) Name() string { return NameCountry }

// CanEnrich implements Enricher.
func (e *CountryEnricher) CanEnrich(r *specimen.Record) bool {
	return r.Has(specimen.FieldCountryCode) && !r.Has(specimen.FieldCountry)
}

// Enrich implements Enricher.
func (e *CountryEnricher) Enrich(ctx context.Context, r *specimen.Record) (specimen.Fields, error) {
	code := strings.ToUpper(r.String(specimen.FieldCountryCode))
	if !govalidator.IsISO3166Alpha2(code) {
		logging.FromContext(ctx).Debug().Str("country_code", code).Msg("Not an ISO 3166 alpha-2 code")
		return nil, nil
	}
	name, found, err := e.Names.CountryName(ctx, code)
	if err != nil || !found {
		return nil, err
	}
	return specimen.Fields{specimen.FieldCountry: name}, nil
}

// TaxonomyEnricher derives the canonical name and cross-references it in
// the catalogue of life. A record carrying only a taxonID gets its
// scientific name from Lookup first.
type TaxonomyEnricher struct {
	Parser    NameParser
	Catalogue TaxonMatcher
	Lookup    TaxonLookup
}

// Name implements Enricher.
func (e *TaxonomyEnricher) Name() string { return NameTaxonomy }

// CanEnrich implements Enricher.
func (e *TaxonomyEnricher) CanEnrich(r *specimen.Record) bool {
	if !r.Has(specimen.FieldScientificName) {
		return e.Lookup != nil && r.Has(specimen.FieldTaxonID)
	}
	return !r.Has(specimen.FieldCanonicalName) || (e.Catalogue != nil && !r.Has(specimen.FieldCoLTaxonID))
}

// Enrich implements Enricher.
func (e *TaxonomyEnricher) Enrich(ctx context.Context, r *specimen.Record) (specimen.Fields, error) {
	out := specimen.Fields{}

	name := r.String(specimen.FieldScientificName)
	canonical := r.String(specimen.FieldCanonicalName)
	kingdom := r.String(specimen.FieldKingdom)
	if name == "" {
		taxon, found, err := e.Lookup.TaxonByID(ctx, r.String(specimen.FieldTaxonID))
		if err != nil || !found || taxon.ScientificName == "" {
			return nil, err
		}
		name = taxon.ScientificName
		out[specimen.FieldScientificName] = name
		if canonical == "" && taxon.CanonicalName != "" {
			canonical = taxon.CanonicalName
			out[specimen.FieldCanonicalName] = canonical
		}
		if kingdom == "" && taxon.Kingdom != "" {
			kingdom = taxon.Kingdom
			out[specimen.FieldKingdom] = kingdom
		}
	}

	if canonical == "" {
		parsed, found, err := e.Parser.ParseName(ctx, name)
		if err != nil {
			return nil, err
		}
		if !found || parsed.CanonicalName == "" {
			return nilIfEmpty(out), nil
		}
		canonical = parsed.CanonicalName
		out[specimen.FieldCanonicalName] = canonical
	}

	if e.Catalogue != nil && !r.Has(specimen.FieldCoLTaxonID) {
		taxon, found, err := e.Catalogue.MatchTaxon(ctx, canonical, kingdom)
		if err != nil {
			return nil, err
		}
		if found {
			out[specimen.FieldCoLTaxonID] = taxon.ID
			if taxon.Kingdom != "" {
				out[specimen.FieldKingdom] = taxon.Kingdom
			}
		}
	}
	return nilIfEmpty(out), nil
}

func nilIfEmpty(f specimen.Fields) specimen.Fields {
	if len(f) == 0 {
		return nil
	}
	return f
}

// maxReferences caps the references recorded per specimen.
const maxReferences = 10

// LiteratureEnricher searches for publications citing the specimen.
type LiteratureEnricher struct {
	Search LiteratureSearcher
}

// Name implements Enricher.
func (e *LiteratureEnricher) Name() string { return NameLiterature }

// CanEnrich implements Enricher.
func (e *LiteratureEnricher) CanEnrich(r *specimen.Record) bool {
	if r.Has(specimen.FieldReferences) || !r.Has(specimen.FieldCatalogNumber) {
		return false
	}
	return r.Has(specimen.FieldInstitutionCode) || r.Has(specimen.FieldCollectionCode)
}

// Enrich implements Enricher.
func (e *LiteratureEnricher) Enrich(ctx context.Context, r *specimen.Record) (specimen.Fields, error) {
	refs, err := e.Search.SearchLiterature(ctx, LiteratureQuery{
		InstitutionCode: r.String(specimen.FieldInstitutionCode),
		CollectionCode:  r.String(specimen.FieldCollectionCode),
		CatalogNumber:   r.String(specimen.FieldCatalogNumber),
	})
	if err != nil {
		return nil, err
	}

	var cited []string
	for _, ref := range refs {
		if s := ref.Citation(); s != "" {
			cited = append(cited, s)
		}
		if len(cited) == maxReferences {
			break
		}
	}
	if len(cited) == 0 {
		return nil, nil
	}
	// Darwin Core lists are pipe separated.
	return specimen.Fields{specimen.FieldReferences: strings.Join(cited, " | ")}, nil
}

// Citation returns the most stable handle for the reference.
func (r Reference) Citation() string {
	switch {
	case r.DOI != "":
		return "https://doi.org/" + strings.TrimPrefix(r.DOI, "https://doi.org/")
	case r.URL != "":
		return r.URL
	default:
		return strings.TrimSpace(r.Title)
	}
}

// KnowledgeBaseEnricher links the taxon to the linked-data store. It only
// runs when both the kingdom and a canonical name can be had.
type KnowledgeBaseEnricher struct {
	KB     KnowledgeBase
	Parser NameParser
}

// Name implements Enricher.
func (e *KnowledgeBaseEnricher) Name() string { return NameKnowledgeBase }

// CanEnrich implements Enricher.
func (e *KnowledgeBaseEnricher) CanEnrich(r *specimen.Record) bool {
	if r.Has(specimen.FieldWikidataID) || !r.Has(specimen.FieldKingdom) {
		return false
	}
	return r.Has(specimen.FieldCanonicalName) || (e.Parser != nil && r.Has(specimen.FieldScientificName))
}

// Enrich implements Enricher.
func (e *KnowledgeBaseEnricher) Enrich(ctx context.Context, r *specimen.Record) (specimen.Fields, error) {
	canonical := r.String(specimen.FieldCanonicalName)
	if canonical == "" {
		parsed, found, err := e.Parser.ParseName(ctx, r.String(specimen.FieldScientificName))
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		canonical = parsed.CanonicalName
	}
	if canonical == "" {
		return nil, nil
	}

	entity, found, err := e.KB.LookupTaxon(ctx, canonical, r.String(specimen.FieldKingdom))
	if err != nil || !found {
		return nil, err
	}
	out := specimen.Fields{specimen.FieldWikidataID: entity.ID}
	if entity.CommonName != "" {
		out[specimen.FieldVernacularName] = entity.CommonName
	}
	return out, nil
}

// RegionEnricher records the institution's region.
type RegionEnricher struct {
	Resolver RegionResolver
}

// Name implements Enricher.
func (e *RegionEnricher) Name() string { return NameRegion }

// CanEnrich implements Enricher.
func (e *RegionEnricher) CanEnrich(r *specimen.Record) bool {
	if r.Has(specimen.FieldRegion) {
		return false
	}
	return r.Has(specimen.FieldInstitutionID) ||
		r.Has(specimen.FieldInstitutionCode) ||
		r.Has(specimen.FieldCollectionID) ||
		r.Has(specimen.FieldIdentifier)
}

// Enrich implements Enricher.
func (e *RegionEnricher) Enrich(ctx context.Context, r *specimen.Record) (specimen.Fields, error) {
	res, err := e.Resolver.Resolve(ctx, region.QueryFor(r))
	if err != nil || !res.OK() {
		return nil, err
	}
	return specimen.Fields{specimen.FieldRegion: res.Region}, nil
}

// Sources bundles the collaborators of the standard set. Nil members drop
// the enrichers that need them.
type Sources struct {
	Countries  CountryNamer
	Names      NameParser
	Taxa       TaxonLookup
	Catalogue  TaxonMatcher
	Literature LiteratureSearcher
	Knowledge  KnowledgeBase
	Regions    RegionResolver
}

// Standard returns the standard enricher set for the available sources.
func Standard(s Sources) []Enricher {
	var set []Enricher
	if s.Countries != nil {
		set = append(set, &CountryEnricher{Names: s.Countries})
	}
	if s.Names != nil {
		set = append(set, &TaxonomyEnricher{Parser: s.Names, Catalogue: s.Catalogue, Lookup: s.Taxa})
	}
	if s.Literature != nil {
		set = append(set, &LiteratureEnricher{Search: s.Literature})
	}
	if s.Knowledge != nil {
		set = append(set, &KnowledgeBaseEnricher{KB: s.Knowledge, Parser: s.Names})
	}
	if s.Regions != nil {
		set = append(set, &RegionEnricher{Resolver: s.Regions})
	}
	return set
}
