package gbif

import (
	"context"
	"net/url"
	"strings"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/enricher"
)

type parsedNameResponse struct {
	ScientificName string `json:"scientificName"`
	CanonicalName  string `json:"canonicalName"`
	Authorship     string `json:"authorship"`
	RankMarker     string `json:"rankMarker"`
	Parsed         bool   `json:"parsed"`
	Type           string `json:"type"`
}

type speciesResponse struct {
	Key            int    `json:"key"`
	ScientificName string `json:"scientificName"`
	CanonicalName  string `json:"canonicalName"`
	Kingdom        string `json:"kingdom"`
	Rank           string `json:"rank"`
}

// NameParser implements enricher.NameParser with the GBIF name parser.
type NameParser struct {
	client  *transport.Client
	baseURL string
}

// NewNameParser creates a name parser client.
func NewNameParser(baseURL string, opts ...transport.Option) *NameParser {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &NameParser{
		client:  transport.New("gbif-parser", opts...),
		baseURL: baseURL,
	}
}

// ParseName implements enricher.NameParser. Names the parser could not
// make sense of are not found.
func (p *NameParser) ParseName(ctx context.Context, scientificName string) (enricher.ParsedName, bool, error) {
	params := url.Values{}
	params.Set("name", scientificName)

	var resp []parsedNameResponse
	found, err := p.client.GetJSON(ctx, transport.BuildURL(p.baseURL, "parser/name", params), &resp)
	if err != nil || !found || len(resp) == 0 {
		return enricher.ParsedName{}, false, err
	}
	first := resp[0]
	if !first.Parsed || first.CanonicalName == "" {
		return enricher.ParsedName{}, false, nil
	}
	return enricher.ParsedName{
		CanonicalName: first.CanonicalName,
		Authorship:    first.Authorship,
		Rank:          first.RankMarker,
	}, true, nil
}

// TaxonByID implements enricher.TaxonLookup with the species backbone.
func (p *NameParser) TaxonByID(ctx context.Context, id string) (enricher.NameRecord, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return enricher.NameRecord{}, false, nil
	}

	var resp speciesResponse
	found, err := p.client.GetJSON(ctx, transport.BuildURL(p.baseURL, "species/"+url.PathEscape(id), nil), &resp)
	if err != nil || !found || resp.ScientificName == "" {
		return enricher.NameRecord{}, false, err
	}
	return enricher.NameRecord{
		ScientificName: resp.ScientificName,
		CanonicalName:  resp.CanonicalName,
		Kingdom:        resp.Kingdom,
		Rank:           strings.ToLower(resp.Rank),
	}, true, nil
}

var (
	_ enricher.NameParser  = (*NameParser)(nil)
	_ enricher.TaxonLookup = (*NameParser)(nil)
)
