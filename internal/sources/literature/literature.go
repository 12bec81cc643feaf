// Package literature searches the GBIF literature index for publications
// citing a specimen.
package literature

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/enricher"
)

// DefaultBaseURL is the public GBIF API.
const DefaultBaseURL = "https://api.gbif.org/v1"

const pageSize = 20

type searchResponse struct {
	Count   int `json:"count"`
	Results []struct {
		Title       string `json:"title"`
		Year        int    `json:"year"`
		Identifiers struct {
			DOI string `json:"doi"`
		} `json:"identifiers"`
		Websites []string `json:"websites"`
	} `json:"results"`
}

// Searcher implements enricher.LiteratureSearcher.
type Searcher struct {
	client  *transport.Client
	baseURL string
}

// New creates a literature search client.
func New(baseURL string, opts ...transport.Option) *Searcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Searcher{
		client:  transport.New("gbif-literature", opts...),
		baseURL: baseURL,
	}
}

// Query renders the full-text query for a specimen: the catalog number
// as a phrase, qualified by whichever codes are known.
func Query(q enricher.LiteratureQuery) string {
	parts := make([]string, 0, 3)
	for _, code := range []string{q.InstitutionCode, q.CollectionCode} {
		if code = strings.TrimSpace(code); code != "" {
			parts = append(parts, code)
		}
	}
	if n := strings.TrimSpace(q.CatalogNumber); n != "" {
		parts = append(parts, strconv.Quote(n))
	}
	return strings.Join(parts, " ")
}

// SearchLiterature implements enricher.LiteratureSearcher.
func (s *Searcher) SearchLiterature(ctx context.Context, q enricher.LiteratureQuery) ([]enricher.Reference, error) {
	text := Query(q)
	if text == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("q", text)
	params.Set("limit", strconv.Itoa(pageSize))

	var resp searchResponse
	found, err := s.client.GetJSON(ctx, transport.BuildURL(s.baseURL, "literature/search", params), &resp)
	if err != nil || !found {
		return nil, err
	}

	refs := make([]enricher.Reference, 0, len(resp.Results))
	for _, r := range resp.Results {
		ref := enricher.Reference{Title: r.Title, Year: r.Year, DOI: r.Identifiers.DOI}
		if len(r.Websites) > 0 {
			ref.URL = r.Websites[0]
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

var _ enricher.LiteratureSearcher = (*Searcher)(nil)
