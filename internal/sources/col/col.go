// Package col matches names against the Catalogue of Life through the
// ChecklistBank API.
package col

import (
	"context"
	"net/url"
	"strings"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/enricher"
)

// Defaults for the public ChecklistBank API and the latest COL release.
const (
	DefaultBaseURL    = "https://api.checklistbank.org"
	DefaultDatasetKey = "3LR"
)

type classification struct {
	Name string `json:"name"`
	Rank string `json:"rank"`
}

type matchResponse struct {
	Type  string `json:"type"`
	Usage *struct {
		ID             string           `json:"id"`
		Name           string           `json:"name"`
		Status         string           `json:"status"`
		Classification []classification `json:"classification"`
	} `json:"usage"`
}

// Catalogue implements enricher.TaxonMatcher.
type Catalogue struct {
	client     *transport.Client
	baseURL    string
	datasetKey string
}

// New creates a catalogue client.
func New(baseURL, datasetKey string, opts ...transport.Option) *Catalogue {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if datasetKey == "" {
		datasetKey = DefaultDatasetKey
	}
	return &Catalogue{
		client:     transport.New("catalogue-of-life", opts...),
		baseURL:    baseURL,
		datasetKey: datasetKey,
	}
}

// MatchTaxon implements enricher.TaxonMatcher. Only exact and variant
// matches count; fuzzy "none" answers are not found.
func (c *Catalogue) MatchTaxon(ctx context.Context, canonicalName, kingdom string) (enricher.Taxon, bool, error) {
	params := url.Values{}
	params.Set("q", canonicalName)
	if kingdom != "" {
		params.Set("kingdom", kingdom)
	}

	var resp matchResponse
	path := "dataset/" + url.PathEscape(c.datasetKey) + "/match/nameusage"
	found, err := c.client.GetJSON(ctx, transport.BuildURL(c.baseURL, path, params), &resp)
	if err != nil || !found || resp.Usage == nil || resp.Usage.ID == "" {
		return enricher.Taxon{}, false, err
	}
	if strings.EqualFold(resp.Type, "none") {
		return enricher.Taxon{}, false, nil
	}

	taxon := enricher.Taxon{
		ID:     resp.Usage.ID,
		Name:   resp.Usage.Name,
		Status: resp.Usage.Status,
	}
	for _, rank := range resp.Usage.Classification {
		if strings.EqualFold(rank.Rank, "kingdom") {
			taxon.Kingdom = rank.Name
			break
		}
	}
	return taxon, true, nil
}

var _ enricher.TaxonMatcher = (*Catalogue)(nil)
