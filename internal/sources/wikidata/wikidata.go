// Package wikidata looks taxa up in Wikidata through its SPARQL endpoint.
package wikidata

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/enricher"
)

// DefaultEndpoint is the public Wikidata Query Service.
const DefaultEndpoint = "https://query.wikidata.org/sparql"

const entityPrefix = "http://www.wikidata.org/entity/"

// taxonQuery finds an item whose taxon name (P225) matches and whose
// parent-taxon chain (P171) reaches the kingdom, with an optional English
// common name (P1843).
const taxonQuery = `SELECT ?item ?common WHERE {
  ?item wdt:P225 %s .
  ?item wdt:P171+ ?kingdom .
  ?kingdom wdt:P225 %s ; wdt:P105 wd:Q36732 .
  OPTIONAL { ?item wdt:P1843 ?common . FILTER(LANG(?common) = "en") }
}
LIMIT 5`

type binding struct {
	Value string `json:"value"`
}

type sparqlResponse struct {
	Results struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results"`
}

// KnowledgeBase implements enricher.KnowledgeBase.
type KnowledgeBase struct {
	client   *transport.Client
	endpoint string
}

// New creates a Wikidata client.
func New(endpoint string, opts ...transport.Option) *KnowledgeBase {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &KnowledgeBase{
		client:   transport.New("wikidata", opts...),
		endpoint: endpoint,
	}
}

// Query renders the SPARQL query for a taxon.
func Query(canonicalName, kingdom string) string {
	return fmt.Sprintf(taxonQuery, literal(canonicalName), literal(kingdom))
}

// literal renders s as a SPARQL string literal.
func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}

// LookupTaxon implements enricher.KnowledgeBase. When several items match
// the lowest-numbered one wins.
func (kb *KnowledgeBase) LookupTaxon(ctx context.Context, canonicalName, kingdom string) (enricher.Entity, bool, error) {
	params := url.Values{}
	params.Set("query", Query(canonicalName, kingdom))
	params.Set("format", "json")

	var resp sparqlResponse
	found, err := kb.client.GetAs(ctx, kb.endpoint+"?"+params.Encode(), "application/sparql-results+json", &resp)
	if err != nil || !found || len(resp.Results.Bindings) == 0 {
		return enricher.Entity{}, false, err
	}

	var entity enricher.Entity
	for _, b := range resp.Results.Bindings {
		id := strings.TrimPrefix(b["item"].Value, entityPrefix)
		if id == "" {
			continue
		}
		if entity.ID == "" || qnum(id) < qnum(entity.ID) {
			entity = enricher.Entity{ID: id, Label: canonicalName, CommonName: b["common"].Value}
		} else if id == entity.ID && entity.CommonName == "" {
			entity.CommonName = b["common"].Value
		}
	}
	if entity.ID == "" {
		return enricher.Entity{}, false, nil
	}
	return entity, true, nil
}

// qnum orders Q-ids numerically.
func qnum(id string) int {
	var n int
	if _, err := fmt.Sscanf(id, "Q%d", &n); err != nil {
		return math.MaxInt
	}
	return n
}

var _ enricher.KnowledgeBase = (*KnowledgeBase)(nil)
