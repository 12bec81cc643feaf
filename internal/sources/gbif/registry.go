// Package gbif talks to the GBIF API: the GRSciColl institution and
// collection registry and the scientific name parser.
package gbif

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/agentstation/specimap/internal/transport"
	"github.com/agentstation/specimap/pkg/region"
)

// DefaultBaseURL is the public GBIF API.
const DefaultBaseURL = "https://api.gbif.org/v1"

// searchLimit bounds one registry search page. Codes are short and
// collisions rare; a handful of candidates is the norm.
const searchLimit = 50

type address struct {
	Country string `json:"country"`
}

type institutionResponse struct {
	Key            string   `json:"key"`
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Address        *address `json:"address"`
	MailingAddress *address `json:"mailingAddress"`
	Deleted        string   `json:"deleted"`
}

func (r institutionResponse) toInstitution() region.Institution {
	inst := region.Institution{Key: r.Key, Code: r.Code, Name: r.Name}
	switch {
	case r.Address != nil && r.Address.Country != "":
		inst.CountryCode = r.Address.Country
	case r.MailingAddress != nil && r.MailingAddress.Country != "":
		inst.CountryCode = r.MailingAddress.Country
	}
	return inst
}

type institutionPage struct {
	Count   int                   `json:"count"`
	Results []institutionResponse `json:"results"`
}

type collectionPage struct {
	Count   int `json:"count"`
	Results []struct {
		Key  string `json:"key"`
		Code string `json:"code"`
	} `json:"results"`
}

// Registry implements region.Registry against GRSciColl.
type Registry struct {
	client  *transport.Client
	baseURL string
}

// NewRegistry creates a registry client. An empty baseURL uses the public API.
func NewRegistry(baseURL string, opts ...transport.Option) *Registry {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Registry{
		client:  transport.New("gbif-registry", opts...),
		baseURL: baseURL,
	}
}

// InstitutionByID implements region.Registry.
func (r *Registry) InstitutionByID(ctx context.Context, id string) (region.Institution, bool, error) {
	var resp institutionResponse
	found, err := r.client.GetJSON(ctx, transport.BuildURL(r.baseURL, "grscicoll/institution/"+url.PathEscape(id), nil), &resp)
	if err != nil || !found || resp.Deleted != "" {
		return region.Institution{}, false, err
	}
	return resp.toInstitution(), true, nil
}

// InstitutionsByCode implements region.Registry. The API matches codes
// loosely, so results are filtered to exact, case-insensitive matches.
func (r *Registry) InstitutionsByCode(ctx context.Context, code string) ([]region.Institution, error) {
	params := url.Values{}
	params.Set("code", code)
	params.Set("limit", strconv.Itoa(searchLimit))

	var page institutionPage
	found, err := r.client.GetJSON(ctx, transport.BuildURL(r.baseURL, "grscicoll/institution", params), &page)
	if err != nil || !found {
		return nil, err
	}

	var out []region.Institution
	for _, res := range page.Results {
		if res.Deleted != "" || !strings.EqualFold(res.Code, code) {
			continue
		}
		out = append(out, res.toInstitution())
	}
	return out, nil
}

// HasCollection implements region.Registry.
func (r *Registry) HasCollection(ctx context.Context, institutionKey, collectionCode string) (bool, error) {
	params := url.Values{}
	params.Set("institution", institutionKey)
	params.Set("code", collectionCode)
	params.Set("limit", "10")

	var page collectionPage
	found, err := r.client.GetJSON(ctx, transport.BuildURL(r.baseURL, "grscicoll/collection", params), &page)
	if err != nil || !found {
		return false, err
	}
	for _, c := range page.Results {
		if strings.EqualFold(c.Code, collectionCode) {
			return true, nil
		}
	}
	return false, nil
}

var _ region.Registry = (*Registry)(nil)
